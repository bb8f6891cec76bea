package cmd

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"homematch/internal/errs"
	"homematch/internal/usecase/board"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Terminal console commands",
}

var consoleBoardCmd = &cobra.Command{
	Use:   "board",
	Short: "Start the operator board (jobs, quotes and matches)",
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = 5 * time.Second
		}

		model := board.NewModel(cmd.Context(), svc.Board, svc.Matching, board.Options{
			Status:          status,
			Limit:           limit,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run operator board")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.AddCommand(consoleBoardCmd)
	consoleBoardCmd.Flags().String("status", "", "Optional status filter (open|matched|active|completed|cancelled)")
	consoleBoardCmd.Flags().Int("limit", 30, "Maximum jobs shown")
	consoleBoardCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
}
