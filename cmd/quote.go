package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
	"homematch/internal/usecase/lifecycle"
)

const (
	promptYes = "Yes"
	promptNo  = "No"
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Submit, accept and list quotes",
}

var quoteSubmitCmd = &cobra.Command{
	Use:   "submit <job-id>",
	Short: "Submit a quote on an open job as a contractor",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		ctx := cmd.Context()

		user, err := requiredFlag(cmd, "user")
		if err != nil {
			return err
		}
		amount, _ := cmd.Flags().GetInt64("amount")
		availability, _ := cmd.Flags().GetString("availability")
		message, _ := cmd.Flags().GetString("message")

		quote, err := svc.Lifecycle.SubmitQuote(ctx, lifecycle.SubmitQuoteInput{
			JobID:        cmd.Flags().Arg(0),
			ActorUserID:  user,
			AmountCents:  amount,
			Availability: availability,
			Message:      message,
		})
		if err != nil {
			logging.Error(ctx, "submit quote failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "submit quote")
		}

		return render(cmd, quote, func(w io.Writer) error {
			return rows(w,
				[]string{"id", quote.ID},
				[]string{"job", quote.JobID},
				[]string{"amount", pricing.FormatCents(quote.AmountCents)},
				[]string{"you receive", pricing.FormatCents(svc.Pricing.ContractorPayout(quote.AmountCents))},
				[]string{"status", string(quote.Status)},
			)
		})
	}),
}

var quoteAcceptCmd = &cobra.Command{
	Use:   "accept <quote-id>",
	Short: "Accept a quote as the job's homeowner; other pending quotes are rejected",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		ctx := cmd.Context()

		user, err := requiredFlag(cmd, "user")
		if err != nil {
			return err
		}
		quoteID := cmd.Flags().Arg(0)

		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			quote, err := svc.Lifecycle.GetQuote(ctx, quoteID)
			if err != nil {
				return errs.Wrap(err, "load quote")
			}
			confirmed, err := confirm(fmt.Sprintf("Accept %s from %s for job %s?",
				pricing.FormatCents(quote.AmountCents), quote.ContractorID, quote.JobID))
			if err != nil {
				return err
			}
			if !confirmed {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "not accepted")
				return err
			}
		}

		result, err := svc.Lifecycle.AcceptQuote(ctx, lifecycle.AcceptQuoteInput{QuoteID: quoteID, ActorUserID: user})
		if err != nil {
			logging.Error(ctx, "accept quote failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "accept quote")
		}

		return render(cmd, result, func(w io.Writer) error {
			if result.AlreadyAccepted {
				return rows(w, []string{"quote", result.Quote.ID}, []string{"status", "already accepted"})
			}
			if err := rows(w,
				[]string{"quote", result.Quote.ID},
				[]string{"status", string(result.Quote.Status)},
				[]string{"job", result.Job.ID + " (" + string(result.Job.Status) + ")"},
			); err != nil {
				return err
			}
			for _, q := range result.Rejected {
				if err := rows(w, []string{"rejected", q.ID + " " + pricing.FormatCents(q.AmountCents)}); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

var quoteListCmd = &cobra.Command{
	Use:   "list <job-id>",
	Short: "List the quotes on a job",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *services) error {
		quotes, err := svc.Lifecycle.ListQuotes(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			return errs.Wrap(err, "list quotes")
		}
		return render(cmd, quotes, func(w io.Writer) error {
			if err := rows(w, []string{"id", "contractor", "amount", "status", "created"}); err != nil {
				return err
			}
			for _, q := range quotes {
				if err := rows(w, []string{q.ID, q.ContractorID, pricing.FormatCents(q.AmountCents), string(q.Status), q.CreatedAt.Format(time.RFC3339)}); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

func confirm(label string) (bool, error) {
	prompt := promptui.Select{
		Label: label,
		Items: []string{promptYes, promptNo},
	}
	_, selected, err := prompt.Run()
	if err != nil {
		return false, errs.Wrap(err, "confirm")
	}
	return selected == promptYes, nil
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.AddCommand(quoteSubmitCmd, quoteAcceptCmd, quoteListCmd)

	quoteSubmitCmd.Flags().String("user", "", "Contractor user id")
	quoteSubmitCmd.Flags().Int64("amount", 0, "Quote amount in cents")
	quoteSubmitCmd.Flags().String("availability", "", "When the contractor can start")
	quoteSubmitCmd.Flags().String("message", "", "Note to the homeowner")

	quoteAcceptCmd.Flags().String("user", "", "Homeowner user id")
	quoteAcceptCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}
