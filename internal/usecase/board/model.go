package board

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/marketplace"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
	"homematch/internal/usecase/matching"
)

const (
	maxShownRuns   = 3
	maxActionLines = 6
	defaultLimit   = 30
)

var statusCycle = []marketplace.JobStatus{
	"",
	marketplace.JobOpen,
	marketplace.JobMatched,
	marketplace.JobActive,
	marketplace.JobCompleted,
	marketplace.JobCancelled,
}

type Options struct {
	Status          string
	Limit           int
	RefreshInterval time.Duration
}

type source interface {
	Rows(ctx context.Context, status marketplace.JobStatus, limit int) ([]Row, error)
	Detail(ctx context.Context, jobID string) (Detail, error)
}

type rematcher interface {
	MatchJob(ctx context.Context, jobID string) (matching.Report, error)
}

type boardModel struct {
	ctx             context.Context
	source          source
	matcher         rematcher
	status          marketplace.JobStatus
	limit           int
	refreshInterval time.Duration

	rows          []Row
	selectedIndex int
	detail        Detail
	hasDetail     bool
	message       string
	actions       []string
}

type rowsLoadedMsg struct {
	rows []Row
	err  error
}

type detailLoadedMsg struct {
	jobID  string
	detail Detail
	err    error
}

type rematchDoneMsg struct {
	jobID  string
	report matching.Report
	err    error
}

type tickMsg struct{}

// NewModel builds the operator board. matcher may be nil, which disables the
// rematch key.
func NewModel(ctx context.Context, reader source, matcher rematcher, options Options) tea.Model {
	status, err := marketplace.ParseJobStatus(options.Status)
	if err != nil {
		status = ""
	}
	limit := options.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &boardModel{
		ctx:             ctx,
		source:          reader,
		matcher:         matcher,
		status:          status,
		limit:           limit,
		refreshInterval: interval,
		message:         "loading",
	}
}

func (m *boardModel) Init() tea.Cmd {
	return tea.Batch(m.loadRowsCmd(), m.tickCmd())
}

func (m *boardModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadRowsCmd(), m.tickCmd())
	case rowsLoadedMsg:
		if msg.err != nil {
			m.message = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.rows = msg.rows
		if len(m.rows) == 0 {
			m.selectedIndex = 0
			m.hasDetail = false
			m.message = "no jobs"
			return m, nil
		}
		if m.selectedIndex >= len(m.rows) {
			m.selectedIndex = len(m.rows) - 1
		}
		m.message = fmt.Sprintf("refreshed, %d jobs", len(m.rows))
		return m, m.loadDetailCmd()
	case detailLoadedMsg:
		if !m.isSelected(msg.jobID) {
			return m, nil
		}
		if msg.err != nil {
			m.hasDetail = false
			m.message = "detail failed: " + msg.err.Error()
			return m, nil
		}
		m.detail = msg.detail
		m.hasDetail = true
		return m, nil
	case rematchDoneMsg:
		line := fmt.Sprintf("rematch %s: %s", shortID(msg.jobID), msg.report.Outcome)
		if msg.err != nil {
			line = fmt.Sprintf("rematch %s failed: %v", shortID(msg.jobID), msg.err)
		} else if msg.report.Reason != "" {
			line += " (" + msg.report.Reason + ")"
		}
		m.appendAction(line)
		m.message = line
		return m, m.loadRowsCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.message = "refreshing"
			return m, m.loadRowsCmd()
		case "f":
			m.status = nextStatus(m.status)
			m.selectedIndex = 0
			m.hasDetail = false
			return m, m.loadRowsCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadDetailCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.rows)-1 {
				m.selectedIndex++
				return m, m.loadDetailCmd()
			}
			return m, nil
		case "m":
			return m, m.rematchCmd()
		}
	}
	return m, nil
}

func (m *boardModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var b strings.Builder
	b.WriteString(titleStyle.Render("Marketplace Board"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("status=%s limit=%d refresh=%s", firstNonEmpty(string(m.status), "all"), m.limit, m.refreshInterval)))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Jobs"))
	b.WriteString("\n")
	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("- no jobs"))
		b.WriteString("\n\n")
	} else {
		for i, row := range m.rows {
			line := fmt.Sprintf("%s [%s] %s zip=%s quotes=%d matches=%d %s",
				shortID(row.Job.ID), row.Job.Status, row.Job.Category, row.Job.Zip, row.Quotes, row.Matches, row.Job.Title)
			if i == m.selectedIndex {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("Detail"))
	b.WriteString("\n")
	if !m.hasDetail {
		b.WriteString(dimStyle.Render("- no detail"))
		b.WriteString("\n\n")
	} else {
		job := m.detail.Job
		fmt.Fprintf(&b, "Job: %s\n", job.ID)
		fmt.Fprintf(&b, "Status: %s  Urgency: %s  Homeowner: %s\n", job.Status, job.Urgency, job.HomeownerID)
		if job.PriceMaxCents > 0 {
			fmt.Fprintf(&b, "Budget: %s - %s\n", pricing.FormatCents(job.PriceMinCents), pricing.FormatCents(job.PriceMaxCents))
		}
		if desc := firstLine(job.Description); desc != "" {
			fmt.Fprintf(&b, "Description: %s\n", desc)
		}

		b.WriteString("\nMatches:\n")
		if len(m.detail.Matches) == 0 {
			b.WriteString("- none\n")
		}
		for _, match := range m.detail.Matches {
			fmt.Fprintf(&b, "- #%d %s %s\n", match.Slot, shortID(match.ContractorID), match.Reason)
		}

		b.WriteString("\nQuotes:\n")
		if len(m.detail.Quotes) == 0 {
			b.WriteString("- none\n")
		}
		for _, q := range m.detail.Quotes {
			fmt.Fprintf(&b, "- %s %s %s\n", shortID(q.ContractorID), pricing.FormatCents(q.AmountCents), q.Status)
		}

		b.WriteString("\nMatch runs:\n")
		runs := m.detail.Runs
		if len(runs) == 0 {
			b.WriteString("- none\n")
		}
		start := len(runs) - maxShownRuns
		if start < 0 {
			start = 0
		}
		for _, run := range runs[start:] {
			fmt.Fprintf(&b, "- %s %s candidates=%d %s\n", run.CreatedAt.Format(time.RFC3339), run.Outcome, run.CandidateCount, run.Reason)
		}
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("Status"))
	b.WriteString("\n")
	b.WriteString("- " + firstNonEmpty(m.message, "ready"))
	b.WriteString("\n\n")

	if len(m.actions) > 0 {
		b.WriteString(sectionStyle.Render("Actions"))
		b.WriteString("\n")
		for _, line := range m.actions {
			b.WriteString("- " + line + "\n")
		}
		b.WriteString("\n")
	}

	keys := "Keys: up/k down/j move  g refresh  f filter  q quit"
	if m.matcher != nil {
		keys = "Keys: up/k down/j move  g refresh  f filter  m rematch  q quit"
	}
	b.WriteString(dimStyle.Render(keys))
	return b.String()
}

func (m *boardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *boardModel) loadRowsCmd() tea.Cmd {
	status, limit := m.status, m.limit
	return func() tea.Msg {
		rows, err := m.source.Rows(m.ctx, status, limit)
		return rowsLoadedMsg{rows: rows, err: err}
	}
}

func (m *boardModel) loadDetailCmd() tea.Cmd {
	jobID, ok := m.selectedJobID()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		detail, err := m.source.Detail(m.ctx, jobID)
		return detailLoadedMsg{jobID: jobID, detail: detail, err: err}
	}
}

func (m *boardModel) rematchCmd() tea.Cmd {
	if m.matcher == nil {
		m.message = "matching is not configured"
		return nil
	}
	jobID, ok := m.selectedJobID()
	if !ok {
		return nil
	}
	m.message = "matching " + shortID(jobID)
	return func() tea.Msg {
		report, err := m.matcher.MatchJob(m.ctx, jobID)
		if err != nil {
			logging.Warn(m.ctx, "board rematch failed", slog.String("job_id", jobID), slog.Any("err", errs.Loggable(err)))
		}
		return rematchDoneMsg{jobID: jobID, report: report, err: err}
	}
}

func (m *boardModel) selectedJobID() (string, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.rows) {
		return "", false
	}
	return m.rows[m.selectedIndex].Job.ID, true
}

func (m *boardModel) isSelected(jobID string) bool {
	current, ok := m.selectedJobID()
	return ok && current == jobID
}

func (m *boardModel) appendAction(line string) {
	stamp := time.Now().Format("15:04:05")
	m.actions = append(m.actions, stamp+" "+line)
	if len(m.actions) > maxActionLines {
		m.actions = m.actions[len(m.actions)-maxActionLines:]
	}
}

func nextStatus(current marketplace.JobStatus) marketplace.JobStatus {
	for i, st := range statusCycle {
		if st == current {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstLine(body string) string {
	body = strings.TrimSpace(body)
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		return strings.TrimSpace(body[:i])
	}
	return body
}
