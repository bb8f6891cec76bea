package board

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"homematch/internal/domain/marketplace"
	"homematch/internal/infrastructure/persistence/gormdb/model"
	"homematch/internal/infrastructure/persistence/gormdb/repository"
	"homematch/internal/usecase/matching"
)

type stubMatcher struct {
	report matching.Report
	err    error
	jobs   []string
}

func (s *stubMatcher) MatchJob(_ context.Context, jobID string) (matching.Report, error) {
	s.jobs = append(s.jobs, jobID)
	s.report.JobID = jobID
	return s.report, s.err
}

func TestReaderRowsCountQuotesAndMatches(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "board.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	repo := repository.NewMarketplaceRepository(db)
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"j1", "j2"} {
		if _, err := repo.CreateJob(ctx, marketplace.Job{
			ID: id, HomeownerID: "h1", Category: "plumbing", Title: id, Zip: "94110",
			Urgency: marketplace.UrgencyASAP, Status: marketplace.JobOpen,
			CreatedAt: at.Add(time.Duration(i) * time.Minute), UpdatedAt: at,
		}); err != nil {
			t.Fatalf("CreateJob(%s) error = %v", id, err)
		}
	}
	for _, q := range []marketplace.Quote{
		{ID: "q1", JobID: "j1", ContractorID: "c1", AmountCents: 100, Status: marketplace.QuotePending, CreatedAt: at, UpdatedAt: at},
		{ID: "q2", JobID: "j1", ContractorID: "c2", AmountCents: 200, Status: marketplace.QuotePending, CreatedAt: at, UpdatedAt: at},
	} {
		if _, err := repo.CreateQuote(ctx, q); err != nil {
			t.Fatalf("CreateQuote(%s) error = %v", q.ID, err)
		}
	}
	if _, err := repo.InsertMatch(ctx, marketplace.Match{ID: "m1", JobID: "j2", ContractorID: "c1", Slot: 1, Reason: "close by", CreatedAt: at}); err != nil {
		t.Fatalf("InsertMatch() error = %v", err)
	}

	reader := NewReader(repo, repo, repo)
	rows, err := reader.Rows(ctx, marketplace.JobOpen, 10)
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	if len(rows) != 2 || rows[0].Job.ID != "j2" {
		t.Fatalf("rows = %+v, want newest first", rows)
	}
	if rows[0].Matches != 1 || rows[0].Quotes != 0 || rows[1].Quotes != 2 || rows[1].Matches != 0 {
		t.Fatalf("counts = %+v", rows)
	}

	detail, err := reader.Detail(ctx, "j1")
	if err != nil {
		t.Fatalf("Detail() error = %v", err)
	}
	if len(detail.Quotes) != 2 || len(detail.Matches) != 0 {
		t.Fatalf("detail = %+v", detail)
	}
}

func TestDetailLoadedIgnoresStaleSelection(t *testing.T) {
	m := &boardModel{
		ctx:           context.Background(),
		rows:          []Row{{Job: marketplace.Job{ID: "j1"}}, {Job: marketplace.Job{ID: "j2"}}},
		selectedIndex: 1,
	}

	next, _ := m.Update(detailLoadedMsg{jobID: "j1", detail: Detail{Job: marketplace.Job{ID: "j1"}}})
	updated := next.(*boardModel)
	if updated.hasDetail {
		t.Fatalf("stale detail should be ignored")
	}

	next, _ = updated.Update(detailLoadedMsg{jobID: "j2", detail: Detail{Job: marketplace.Job{ID: "j2"}}})
	updated = next.(*boardModel)
	if !updated.hasDetail || updated.detail.Job.ID != "j2" {
		t.Fatalf("current detail should be applied: %+v", updated.detail)
	}
}

func TestRowsLoadedClampsSelection(t *testing.T) {
	m := &boardModel{ctx: context.Background(), selectedIndex: 5}
	next, cmd := m.Update(rowsLoadedMsg{rows: []Row{{Job: marketplace.Job{ID: "j1"}}}})
	updated := next.(*boardModel)
	if updated.selectedIndex != 0 {
		t.Fatalf("selectedIndex = %d, want 0", updated.selectedIndex)
	}
	if cmd == nil {
		t.Fatalf("expected detail load command")
	}

	next, _ = updated.Update(rowsLoadedMsg{err: errors.New("db down")})
	if msg := next.(*boardModel).message; !strings.Contains(msg, "db down") {
		t.Fatalf("message = %q", msg)
	}
}

func TestFilterKeyCyclesStatus(t *testing.T) {
	m := NewModel(context.Background(), NewReader(nil, nil, nil), nil, Options{Status: "open"}).(*boardModel)
	if m.status != marketplace.JobOpen {
		t.Fatalf("status = %q", m.status)
	}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	if got := next.(*boardModel).status; got != marketplace.JobMatched {
		t.Fatalf("status after f = %q, want matched", got)
	}
	if got := nextStatus(marketplace.JobCancelled); got != "" {
		t.Fatalf("nextStatus(cancelled) = %q, want all", got)
	}
}

func TestRematchKeyRunsMatcher(t *testing.T) {
	matcher := &stubMatcher{report: matching.Report{Outcome: marketplace.MatchOutcomeSkipped, Reason: "no candidates"}}
	m := &boardModel{
		ctx:     context.Background(),
		matcher: matcher,
		rows:    []Row{{Job: marketplace.Job{ID: "job-123456789"}}},
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	if cmd == nil {
		t.Fatalf("expected rematch command")
	}
	msg := cmd()
	done, ok := msg.(rematchDoneMsg)
	if !ok {
		t.Fatalf("msg = %T, want rematchDoneMsg", msg)
	}
	if len(matcher.jobs) != 1 || matcher.jobs[0] != "job-123456789" {
		t.Fatalf("matched jobs = %v", matcher.jobs)
	}

	m.source = NewReader(nil, nil, nil)
	next, _ := m.Update(done)
	view := next.View()
	if !strings.Contains(view, "rematch job-1234: skipped (no candidates)") {
		t.Fatalf("view missing action line: %s", view)
	}
}

func TestViewShowsDetailSections(t *testing.T) {
	m := &boardModel{
		ctx:       context.Background(),
		rows:      []Row{{Job: marketplace.Job{ID: "j1", Status: marketplace.JobMatched, Category: "plumbing"}, Quotes: 2, Matches: 3}},
		hasDetail: true,
		detail: Detail{
			Job:     marketplace.Job{ID: "j1", Status: marketplace.JobMatched, PriceMinCents: 10000, PriceMaxCents: 25000},
			Quotes:  []marketplace.Quote{{ContractorID: "c1", AmountCents: 20000, Status: marketplace.QuoteAccepted}},
			Matches: []marketplace.Match{{Slot: 1, ContractorID: "c2", Reason: "top rated"}},
		},
	}

	view := m.View()
	for _, want := range []string{"quotes=2 matches=3", "Budget: $100.00 - $250.00", "- #1 c2 top rated", "- c1 $200.00 accepted", "Match runs:\n- none"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "m rematch") {
		t.Fatalf("rematch key shown without matcher")
	}
}
