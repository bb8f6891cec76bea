package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/infrastructure/notify"
	"homematch/internal/infrastructure/persistence/gormdb/model"
	"homematch/internal/infrastructure/persistence/gormdb/repository"
	"homematch/internal/infrastructure/persistence/gormdb/uow"
	"homematch/internal/ports"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, jobID)
}

type lifecycleFixture struct {
	repo       *repository.MarketplaceRepository
	notifier   *notify.Recorder
	dispatcher *recordingDispatcher
	svc        *Service
	seq        int
}

var fixtureTime = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func setupLifecycle(t *testing.T) *lifecycleFixture {
	t.Helper()
	return newLifecycleFixture(t, openLifecycleDB(t, filepath.Join(t.TempDir(), "lifecycle.sqlite"), 1))
}

func openLifecycleDB(t *testing.T, dsn string, maxOpen int) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func newLifecycleFixture(t *testing.T, db *gorm.DB) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		repo:       repository.NewMarketplaceRepository(db),
		notifier:   notify.NewRecorder(nil),
		dispatcher: &recordingDispatcher{},
	}
	f.svc = NewService(f.repo, f.repo, f.repo, f.repo, uow.NewUnitOfWork(db), nil, f.dispatcher, f.notifier)
	f.svc.now = func() time.Time { return fixtureTime }
	return f
}

func (f *lifecycleFixture) contractor(t *testing.T, userID string, zips ...string) marketplace.Contractor {
	t.Helper()
	c, err := f.svc.RegisterContractor(context.Background(), RegisterContractorInput{
		UserID:       userID,
		FullName:     "Contractor " + userID,
		PrimaryTrade: "plumbing",
		ServiceZips:  zips,
	})
	if err != nil {
		t.Fatalf("RegisterContractor(%s) error = %v", userID, err)
	}
	return c
}

func (f *lifecycleFixture) openJob(t *testing.T, homeownerID string) marketplace.Job {
	t.Helper()
	job, err := f.svc.PostJob(context.Background(), PostJobInput{
		HomeownerID: homeownerID,
		Category:    "plumbing",
		Description: "Kitchen sink leaks",
		Urgency:     "asap",
		Zip:         "94110",
	})
	if err != nil {
		t.Fatalf("PostJob() error = %v", err)
	}
	return job
}

func (f *lifecycleFixture) quote(t *testing.T, jobID, userID string, cents int64) marketplace.Quote {
	t.Helper()
	q, err := f.svc.SubmitQuote(context.Background(), SubmitQuoteInput{JobID: jobID, ActorUserID: userID, AmountCents: cents})
	if err != nil {
		t.Fatalf("SubmitQuote(%s) error = %v", userID, err)
	}
	return q
}

func quoteStatuses(t *testing.T, f *lifecycleFixture, jobID string) map[string]marketplace.QuoteStatus {
	t.Helper()
	quotes, err := f.svc.ListQuotes(context.Background(), jobID)
	if err != nil {
		t.Fatalf("ListQuotes() error = %v", err)
	}
	out := make(map[string]marketplace.QuoteStatus, len(quotes))
	for _, q := range quotes {
		out[q.ID] = q.Status
	}
	return out
}

func TestPostJobValidatesAndDispatches(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()

	_, err := f.svc.PostJob(ctx, PostJobInput{HomeownerID: "h1", Category: "plumbing", Zip: "9411"})
	if errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("PostJob(bad zip) kind = %q, err = %v", errs.KindOf(err), err)
	}
	_, err = f.svc.PostJob(ctx, PostJobInput{HomeownerID: "h1", Category: "plumbing", Zip: "94110", PriceMinCents: 500, PriceMaxCents: 100})
	if errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("PostJob(bad range) kind = %q, err = %v", errs.KindOf(err), err)
	}
	_, err = f.svc.PostJob(ctx, PostJobInput{HomeownerID: "h1", Category: "plumbing", Zip: "94110", Urgency: "someday"})
	if errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("PostJob(bad urgency) kind = %q, err = %v", errs.KindOf(err), err)
	}

	job := f.openJob(t, "h1")
	if job.Status != marketplace.JobOpen {
		t.Fatalf("status = %q, want open", job.Status)
	}
	if job.Title != "Plumbing" {
		t.Fatalf("title = %q, want catalogue label", job.Title)
	}
	if len(f.dispatcher.ids) != 1 || f.dispatcher.ids[0] != job.ID {
		t.Fatalf("dispatched = %v, want [%s]", f.dispatcher.ids, job.ID)
	}
}

func TestSubmitQuoteRules(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()
	f.contractor(t, "u-c1", "94110")
	job := f.openJob(t, "h1")

	if _, err := f.svc.SubmitQuote(ctx, SubmitQuoteInput{JobID: job.ID, ActorUserID: "u-c1", AmountCents: 0}); errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("SubmitQuote(0) err = %v, want validation", err)
	}
	if _, err := f.svc.SubmitQuote(ctx, SubmitQuoteInput{JobID: job.ID, ActorUserID: "u-c1", AmountCents: marketplace.MaxQuoteAmountCents + 1}); errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("SubmitQuote(too large) err = %v, want validation", err)
	}
	if _, err := f.svc.SubmitQuote(ctx, SubmitQuoteInput{JobID: job.ID, ActorUserID: "nobody", AmountCents: 100}); errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("SubmitQuote(unknown contractor) err = %v, want not found", err)
	}
	if _, err := f.svc.SubmitQuote(ctx, SubmitQuoteInput{JobID: "missing", ActorUserID: "u-c1", AmountCents: 100}); errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("SubmitQuote(unknown job) err = %v, want not found", err)
	}

	q := f.quote(t, job.ID, "u-c1", 15000)
	if q.Status != marketplace.QuotePending {
		t.Fatalf("status = %q, want pending", q.Status)
	}

	_, err := f.svc.SubmitQuote(ctx, SubmitQuoteInput{JobID: job.ID, ActorUserID: "u-c1", AmountCents: 14000})
	if !errs.IsCode(err, errs.CodeDuplicateQuote) {
		t.Fatalf("SubmitQuote(duplicate) err = %v, want DuplicateQuote", err)
	}

	names := f.notifier.Names()
	if len(names) != 1 || names[0] != marketplace.EventQuoteSubmitted {
		t.Fatalf("events = %v", names)
	}
	if got := f.notifier.Events()[0].Payload["payout_cents"]; got != int64(13050) {
		t.Fatalf("payout_cents = %v, want 13050", got)
	}
}

func TestRejectedContractorCannotQuote(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()
	c := f.contractor(t, "u-c9", "94110")
	job := f.openJob(t, "h1")

	if _, err := f.svc.SetVerification(ctx, c.ID, "rejected"); err != nil {
		t.Fatalf("SetVerification() error = %v", err)
	}
	_, err := f.svc.SubmitQuote(ctx, SubmitQuoteInput{JobID: job.ID, ActorUserID: "u-c9", AmountCents: 9000})
	if errs.KindOf(err) != errs.KindForbidden {
		t.Fatalf("SubmitQuote() err = %v, want forbidden", err)
	}
}

func TestAcceptQuoteCascade(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()
	f.contractor(t, "u-c1")
	f.contractor(t, "u-c2")
	c3 := f.contractor(t, "u-c3")
	job := f.openJob(t, "h1")

	q1 := f.quote(t, job.ID, "u-c1", 20000)
	q2 := f.quote(t, job.ID, "u-c2", 21000)
	q3, err := f.repo.CreateQuote(ctx, marketplace.Quote{
		ID: "q3", JobID: job.ID, ContractorID: c3.ID, AmountCents: 19000,
		Status: marketplace.QuoteRejected, CreatedAt: fixtureTime, UpdatedAt: fixtureTime.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateQuote(q3) error = %v", err)
	}

	f.svc.now = func() time.Time { return fixtureTime.Add(time.Hour) }
	result, err := f.svc.AcceptQuote(ctx, AcceptQuoteInput{QuoteID: q1.ID, ActorUserID: "h1"})
	if err != nil {
		t.Fatalf("AcceptQuote() error = %v", err)
	}
	if result.Job.Status != marketplace.JobMatched || result.Quote.Status != marketplace.QuoteAccepted {
		t.Fatalf("result = %+v", result)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].ID != q2.ID {
		t.Fatalf("rejected = %+v, want only %s", result.Rejected, q2.ID)
	}

	statuses := quoteStatuses(t, f, job.ID)
	want := map[string]marketplace.QuoteStatus{
		q1.ID: marketplace.QuoteAccepted,
		q2.ID: marketplace.QuoteRejected,
		q3.ID: marketplace.QuoteRejected,
	}
	for id, st := range want {
		if statuses[id] != st {
			t.Fatalf("quote %s status = %q, want %q", id, statuses[id], st)
		}
	}
	untouched, err := f.repo.GetQuote(ctx, q3.ID)
	if err != nil {
		t.Fatalf("GetQuote(q3) error = %v", err)
	}
	if !untouched.UpdatedAt.Equal(fixtureTime.Add(-time.Hour)) {
		t.Fatalf("q3 updated_at = %v, want unchanged", untouched.UpdatedAt)
	}

	stored, err := f.svc.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if stored.Status != marketplace.JobMatched {
		t.Fatalf("job status = %q, want matched", stored.Status)
	}

	again, err := f.svc.AcceptQuote(ctx, AcceptQuoteInput{QuoteID: q1.ID, ActorUserID: "h1"})
	if err != nil {
		t.Fatalf("AcceptQuote(again) error = %v", err)
	}
	if !again.AlreadyAccepted || again.Quote.Status != marketplace.QuoteAccepted {
		t.Fatalf("AcceptQuote(again) = %+v, want no-op", again)
	}

	_, err = f.svc.AcceptQuote(ctx, AcceptQuoteInput{QuoteID: q2.ID, ActorUserID: "h1"})
	if !errs.IsCode(err, errs.CodeJobNotOpen) {
		t.Fatalf("AcceptQuote(second quote) err = %v, want JobNotOpen", err)
	}

	accepted := 0
	for _, name := range f.notifier.Names() {
		if name == marketplace.EventQuoteAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("quote.accepted events = %d, want 1", accepted)
	}
}

func TestAcceptQuoteRequiresOwner(t *testing.T) {
	f := setupLifecycle(t)
	f.contractor(t, "u-c1")
	job := f.openJob(t, "h1")
	q := f.quote(t, job.ID, "u-c1", 5000)

	_, err := f.svc.AcceptQuote(context.Background(), AcceptQuoteInput{QuoteID: q.ID, ActorUserID: "h2"})
	if errs.KindOf(err) != errs.KindForbidden {
		t.Fatalf("AcceptQuote(non-owner) err = %v, want forbidden", err)
	}
	if statuses := quoteStatuses(t, f, job.ID); statuses[q.ID] != marketplace.QuotePending {
		t.Fatalf("quote status = %q, want pending", statuses[q.ID])
	}

	_, err = f.svc.AcceptQuote(context.Background(), AcceptQuoteInput{QuoteID: "missing", ActorUserID: "h1"})
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("AcceptQuote(missing) err = %v, want not found", err)
	}
}

func TestConcurrentAcceptsHaveOneWinner(t *testing.T) {
	assertOneAcceptWins(t, setupLifecycle(t))
}

func TestConcurrentAcceptsAcrossConnections(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "lifecycle-pool.sqlite") + "?_pragma=busy_timeout(5000)&_txlock=immediate"
	assertOneAcceptWins(t, newLifecycleFixture(t, openLifecycleDB(t, dsn, 4)))
}

// lostClaimJobs reports every conditional job update as having matched no rows.
type lostClaimJobs struct {
	ports.JobRepository
}

func (lostClaimJobs) UpdateJobStatus(context.Context, string, marketplace.JobStatus, marketplace.JobStatus, time.Time) (bool, error) {
	return false, nil
}

func TestAcceptQuoteLosingJobClaimIsConflict(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()
	f.contractor(t, "u-c1")
	job := f.openJob(t, "h1")
	q := f.quote(t, job.ID, "u-c1", 12000)

	svc := NewService(lostClaimJobs{f.repo}, f.repo, f.repo, f.repo, f.svc.uow, nil, f.dispatcher, f.notifier)
	svc.now = f.svc.now
	before := len(f.notifier.Events())

	_, err := svc.AcceptQuote(ctx, AcceptQuoteInput{QuoteID: q.ID, ActorUserID: "h1"})
	if !errs.IsCode(err, errs.CodeJobNotOpen) || errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("AcceptQuote(lost claim) err = %v, want JobNotOpen conflict", err)
	}
	if statuses := quoteStatuses(t, f, job.ID); statuses[q.ID] != marketplace.QuotePending {
		t.Fatalf("quote status = %q, want pending", statuses[q.ID])
	}
	got, err := f.svc.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != marketplace.JobOpen {
		t.Fatalf("job status = %q, want open", got.Status)
	}
	if after := len(f.notifier.Events()); after != before {
		t.Fatalf("events after lost claim = %d, want %d", after, before)
	}
}

func assertOneAcceptWins(t *testing.T, f *lifecycleFixture) {
	t.Helper()
	ctx := context.Background()
	const bidders = 4
	for i := 0; i < bidders; i++ {
		f.contractor(t, fmt.Sprintf("u-c%d", i))
	}

	for round := 0; round < 3; round++ {
		job := f.openJob(t, "h1")
		quotes := make([]marketplace.Quote, 0, bidders)
		for i := 0; i < bidders; i++ {
			quotes = append(quotes, f.quote(t, job.ID, fmt.Sprintf("u-c%d", i), int64(10000+i)))
		}

		var wg sync.WaitGroup
		results := make([]error, bidders)
		start := make(chan struct{})
		for i, q := range quotes {
			wg.Add(1)
			go func(i int, quoteID string) {
				defer wg.Done()
				<-start
				_, results[i] = f.svc.AcceptQuote(ctx, AcceptQuoteInput{QuoteID: quoteID, ActorUserID: "h1"})
			}(i, q.ID)
		}
		close(start)
		wg.Wait()

		wins := 0
		for i, err := range results {
			if err == nil {
				wins++
				continue
			}
			if errs.KindOf(err) != errs.KindConflict {
				t.Fatalf("round %d accept %d err = %v, want conflict", round, i, err)
			}
		}
		if wins != 1 {
			t.Fatalf("round %d wins = %d, want 1", round, wins)
		}

		accepted := 0
		for _, st := range quoteStatuses(t, f, job.ID) {
			if st == marketplace.QuoteAccepted {
				accepted++
			}
		}
		if accepted != 1 {
			t.Fatalf("round %d accepted quotes = %d, want 1", round, accepted)
		}
	}
}

func TestStartAndCompleteCreditPayout(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()
	c1 := f.contractor(t, "u-c1")
	f.contractor(t, "u-c2")
	job := f.openJob(t, "h1")
	q := f.quote(t, job.ID, "u-c1", 20000)

	if _, err := f.svc.StartJob(ctx, JobActionInput{JobID: job.ID, ActorUserID: "u-c1"}); !errs.IsCode(err, errs.CodeInvalidTransition) {
		t.Fatalf("StartJob(no accepted quote) err = %v, want InvalidTransition", err)
	}
	if _, err := f.svc.AcceptQuote(ctx, AcceptQuoteInput{QuoteID: q.ID, ActorUserID: "h1"}); err != nil {
		t.Fatalf("AcceptQuote() error = %v", err)
	}
	if _, err := f.svc.StartJob(ctx, JobActionInput{JobID: job.ID, ActorUserID: "u-c2"}); errs.KindOf(err) != errs.KindForbidden {
		t.Fatalf("StartJob(other contractor) err = %v, want forbidden", err)
	}

	started, err := f.svc.StartJob(ctx, JobActionInput{JobID: job.ID, ActorUserID: "u-c1"})
	if err != nil {
		t.Fatalf("StartJob() error = %v", err)
	}
	if started.Status != marketplace.JobActive {
		t.Fatalf("status = %q, want active", started.Status)
	}

	done, err := f.svc.CompleteJob(ctx, JobActionInput{JobID: job.ID, ActorUserID: "u-c1"})
	if err != nil {
		t.Fatalf("CompleteJob() error = %v", err)
	}
	if done.Job.Status != marketplace.JobCompleted || done.PayoutCents != 17400 {
		t.Fatalf("CompleteJob() = %+v", done)
	}

	contractor, err := f.svc.GetContractor(ctx, c1.ID)
	if err != nil {
		t.Fatalf("GetContractor() error = %v", err)
	}
	if contractor.TotalEarningsCents != 17400 {
		t.Fatalf("total earnings = %d, want 17400", contractor.TotalEarningsCents)
	}

	if _, err := f.svc.CompleteJob(ctx, JobActionInput{JobID: job.ID, ActorUserID: "u-c1"}); !errs.IsCode(err, errs.CodeInvalidTransition) {
		t.Fatalf("CompleteJob(again) err = %v, want InvalidTransition", err)
	}
	if _, err := f.svc.CancelJob(ctx, JobActionInput{JobID: job.ID, ActorUserID: "h1"}); !errs.IsCode(err, errs.CodeInvalidTransition) {
		t.Fatalf("CancelJob(completed) err = %v, want InvalidTransition", err)
	}
}

func TestCompleteFromMatchedSkipsStart(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()
	f.contractor(t, "u-c1")
	job := f.openJob(t, "h1")
	q := f.quote(t, job.ID, "u-c1", 10000)
	if _, err := f.svc.AcceptQuote(ctx, AcceptQuoteInput{QuoteID: q.ID, ActorUserID: "h1"}); err != nil {
		t.Fatalf("AcceptQuote() error = %v", err)
	}

	done, err := f.svc.CompleteJob(ctx, JobActionInput{JobID: job.ID, ActorUserID: "u-c1"})
	if err != nil {
		t.Fatalf("CompleteJob() error = %v", err)
	}
	if done.Job.CompletedAt == nil {
		t.Fatalf("completed_at not set")
	}
	names := f.notifier.Names()
	if names[len(names)-1] != marketplace.EventJobCompleted {
		t.Fatalf("last event = %q", names[len(names)-1])
	}
}

func TestCancelJob(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()
	job := f.openJob(t, "h1")

	if _, err := f.svc.CancelJob(ctx, JobActionInput{JobID: job.ID, ActorUserID: "h2"}); errs.KindOf(err) != errs.KindForbidden {
		t.Fatalf("CancelJob(non-owner) err = %v, want forbidden", err)
	}
	cancelled, err := f.svc.CancelJob(ctx, JobActionInput{JobID: job.ID, ActorUserID: "h1"})
	if err != nil {
		t.Fatalf("CancelJob() error = %v", err)
	}
	if cancelled.Status != marketplace.JobCancelled {
		t.Fatalf("status = %q", cancelled.Status)
	}
	if _, err := f.svc.CancelJob(ctx, JobActionInput{JobID: job.ID, ActorUserID: "h1"}); !errs.IsCode(err, errs.CodeInvalidTransition) {
		t.Fatalf("CancelJob(again) err = %v, want InvalidTransition", err)
	}
}

func TestRegisterContractor(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()

	c, err := f.svc.RegisterContractor(ctx, RegisterContractorInput{
		UserID:       "u1",
		FullName:     "Dana Pipes",
		PrimaryTrade: "Plumbing",
		TradeTypes:   []string{"hvac", "plumbing", " HVAC "},
		ServiceZips:  []string{"94110", "94112"},
	})
	if err != nil {
		t.Fatalf("RegisterContractor() error = %v", err)
	}
	if c.Verification != marketplace.VerificationPending {
		t.Fatalf("verification = %q, want pending", c.Verification)
	}
	if fmt.Sprint(c.TradeTypes) != "[plumbing hvac]" {
		t.Fatalf("trades = %v", c.TradeTypes)
	}

	_, err = f.svc.RegisterContractor(ctx, RegisterContractorInput{UserID: "u1", FullName: "Again", PrimaryTrade: "plumbing"})
	if !errs.IsCode(err, errs.CodeDuplicateContractor) {
		t.Fatalf("RegisterContractor(duplicate) err = %v", err)
	}
	_, err = f.svc.RegisterContractor(ctx, RegisterContractorInput{
		UserID: "u2", FullName: "Too Far", PrimaryTrade: "plumbing",
		ServiceZips: []string{"10001", "10002", "10003", "10004", "10005", "10006"},
	})
	if errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("RegisterContractor(6 zips) err = %v, want validation", err)
	}

	verified, err := f.svc.SetVerification(ctx, c.ID, "verified")
	if err != nil {
		t.Fatalf("SetVerification() error = %v", err)
	}
	if verified.Verification != marketplace.VerificationVerified {
		t.Fatalf("verification = %q", verified.Verification)
	}
	if _, err := f.svc.SetVerification(ctx, "missing", "verified"); errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("SetVerification(missing) err = %v, want not found", err)
	}
}

func TestContractorFeedPutsMatchesFirst(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()
	c := f.contractor(t, "u-c1", "94110")

	mk := func(id, zip string, age time.Duration) {
		t.Helper()
		_, err := f.repo.CreateJob(ctx, marketplace.Job{
			ID: id, HomeownerID: "h1", Category: "plumbing", Title: id, Zip: zip,
			Urgency: marketplace.UrgencyFlexible, Status: marketplace.JobOpen,
			CreatedAt: fixtureTime.Add(-age), UpdatedAt: fixtureTime.Add(-age),
		})
		if err != nil {
			t.Fatalf("CreateJob(%s) error = %v", id, err)
		}
	}
	mk("j-old", "94110", 3*time.Hour)
	mk("j-new", "94110", time.Hour)
	mk("j-far", "10001", 2*time.Hour)
	mk("j-other-far", "10001", 30*time.Minute)

	for _, m := range []marketplace.Match{
		{ID: "m1", JobID: "j-old", ContractorID: c.ID, Slot: 1, Reason: "closest", CreatedAt: fixtureTime},
		{ID: "m2", JobID: "j-far", ContractorID: c.ID, Slot: 2, Reason: "specialist", CreatedAt: fixtureTime},
	} {
		if _, err := f.repo.InsertMatch(ctx, m); err != nil {
			t.Fatalf("InsertMatch(%s) error = %v", m.ID, err)
		}
	}
	f.quote(t, "j-new", "u-c1", 9000)

	items, err := f.svc.ContractorFeed(ctx, c.ID)
	if err != nil {
		t.Fatalf("ContractorFeed() error = %v", err)
	}
	got := make([]string, 0, len(items))
	for _, it := range items {
		got = append(got, it.Job.ID)
	}
	if fmt.Sprint(got) != "[j-old j-far j-new]" {
		t.Fatalf("feed = %v, want [j-old j-far j-new]", got)
	}
	if !items[0].MatchedForYou || items[0].MatchReason != "closest" || items[1].MatchSlot != 2 {
		t.Fatalf("match annotations = %+v %+v", items[0], items[1])
	}
	if !items[2].AlreadyQuoted || items[0].AlreadyQuoted {
		t.Fatalf("quoted flags = %v %v", items[0].AlreadyQuoted, items[2].AlreadyQuoted)
	}
}

func TestEarningsMonthToDate(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()
	c := f.contractor(t, "u-c1")

	for _, q := range []marketplace.Quote{
		{ID: "q-may", JobID: "j1", ContractorID: c.ID, AmountCents: 20000, Status: marketplace.QuoteAccepted, CreatedAt: time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)},
		{ID: "q-apr", JobID: "j2", ContractorID: c.ID, AmountCents: 10000, Status: marketplace.QuoteAccepted, CreatedAt: time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)},
		{ID: "q-pending", JobID: "j3", ContractorID: c.ID, AmountCents: 5000, Status: marketplace.QuotePending, CreatedAt: time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)},
	} {
		q.UpdatedAt = q.CreatedAt
		if _, err := f.repo.CreateQuote(ctx, q); err != nil {
			t.Fatalf("CreateQuote(%s) error = %v", q.ID, err)
		}
	}
	if err := f.repo.AddEarnings(ctx, c.ID, 26100); err != nil {
		t.Fatalf("AddEarnings() error = %v", err)
	}

	e, err := f.svc.Earnings(ctx, c.ID)
	if err != nil {
		t.Fatalf("Earnings() error = %v", err)
	}
	if e.MonthToDateCents != 17400 || e.AcceptedThisMonth != 1 {
		t.Fatalf("month to date = %+v", e)
	}
	if e.AllTimeCents != 26100 {
		t.Fatalf("all time = %d", e.AllTimeCents)
	}
	if !e.MonthStart.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("month start = %v", e.MonthStart)
	}
}

func TestContractorQuotesAndActiveJobs(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()
	c1 := f.contractor(t, "u-c1")
	c2 := f.contractor(t, "u-c2")

	none, err := f.svc.ContractorQuotes(ctx, c1.ID)
	if err != nil {
		t.Fatalf("ContractorQuotes() error = %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("ContractorQuotes(no quotes) = %#v, want empty", none)
	}

	job := f.openJob(t, "h1")
	q1 := f.quote(t, job.ID, "u-c1", 15000)
	f.quote(t, job.ID, "u-c2", 16000)

	quotes, err := f.svc.ContractorQuotes(ctx, c1.ID)
	if err != nil {
		t.Fatalf("ContractorQuotes() error = %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("ContractorQuotes() len = %d, want 1", len(quotes))
	}
	got := quotes[0]
	if got.Quote.ID != q1.ID || got.JobTitle != job.Title || got.JobCategory != "plumbing" || got.JobStatus != marketplace.JobOpen {
		t.Fatalf("ContractorQuotes()[0] = %+v", got)
	}
	if got.PayoutCents != 13050 {
		t.Fatalf("payout = %d, want 13050", got.PayoutCents)
	}

	if _, err := f.svc.AcceptQuote(ctx, AcceptQuoteInput{QuoteID: q1.ID, ActorUserID: "h1"}); err != nil {
		t.Fatalf("AcceptQuote() error = %v", err)
	}
	active, err := f.svc.ContractorActiveJobs(ctx, c1.ID)
	if err != nil {
		t.Fatalf("ContractorActiveJobs() error = %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("matched job listed as active: %v", active)
	}

	if _, err := f.svc.StartJob(ctx, JobActionInput{JobID: job.ID, ActorUserID: "u-c1"}); err != nil {
		t.Fatalf("StartJob() error = %v", err)
	}
	active, err = f.svc.ContractorActiveJobs(ctx, c1.ID)
	if err != nil {
		t.Fatalf("ContractorActiveJobs() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != job.ID || active[0].Status != marketplace.JobActive {
		t.Fatalf("ContractorActiveJobs() = %+v", active)
	}

	lost, err := f.svc.ContractorActiveJobs(ctx, c2.ID)
	if err != nil {
		t.Fatalf("ContractorActiveJobs(c2) error = %v", err)
	}
	if len(lost) != 0 {
		t.Fatalf("rejected bidder holds jobs: %+v", lost)
	}
	c2Quotes, err := f.svc.ContractorQuotes(ctx, c2.ID)
	if err != nil {
		t.Fatalf("ContractorQuotes(c2) error = %v", err)
	}
	if len(c2Quotes) != 1 || c2Quotes[0].Quote.Status != marketplace.QuoteRejected || c2Quotes[0].JobStatus != marketplace.JobActive {
		t.Fatalf("ContractorQuotes(c2) = %+v", c2Quotes)
	}

	if _, err := f.svc.ContractorQuotes(ctx, "missing"); errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("ContractorQuotes(missing) err = %v, want not found", err)
	}
	if _, err := f.svc.ContractorActiveJobs(ctx, "missing"); errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("ContractorActiveJobs(missing) err = %v, want not found", err)
	}
}
