package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"homematch/internal/domain/marketplace"
	"homematch/internal/infrastructure/persistence/gormdb/model"
	"homematch/internal/infrastructure/persistence/gormdb/uow"
	"homematch/internal/ports"
)

func setupRepository(t *testing.T) (*MarketplaceRepository, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "homematch.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewMarketplaceRepository(db), db
}

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func seedContractor(t *testing.T, repo *MarketplaceRepository, id string, offset int, trades []string, zips []string) marketplace.Contractor {
	t.Helper()
	c, err := repo.CreateContractor(context.Background(), marketplace.Contractor{
		ID:           id,
		UserID:       "user-" + id,
		FullName:     "Contractor " + id,
		PrimaryTrade: trades[0],
		TradeTypes:   trades,
		ServiceZips:  zips,
		Verification: marketplace.VerificationPending,
		CreatedAt:    baseTime.Add(time.Duration(offset) * time.Minute),
	})
	if err != nil {
		t.Fatalf("CreateContractor(%s) error = %v", id, err)
	}
	return c
}

func seedJob(t *testing.T, repo *MarketplaceRepository, id string, homeowner string, status marketplace.JobStatus) marketplace.Job {
	t.Helper()
	job, err := repo.CreateJob(context.Background(), marketplace.Job{
		ID:          id,
		HomeownerID: homeowner,
		Category:    "plumbing",
		Title:       "Leaky tap",
		Description: "kitchen tap drips",
		Zip:         "94110",
		Urgency:     marketplace.UrgencyASAP,
		Status:      status,
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
	})
	if err != nil {
		t.Fatalf("CreateJob(%s) error = %v", id, err)
	}
	return job
}

func seedQuote(t *testing.T, repo *MarketplaceRepository, id, jobID, contractorID string, status marketplace.QuoteStatus) marketplace.Quote {
	t.Helper()
	q, err := repo.CreateQuote(context.Background(), marketplace.Quote{
		ID:           id,
		JobID:        jobID,
		ContractorID: contractorID,
		AmountCents:  20000,
		Status:       status,
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	})
	if err != nil {
		t.Fatalf("CreateQuote(%s) error = %v", id, err)
	}
	return q
}

func TestContractorQueriesByTradeAndZip(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	seedContractor(t, repo, "c3", 3, []string{"plumbing"}, []string{"94110"})
	seedContractor(t, repo, "c1", 1, []string{"plumbing", "hvac"}, []string{"94110", "94103"})
	seedContractor(t, repo, "c2", 2, []string{"plumbing"}, []string{"10001"})
	seedContractor(t, repo, "c4", 4, []string{"painting"}, []string{"94110"})

	both, err := repo.ListContractorsByTradeAndZip(ctx, "plumbing", "94110")
	if err != nil {
		t.Fatalf("ListContractorsByTradeAndZip() error = %v", err)
	}
	if len(both) != 2 || both[0].ID != "c1" || both[1].ID != "c3" {
		t.Fatalf("ListContractorsByTradeAndZip() = %#v", both)
	}
	if len(both[0].TradeTypes) != 2 || both[0].TradeTypes[1] != "hvac" {
		t.Fatalf("trade types = %#v", both[0].TradeTypes)
	}

	trade, err := repo.ListContractorsByTrade(ctx, "plumbing")
	if err != nil {
		t.Fatalf("ListContractorsByTrade() error = %v", err)
	}
	if len(trade) != 3 || trade[0].ID != "c1" || trade[1].ID != "c2" || trade[2].ID != "c3" {
		t.Fatalf("ListContractorsByTrade() = %#v", trade)
	}

	byUser, err := repo.GetContractorByUserID(ctx, "user-c2")
	if err != nil || byUser.ID != "c2" {
		t.Fatalf("GetContractorByUserID() = %#v, %v", byUser, err)
	}
	if _, err := repo.GetContractor(ctx, "missing"); !errors.Is(err, ports.ErrContractorNotFound) {
		t.Fatalf("GetContractor() error = %v, want ErrContractorNotFound", err)
	}
}

func TestContractorStatsAndEarnings(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	seedContractor(t, repo, "c1", 0, []string{"plumbing"}, nil)

	if err := repo.UpdateRatingStats(ctx, "c1", 4.5, 2); err != nil {
		t.Fatalf("UpdateRatingStats() error = %v", err)
	}
	if err := repo.AddEarnings(ctx, "c1", 17400); err != nil {
		t.Fatalf("AddEarnings() error = %v", err)
	}
	if err := repo.AddEarnings(ctx, "c1", 600); err != nil {
		t.Fatalf("AddEarnings() error = %v", err)
	}
	if err := repo.UpdateVerification(ctx, "c1", marketplace.VerificationVerified); err != nil {
		t.Fatalf("UpdateVerification() error = %v", err)
	}

	got, err := repo.GetContractor(ctx, "c1")
	if err != nil {
		t.Fatalf("GetContractor() error = %v", err)
	}
	if got.RatingAvg == nil || *got.RatingAvg != 4.5 || got.RatingCount != 2 {
		t.Fatalf("rating stats = %v/%d", got.RatingAvg, got.RatingCount)
	}
	if got.TotalEarningsCents != 18000 {
		t.Fatalf("TotalEarningsCents = %d", got.TotalEarningsCents)
	}
	if got.Verification != marketplace.VerificationVerified {
		t.Fatalf("Verification = %q", got.Verification)
	}
	if err := repo.AddEarnings(ctx, "missing", 1); !errors.Is(err, ports.ErrContractorNotFound) {
		t.Fatalf("AddEarnings(missing) error = %v", err)
	}
}

func TestQuoteUniquenessAndConditionalUpdate(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	seedJob(t, repo, "j1", "h1", marketplace.JobOpen)
	seedQuote(t, repo, "q1", "j1", "c1", marketplace.QuotePending)
	seedQuote(t, repo, "q2", "j1", "c2", marketplace.QuotePending)

	_, err := repo.CreateQuote(ctx, marketplace.Quote{
		ID: "q3", JobID: "j1", ContractorID: "c1", AmountCents: 100,
		Status: marketplace.QuotePending, CreatedAt: baseTime, UpdatedAt: baseTime,
	})
	if !errors.Is(err, ports.ErrDuplicateQuote) {
		t.Fatalf("CreateQuote(dup) error = %v, want ErrDuplicateQuote", err)
	}

	ok, err := repo.UpdateQuoteStatus(ctx, "q1", marketplace.QuoteAccepted, marketplace.QuotePending, baseTime)
	if err != nil || !ok {
		t.Fatalf("UpdateQuoteStatus() = %v, %v", ok, err)
	}
	ok, err = repo.UpdateQuoteStatus(ctx, "q1", marketplace.QuoteAccepted, marketplace.QuotePending, baseTime)
	if err != nil || ok {
		t.Fatalf("second UpdateQuoteStatus() = %v, %v, want false", ok, err)
	}

	pending, err := repo.ListPendingQuotesForJob(ctx, "j1", "q1")
	if err != nil {
		t.Fatalf("ListPendingQuotesForJob() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "q2" {
		t.Fatalf("ListPendingQuotesForJob() = %#v", pending)
	}

	accepted, err := repo.GetAcceptedQuoteForJob(ctx, "j1")
	if err != nil || accepted.ID != "q1" {
		t.Fatalf("GetAcceptedQuoteForJob() = %#v, %v", accepted, err)
	}

	found, ok, err := repo.FindQuote(ctx, "j1", "c2")
	if err != nil || !ok || found.ID != "q2" {
		t.Fatalf("FindQuote() = %#v, %v, %v", found, ok, err)
	}

	counts, err := repo.CountQuotesByJob(ctx, []string{"j1", "j-none"})
	if err != nil {
		t.Fatalf("CountQuotesByJob() error = %v", err)
	}
	if counts["j1"] != 2 || counts["j-none"] != 0 {
		t.Fatalf("CountQuotesByJob() = %#v", counts)
	}
}

func TestUpdateJobStatusIsConditional(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	seedJob(t, repo, "j1", "h1", marketplace.JobOpen)

	ok, err := repo.UpdateJobStatus(ctx, "j1", marketplace.JobMatched, marketplace.JobActive, baseTime)
	if err != nil || ok {
		t.Fatalf("UpdateJobStatus(wrong expected) = %v, %v", ok, err)
	}
	ok, err = repo.UpdateJobStatus(ctx, "j1", marketplace.JobMatched, marketplace.JobOpen, baseTime)
	if err != nil || !ok {
		t.Fatalf("UpdateJobStatus() = %v, %v", ok, err)
	}
	done := baseTime.Add(2 * time.Hour)
	ok, err = repo.UpdateJobStatus(ctx, "j1", marketplace.JobCompleted, "", done)
	if err != nil || !ok {
		t.Fatalf("UpdateJobStatus(unconditional) = %v, %v", ok, err)
	}

	job, err := repo.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != marketplace.JobCompleted || job.CompletedAt == nil || !job.CompletedAt.Equal(done) {
		t.Fatalf("job = %+v", job)
	}
	if _, err := repo.GetJob(ctx, "nope"); !errors.Is(err, ports.ErrJobNotFound) {
		t.Fatalf("GetJob(missing) error = %v", err)
	}
}

func TestCompletedJobsForHomeownerAndContractor(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	seedJob(t, repo, "j-b", "h1", marketplace.JobOpen)
	seedJob(t, repo, "j-a", "h1", marketplace.JobOpen)
	seedJob(t, repo, "j-c", "h1", marketplace.JobOpen)
	seedQuote(t, repo, "q-b", "j-b", "c1", marketplace.QuoteAccepted)
	seedQuote(t, repo, "q-a", "j-a", "c1", marketplace.QuoteAccepted)
	seedQuote(t, repo, "q-c", "j-c", "c2", marketplace.QuoteAccepted)

	for i, id := range []string{"j-b", "j-a", "j-c"} {
		if _, err := repo.UpdateJobStatus(ctx, id, marketplace.JobCompleted, "", baseTime.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("complete %s: %v", id, err)
		}
	}

	jobs, err := repo.ListCompletedJobs(ctx, "h1")
	if err != nil {
		t.Fatalf("ListCompletedJobs() error = %v", err)
	}
	if len(jobs) != 3 || jobs[0].ID != "j-b" || jobs[1].ID != "j-a" {
		t.Fatalf("ListCompletedJobs() order = %v", jobIDs(jobs))
	}

	forC1, err := repo.ListCompletedJobsForContractor(ctx, "c1")
	if err != nil {
		t.Fatalf("ListCompletedJobsForContractor() error = %v", err)
	}
	if len(forC1) != 2 || forC1[0].ID != "j-b" || forC1[1].ID != "j-a" {
		t.Fatalf("ListCompletedJobsForContractor() = %v", jobIDs(forC1))
	}
}

func TestContractorQuotesAndHeldJobs(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	seedJob(t, repo, "j-1", "h1", marketplace.JobOpen)
	seedJob(t, repo, "j-2", "h1", marketplace.JobMatched)
	seedJob(t, repo, "j-3", "h1", marketplace.JobActive)
	seedQuote(t, repo, "q-1", "j-1", "c1", marketplace.QuotePending)
	seedQuote(t, repo, "q-2", "j-2", "c1", marketplace.QuoteAccepted)
	seedQuote(t, repo, "q-3", "j-3", "c1", marketplace.QuoteAccepted)
	seedQuote(t, repo, "q-4", "j-3", "c2", marketplace.QuoteRejected)

	quotes, err := repo.ListQuotesForContractor(ctx, "c1")
	if err != nil {
		t.Fatalf("ListQuotesForContractor() error = %v", err)
	}
	if len(quotes) != 3 || quotes[0].ID != "q-3" || quotes[2].ID != "q-1" {
		t.Fatalf("ListQuotesForContractor() = %+v", quotes)
	}

	held, err := repo.ListJobsForContractor(ctx, "c1", nil)
	if err != nil {
		t.Fatalf("ListJobsForContractor() error = %v", err)
	}
	if got := jobIDs(held); len(got) != 2 || got[0] != "j-3" || got[1] != "j-2" {
		t.Fatalf("ListJobsForContractor(all) = %v", got)
	}

	active, err := repo.ListJobsForContractor(ctx, "c1", []marketplace.JobStatus{marketplace.JobActive})
	if err != nil {
		t.Fatalf("ListJobsForContractor() error = %v", err)
	}
	if got := jobIDs(active); len(got) != 1 || got[0] != "j-3" {
		t.Fatalf("ListJobsForContractor(active) = %v", got)
	}

	none, err := repo.ListJobsForContractor(ctx, "c2", nil)
	if err != nil {
		t.Fatalf("ListJobsForContractor() error = %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("rejected quote should not hold a job: %v", jobIDs(none))
	}

	byID, err := repo.ListJobs(ctx, ports.JobFilter{IDs: []string{"j-1", "j-3"}})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(byID) != 2 {
		t.Fatalf("ListJobs(ids) = %v", jobIDs(byID))
	}
}

func TestMatchesOrderedBySlotAndUnique(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	for _, m := range []marketplace.Match{
		{ID: "m3", JobID: "j1", ContractorID: "c3", Slot: 3, Reason: "new"},
		{ID: "m1", JobID: "j1", ContractorID: "c1", Slot: 1, Reason: "best"},
		{ID: "m2", JobID: "j1", ContractorID: "c2", Slot: 2, Reason: "close"},
	} {
		m.CreatedAt = baseTime
		if _, err := repo.InsertMatch(ctx, m); err != nil {
			t.Fatalf("InsertMatch(%s) error = %v", m.ID, err)
		}
	}
	_, err := repo.InsertMatch(ctx, marketplace.Match{ID: "m4", JobID: "j1", ContractorID: "c4", Slot: 2, CreatedAt: baseTime})
	if !errors.Is(err, ports.ErrDuplicateMatch) {
		t.Fatalf("InsertMatch(dup slot) error = %v", err)
	}

	matches, err := repo.ListMatchesForJob(ctx, "j1")
	if err != nil {
		t.Fatalf("ListMatchesForJob() error = %v", err)
	}
	if len(matches) != 3 || matches[0].ContractorID != "c1" || matches[2].ContractorID != "c3" {
		t.Fatalf("ListMatchesForJob() = %#v", matches)
	}

	if err := repo.RecordMatchRun(ctx, marketplace.MatchRun{
		ID: "r1", JobID: "j1", Outcome: marketplace.MatchOutcomeAccepted, CandidateCount: 4,
		Trace: map[string]any{"provider": "stub"}, CreatedAt: baseTime,
	}); err != nil {
		t.Fatalf("RecordMatchRun() error = %v", err)
	}
	runs, err := repo.ListMatchRuns(ctx, "j1")
	if err != nil {
		t.Fatalf("ListMatchRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].Trace["provider"] != "stub" {
		t.Fatalf("ListMatchRuns() = %#v", runs)
	}
}

func TestRatingsUniquePerJobAndRole(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	yes := true

	rating := marketplace.Rating{
		ID: "r1", JobID: "j1", RaterRole: marketplace.RaterHomeowner,
		HomeownerID: "h1", ContractorID: "c1", Stars: 5,
		Answers:   marketplace.Answers{OnTime: &yes, PriceAccurate: &yes, WouldHireAgain: &yes},
		CreatedAt: baseTime,
	}
	if _, err := repo.CreateRating(ctx, rating); err != nil {
		t.Fatalf("CreateRating() error = %v", err)
	}
	rating.ID = "r2"
	if _, err := repo.CreateRating(ctx, rating); !errors.Is(err, ports.ErrDuplicateRating) {
		t.Fatalf("CreateRating(dup) error = %v", err)
	}

	byHomeowner, err := repo.ListRatingsForRater(ctx, "h1", marketplace.RaterHomeowner)
	if err != nil {
		t.Fatalf("ListRatingsForRater() error = %v", err)
	}
	if len(byHomeowner) != 1 || byHomeowner[0].Answers.OnTime == nil {
		t.Fatalf("ListRatingsForRater() = %#v", byHomeowner)
	}
	byContractor, err := repo.ListRatingsForRater(ctx, "c1", marketplace.RaterContractor)
	if err != nil || len(byContractor) != 0 {
		t.Fatalf("ListRatingsForRater(contractor) = %#v, %v", byContractor, err)
	}
}

func TestUnitOfWorkRollsBackOnError(t *testing.T) {
	repo, db := setupRepository(t)
	unit := uow.NewUnitOfWork(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := unit.WithTx(ctx, func(txCtx context.Context) error {
		seedJobCtx(t, txCtx, repo, "j-tx")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v", err)
	}
	if _, err := repo.GetJob(ctx, "j-tx"); !errors.Is(err, ports.ErrJobNotFound) {
		t.Fatalf("job should be rolled back, GetJob() error = %v", err)
	}
}

func seedJobCtx(t *testing.T, ctx context.Context, repo *MarketplaceRepository, id string) {
	t.Helper()
	if _, err := repo.CreateJob(ctx, marketplace.Job{
		ID: id, HomeownerID: "h1", Category: "plumbing", Title: "t", Description: "d",
		Zip: "94110", Urgency: marketplace.UrgencyFlexible, Status: marketplace.JobOpen,
		CreatedAt: baseTime, UpdatedAt: baseTime,
	}); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
}

func jobIDs(jobs []marketplace.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.ID)
	}
	return out
}
