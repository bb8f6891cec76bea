package ports

import (
	"context"
	"errors"
	"time"

	"homematch/internal/domain/marketplace"
)

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrQuoteNotFound      = errors.New("quote not found")
	ErrContractorNotFound = errors.New("contractor not found")
	ErrDuplicateQuote     = errors.New("contractor already quoted this job")
	ErrDuplicateRating    = errors.New("job already rated by this role")
	ErrDuplicateMatch     = errors.New("match slot already taken")
)

type JobFilter struct {
	IDs         []string
	HomeownerID string
	Statuses    []marketplace.JobStatus
	Categories  []string
	Zips        []string
	Limit       int
}

type JobRepository interface {
	CreateJob(ctx context.Context, job marketplace.Job) (marketplace.Job, error)
	GetJob(ctx context.Context, jobID string) (marketplace.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]marketplace.Job, error)
	// UpdateJobStatus applies the change only while the job is still in
	// expected (skipped when expected is empty) and reports whether a row
	// changed.
	UpdateJobStatus(ctx context.Context, jobID string, status marketplace.JobStatus, expected marketplace.JobStatus, at time.Time) (bool, error)
	// ListCompletedJobs is ordered by completed_at, then id.
	ListCompletedJobs(ctx context.Context, homeownerID string) ([]marketplace.Job, error)
	// ListCompletedJobsForContractor scopes through the contractor's accepted
	// quotes, ordered like ListCompletedJobs.
	ListCompletedJobsForContractor(ctx context.Context, contractorID string) ([]marketplace.Job, error)
	// ListJobsForContractor returns the jobs behind the contractor's accepted
	// quotes in the given statuses (all when empty), newest first.
	ListJobsForContractor(ctx context.Context, contractorID string, statuses []marketplace.JobStatus) ([]marketplace.Job, error)
}

type ContractorRepository interface {
	CreateContractor(ctx context.Context, contractor marketplace.Contractor) (marketplace.Contractor, error)
	GetContractor(ctx context.Context, contractorID string) (marketplace.Contractor, error)
	GetContractorByUserID(ctx context.Context, userID string) (marketplace.Contractor, error)
	// Both list queries return contractors in registration order.
	ListContractorsByTradeAndZip(ctx context.Context, trade string, zip string) ([]marketplace.Contractor, error)
	ListContractorsByTrade(ctx context.Context, trade string) ([]marketplace.Contractor, error)
	UpdateVerification(ctx context.Context, contractorID string, status marketplace.VerificationStatus) error
	UpdateRatingStats(ctx context.Context, contractorID string, avg float64, count int) error
	AddEarnings(ctx context.Context, contractorID string, cents int64) error
}

type QuoteRepository interface {
	CreateQuote(ctx context.Context, quote marketplace.Quote) (marketplace.Quote, error)
	GetQuote(ctx context.Context, quoteID string) (marketplace.Quote, error)
	FindQuote(ctx context.Context, jobID string, contractorID string) (marketplace.Quote, bool, error)
	ListQuotesForJob(ctx context.Context, jobID string) ([]marketplace.Quote, error)
	ListPendingQuotesForJob(ctx context.Context, jobID string, excludingQuoteID string) ([]marketplace.Quote, error)
	// UpdateQuoteStatus is conditional on the current status and reports
	// whether the row changed.
	UpdateQuoteStatus(ctx context.Context, quoteID string, status marketplace.QuoteStatus, expected marketplace.QuoteStatus, at time.Time) (bool, error)
	GetAcceptedQuoteForJob(ctx context.Context, jobID string) (marketplace.Quote, error)
	// ListQuotesForContractor is ordered newest first.
	ListQuotesForContractor(ctx context.Context, contractorID string) ([]marketplace.Quote, error)
	ListAcceptedQuotesForContractor(ctx context.Context, contractorID string, since time.Time) ([]marketplace.Quote, error)
	CountQuotesByJob(ctx context.Context, jobIDs []string) (map[string]int, error)
}

type MatchRepository interface {
	InsertMatch(ctx context.Context, match marketplace.Match) (marketplace.Match, error)
	// ListMatchesForJob is ordered by slot.
	ListMatchesForJob(ctx context.Context, jobID string) ([]marketplace.Match, error)
	ListMatchesForContractor(ctx context.Context, contractorID string) ([]marketplace.Match, error)
	CountMatchesByJob(ctx context.Context, jobIDs []string) (map[string]int, error)
	RecordMatchRun(ctx context.Context, run marketplace.MatchRun) error
	ListMatchRuns(ctx context.Context, jobID string) ([]marketplace.MatchRun, error)
}

type RatingRepository interface {
	CreateRating(ctx context.Context, rating marketplace.Rating) (marketplace.Rating, error)
	// ListRatingsForRater uses homeowner_id for the homeowner role and
	// contractor_id for the contractor role.
	ListRatingsForRater(ctx context.Context, raterID string, role marketplace.RaterRole) ([]marketplace.Rating, error)
}
