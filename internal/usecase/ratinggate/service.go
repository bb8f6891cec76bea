// Package ratinggate derives the single pending rating a user owes from
// job, quote and rating state. Nothing here is stored; every check reads
// fresh rows.
package ratinggate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/ports"
)

// Obligation is the one rating a user must leave before moving on.
type Obligation struct {
	Role           marketplace.RaterRole `json:"role" yaml:"role"`
	RaterID        string                `json:"rater_id" yaml:"rater_id"`
	Job            marketplace.Job       `json:"job" yaml:"job"`
	CounterpartyID string                `json:"counterparty_id,omitempty" yaml:"counterparty_id,omitempty"`
}

type SubmitRatingInput struct {
	JobID       string
	ActorUserID string
	// Role may be empty; it is then inferred from the caller's part in the job.
	Role    string
	Stars   int
	Answers marketplace.Answers
	Comment string
}

type Service struct {
	jobs        ports.JobRepository
	contractors ports.ContractorRepository
	quotes      ports.QuoteRepository
	ratings     ports.RatingRepository
	uow         ports.UnitOfWork

	now   func() time.Time
	newID func() string
}

func NewService(
	jobs ports.JobRepository,
	contractors ports.ContractorRepository,
	quotes ports.QuoteRepository,
	ratings ports.RatingRepository,
	uow ports.UnitOfWork,
) *Service {
	return &Service{
		jobs:        jobs,
		contractors: contractors,
		quotes:      quotes,
		ratings:     ratings,
		uow:         uow,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// PendingRating returns the earliest completed job the user has not rated,
// checking the homeowner side before the contractor side. It returns nil
// when nothing is owed.
func (s *Service) PendingRating(ctx context.Context, userID string) (*Obligation, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errs.Validation("user id is required")
	}

	var (
		homeJobs   []marketplace.Job
		homeRated  []marketplace.Rating
		contractor *marketplace.Contractor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		jobs, err := s.jobs.ListCompletedJobs(gctx, userID)
		homeJobs = jobs
		return errs.Wrap(err, "list completed jobs")
	})
	g.Go(func() error {
		rated, err := s.ratings.ListRatingsForRater(gctx, userID, marketplace.RaterHomeowner)
		homeRated = rated
		return errs.Wrap(err, "list homeowner ratings")
	})
	g.Go(func() error {
		c, err := s.contractors.GetContractorByUserID(gctx, userID)
		if errors.Is(err, ports.ErrContractorNotFound) {
			return nil
		}
		if err != nil {
			return errs.Wrap(err, "load contractor profile")
		}
		contractor = &c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if job, ok := firstUnrated(homeJobs, homeRated); ok {
		ob := &Obligation{Role: marketplace.RaterHomeowner, RaterID: userID, Job: job}
		if q, err := s.quotes.GetAcceptedQuoteForJob(ctx, job.ID); err == nil {
			ob.CounterpartyID = q.ContractorID
		}
		return ob, nil
	}
	if contractor == nil {
		return nil, nil
	}

	var (
		workJobs  []marketplace.Job
		workRated []marketplace.Rating
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		jobs, err := s.jobs.ListCompletedJobsForContractor(gctx, contractor.ID)
		workJobs = jobs
		return errs.Wrap(err, "list contractor completed jobs")
	})
	g.Go(func() error {
		rated, err := s.ratings.ListRatingsForRater(gctx, contractor.ID, marketplace.RaterContractor)
		workRated = rated
		return errs.Wrap(err, "list contractor ratings")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if job, ok := firstUnrated(workJobs, workRated); ok {
		return &Obligation{
			Role:           marketplace.RaterContractor,
			RaterID:        contractor.ID,
			Job:            job,
			CounterpartyID: job.HomeownerID,
		}, nil
	}
	return nil, nil
}

// firstUnrated keeps the repository order: completed_at, then id.
func firstUnrated(jobs []marketplace.Job, rated []marketplace.Rating) (marketplace.Job, bool) {
	done := make(map[string]struct{}, len(rated))
	for _, r := range rated {
		done[r.JobID] = struct{}{}
	}
	for _, job := range jobs {
		if _, ok := done[job.ID]; !ok {
			return job, true
		}
	}
	return marketplace.Job{}, false
}

// SubmitRating stores one rating for a completed job. A homeowner rating
// folds into the contractor's average in the same transaction.
func (s *Service) SubmitRating(ctx context.Context, input SubmitRatingInput) (marketplace.Rating, error) {
	if ctx == nil {
		return marketplace.Rating{}, errors.New("context is required")
	}
	if s.uow == nil {
		return marketplace.Rating{}, errors.New("rating unit of work is required")
	}
	jobID := strings.TrimSpace(input.JobID)
	actor := strings.TrimSpace(input.ActorUserID)
	if jobID == "" || actor == "" {
		return marketplace.Rating{}, errs.Validation("job id and user id are required")
	}

	var rating marketplace.Rating
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		job, err := s.jobs.GetJob(txCtx, jobID)
		if err != nil {
			if errors.Is(err, ports.ErrJobNotFound) {
				return errs.NotFound(err, "job %s not found", jobID)
			}
			return errs.Wrap(err, "load job")
		}
		if job.Status != marketplace.JobCompleted {
			return errs.Conflict(errs.CodeInvalidTransition, "job %s is %s, ratings need a completed job", job.ID, job.Status)
		}
		quote, err := s.quotes.GetAcceptedQuoteForJob(txCtx, job.ID)
		if err != nil {
			if errors.Is(err, ports.ErrQuoteNotFound) {
				return errs.Conflict(errs.CodeInvalidTransition, "job %s has no accepted quote", job.ID)
			}
			return errs.Wrap(err, "load accepted quote")
		}
		contractor, err := s.contractors.GetContractor(txCtx, quote.ContractorID)
		if err != nil {
			return errs.Wrap(err, "load contractor")
		}

		role, err := s.resolveRole(input.Role, actor, job, contractor)
		if err != nil {
			return err
		}
		answers, err := marketplace.ValidateRating(role, input.Stars, input.Answers)
		if err != nil {
			return errs.Validation("%v", err)
		}

		rating, err = s.ratings.CreateRating(txCtx, marketplace.Rating{
			ID:           s.newID(),
			JobID:        job.ID,
			RaterRole:    role,
			HomeownerID:  job.HomeownerID,
			ContractorID: contractor.ID,
			Stars:        input.Stars,
			Answers:      answers,
			Comment:      strings.TrimSpace(input.Comment),
			CreatedAt:    s.now(),
		})
		if errors.Is(err, ports.ErrDuplicateRating) {
			return errs.Conflict(errs.CodeDuplicateRating, "job %s already rated by %s", job.ID, role)
		}
		if err != nil {
			return errs.Wrap(err, "create rating")
		}

		if role == marketplace.RaterHomeowner {
			avg, count := marketplace.NextRatingAverage(contractor.RatingAvg, contractor.RatingCount, input.Stars)
			if err := s.contractors.UpdateRatingStats(txCtx, contractor.ID, avg, count); err != nil {
				return errs.Wrap(err, "update contractor rating")
			}
		}
		return nil
	})
	if err != nil {
		return marketplace.Rating{}, err
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.ratinggate"), slog.String("job_id", rating.JobID))
	logging.Info(logCtx, "rating submitted", slog.String("role", string(rating.RaterRole)), slog.Int("stars", rating.Stars))
	return rating, nil
}

func (s *Service) resolveRole(raw, actor string, job marketplace.Job, contractor marketplace.Contractor) (marketplace.RaterRole, error) {
	isHomeowner := job.HomeownerID == actor
	isContractor := contractor.UserID == actor

	if strings.TrimSpace(raw) == "" {
		switch {
		case isHomeowner:
			return marketplace.RaterHomeowner, nil
		case isContractor:
			return marketplace.RaterContractor, nil
		}
		return "", errs.Forbidden("user %s is not a party to job %s", actor, job.ID)
	}

	role, err := marketplace.ParseRaterRole(raw)
	if err != nil {
		return "", errs.Validation("%v", err)
	}
	if (role == marketplace.RaterHomeowner && !isHomeowner) || (role == marketplace.RaterContractor && !isContractor) {
		return "", errs.Forbidden("user %s cannot rate job %s as %s", actor, job.ID, role)
	}
	return role, nil
}
