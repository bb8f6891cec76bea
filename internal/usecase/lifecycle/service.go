package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/marketplace"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
	"homematch/internal/ports"
)

// MatchDispatcher starts matching for a freshly posted job without blocking.
type MatchDispatcher interface {
	Dispatch(ctx context.Context, jobID string)
}

type Service struct {
	jobs        ports.JobRepository
	contractors ports.ContractorRepository
	quotes      ports.QuoteRepository
	matches     ports.MatchRepository
	uow         ports.UnitOfWork
	pricing     *pricing.Engine
	dispatcher  MatchDispatcher
	notifier    ports.Notifier

	now   func() time.Time
	newID func() string
}

func NewService(
	jobs ports.JobRepository,
	contractors ports.ContractorRepository,
	quotes ports.QuoteRepository,
	matches ports.MatchRepository,
	uow ports.UnitOfWork,
	engine *pricing.Engine,
	dispatcher MatchDispatcher,
	notifier ports.Notifier,
) *Service {
	if engine == nil {
		engine = pricing.NewEngine(pricing.DefaultCatalogue(), pricing.DefaultRates())
	}
	return &Service{
		jobs:        jobs,
		contractors: contractors,
		quotes:      quotes,
		matches:     matches,
		uow:         uow,
		pricing:     engine,
		dispatcher:  dispatcher,
		notifier:    notifier,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

type PostJobInput struct {
	HomeownerID   string
	Category      string
	Title         string
	Description   string
	Urgency       string
	Zip           string
	Address       string
	PriceMinCents int64
	PriceMaxCents int64
}

type SubmitQuoteInput struct {
	JobID        string
	ActorUserID  string
	AmountCents  int64
	Availability string
	Message      string
}

type AcceptQuoteInput struct {
	QuoteID     string
	ActorUserID string
}

// JobActionInput names a job and the user acting on it.
type JobActionInput struct {
	JobID       string
	ActorUserID string
}

type RegisterContractorInput struct {
	UserID       string
	FullName     string
	Bio          string
	PrimaryTrade string
	TradeTypes   []string
	ServiceZips  []string
}

func (s *Service) check(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.jobs == nil || s.contractors == nil || s.quotes == nil {
		return errors.New("lifecycle repositories are required")
	}
	if s.uow == nil {
		return errors.New("lifecycle unit of work is required")
	}
	return nil
}

func (s *Service) logCtx(ctx context.Context, attrs ...slog.Attr) context.Context {
	return logging.WithAttrs(ctx, append([]slog.Attr{slog.String("component", "usecase.lifecycle")}, attrs...)...)
}

func (s *Service) publish(ctx context.Context, event marketplace.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		logging.Warn(ctx, "publish event failed", slog.String("event", event.Name), slog.Any("err", errs.Loggable(err)))
	}
}

func required(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errs.Validation("%s is required", name)
	}
	return value, nil
}

// notFound maps repository sentinels to the NotFound kind and leaves other
// errors alone.
func notFound(err error, what, id string) error {
	switch {
	case errors.Is(err, ports.ErrJobNotFound),
		errors.Is(err, ports.ErrQuoteNotFound),
		errors.Is(err, ports.ErrContractorNotFound):
		return errs.NotFound(err, "%s %s not found", what, id)
	}
	return errs.Wrapf(err, "load %s %s", what, id)
}

func (s *Service) loadJob(ctx context.Context, jobID string) (marketplace.Job, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return marketplace.Job{}, notFound(err, "job", jobID)
	}
	return job, nil
}

// contractorForUser resolves the contractor profile a user acts through.
func (s *Service) contractorForUser(ctx context.Context, userID string) (marketplace.Contractor, error) {
	c, err := s.contractors.GetContractorByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrContractorNotFound) {
			return marketplace.Contractor{}, errs.NotFound(err, "no contractor profile for user %s", userID)
		}
		return marketplace.Contractor{}, errs.Wrap(err, "load contractor profile")
	}
	return c, nil
}
