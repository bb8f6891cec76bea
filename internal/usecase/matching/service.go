package matching

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/ports"
)

const (
	DefaultPicks   = 3
	DefaultTimeout = 8 * time.Second
)

var errAlreadyMatched = errors.New("job already has matches")

type Options struct {
	Enabled           bool
	PoolSize          int
	Picks             int
	EmergingThreshold int
	Timeout           time.Duration
}

func (o Options) withDefaults() Options {
	if o.PoolSize <= 0 {
		o.PoolSize = DefaultPoolSize
	}
	if o.Picks <= 0 {
		o.Picks = DefaultPicks
	}
	if o.EmergingThreshold <= 0 {
		o.EmergingThreshold = marketplace.DefaultEmergingThreshold
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Report describes the outcome of one matching attempt.
type Report struct {
	JobID      string                   `json:"job_id" yaml:"job_id"`
	Outcome    marketplace.MatchOutcome `json:"outcome" yaml:"outcome"`
	Reason     string                   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Candidates int                      `json:"candidates" yaml:"candidates"`
	EmergingID string                   `json:"emerging_id,omitempty" yaml:"emerging_id,omitempty"`
	Matches    []marketplace.Match      `json:"matches" yaml:"matches"`
}

type Service struct {
	jobs     ports.JobRepository
	matches  ports.MatchRepository
	uow      ports.UnitOfWork
	selector *CandidateSelector
	reasoner ports.MatchReasoner
	notifier ports.Notifier
	opts     Options

	now   func() time.Time
	newID func() string
}

// NewService builds the matcher. reasoner may be nil, in which case every
// attempt is recorded as skipped.
func NewService(
	jobs ports.JobRepository,
	contractors ports.ContractorRepository,
	matches ports.MatchRepository,
	uow ports.UnitOfWork,
	reasoner ports.MatchReasoner,
	notifier ports.Notifier,
	opts Options,
) *Service {
	opts = opts.withDefaults()
	return &Service{
		jobs:     jobs,
		matches:  matches,
		uow:      uow,
		selector: NewCandidateSelector(contractors, opts.PoolSize),
		reasoner: reasoner,
		notifier: notifier,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// MatchJob selects, ranks and persists up to Picks matches for the job.
// Skips return a nil error; failures return a MatchingUnavailable error.
// Every attempt leaves a MatchRun audit row.
func (s *Service) MatchJob(ctx context.Context, jobID string) (Report, error) {
	if ctx == nil {
		return Report{}, errors.New("context is required")
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.matching"), slog.String("job_id", jobID))

	report := Report{JobID: jobID}
	trace := map[string]any{}

	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return s.fail(logCtx, report, trace, errs.Wrap(err, "load job"))
	}
	if job.Status != marketplace.JobOpen {
		return s.skip(logCtx, report, trace, "job is "+string(job.Status))
	}
	if !s.opts.Enabled || s.reasoner == nil {
		return s.skip(logCtx, report, trace, "reasoner not configured")
	}

	existing, err := s.matches.ListMatchesForJob(ctx, job.ID)
	if err != nil {
		return s.fail(logCtx, report, trace, errs.Wrap(err, "list existing matches"))
	}
	if len(existing) > 0 {
		report.Matches = existing
		return s.skip(logCtx, report, trace, errAlreadyMatched.Error())
	}

	pool, err := s.selector.Select(ctx, job)
	if err != nil {
		return s.fail(logCtx, report, trace, err)
	}
	report.Candidates = len(pool)
	if len(pool) == 0 {
		return s.skip(logCtx, report, trace, "no candidates")
	}

	report.EmergingID = FirstEmerging(pool, s.opts.EmergingThreshold)

	rankCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	result, err := s.reasoner.Rank(rankCtx, ports.RankRequest{
		JobID:       job.ID,
		Category:    job.Category,
		Description: job.Description,
		Urgency:     string(job.Urgency),
		Zip:         job.Zip,
		Picks:       s.opts.Picks,
		Candidates:  rankCandidates(pool, report.EmergingID),
	})
	cancel()
	for k, v := range result.Trace {
		trace[k] = v
	}
	if err != nil {
		return s.fail(logCtx, report, trace, errs.Wrap(err, "rank candidates"))
	}

	picks := SanitizePicks(result.Picks, pool, s.opts.Picks)
	if len(picks) == 0 {
		return s.fail(logCtx, report, trace, ErrEmptyRanking)
	}
	picks = EnforceEmergingSlot(picks, report.EmergingID)

	persisted, err := s.persist(ctx, job.ID, picks)
	if errors.Is(err, errAlreadyMatched) {
		return s.skip(logCtx, report, trace, err.Error())
	}
	if err != nil {
		return s.fail(logCtx, report, trace, err)
	}

	report.Outcome = marketplace.MatchOutcomeAccepted
	report.Matches = persisted
	s.recordRun(logCtx, report, trace)

	for _, m := range persisted {
		s.publish(logCtx, marketplace.Event{
			Name:  marketplace.EventMatchCreated,
			JobID: job.ID,
			Payload: map[string]any{
				"contractor_id": m.ContractorID,
				"slot":          m.Slot,
				"reason":        m.Reason,
			},
			OccurredAt: m.CreatedAt,
		})
	}

	logging.Info(logCtx, "job matched", slog.Int("matches", len(persisted)), slog.Int("candidates", len(pool)))
	return report, nil
}

// persist inserts matches one at a time in slot order inside one
// transaction; created_at strictly increases with the slot.
func (s *Service) persist(ctx context.Context, jobID string, picks []ports.RankedPick) ([]marketplace.Match, error) {
	persisted := make([]marketplace.Match, 0, len(picks))
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.matches.ListMatchesForJob(txCtx, jobID)
		if err != nil {
			return errs.Wrap(err, "recheck matches")
		}
		if len(existing) > 0 {
			return errAlreadyMatched
		}

		base := s.now()
		for i, pick := range picks {
			m, err := s.matches.InsertMatch(txCtx, marketplace.Match{
				ID:           s.newID(),
				JobID:        jobID,
				ContractorID: pick.ContractorID,
				Slot:         i + 1,
				Reason:       pick.Reason,
				CreatedAt:    base.Add(time.Duration(i) * time.Millisecond),
			})
			if err != nil {
				if errors.Is(err, ports.ErrDuplicateMatch) {
					return errAlreadyMatched
				}
				return errs.Wrapf(err, "insert match slot %d", i+1)
			}
			persisted = append(persisted, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return persisted, nil
}

func (s *Service) skip(ctx context.Context, report Report, trace map[string]any, reason string) (Report, error) {
	report.Outcome = marketplace.MatchOutcomeSkipped
	report.Reason = reason
	logging.Info(ctx, "matching skipped", slog.String("reason", reason))
	s.recordRun(ctx, report, trace)
	return report, nil
}

func (s *Service) fail(ctx context.Context, report Report, trace map[string]any, cause error) (Report, error) {
	report.Outcome = marketplace.MatchOutcomeFailed
	report.Reason = cause.Error()
	s.recordRun(ctx, report, trace)
	return report, errs.MatchingUnavailable(cause, "matching job %s", report.JobID)
}

func (s *Service) recordRun(ctx context.Context, report Report, trace map[string]any) {
	if report.JobID == "" {
		return
	}
	if len(trace) == 0 {
		trace = nil
	}
	err := s.matches.RecordMatchRun(ctx, marketplace.MatchRun{
		ID:             s.newID(),
		JobID:          report.JobID,
		Outcome:        report.Outcome,
		Reason:         report.Reason,
		CandidateCount: report.Candidates,
		Trace:          trace,
		CreatedAt:      s.now(),
	})
	if err != nil {
		logging.Warn(ctx, "record match run failed", slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) publish(ctx context.Context, event marketplace.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		logging.Warn(ctx, "publish event failed", slog.String("event", event.Name), slog.Any("err", errs.Loggable(err)))
	}
}

// Runs lists the audit rows for a job.
func (s *Service) Runs(ctx context.Context, jobID string) ([]marketplace.MatchRun, error) {
	runs, err := s.matches.ListMatchRuns(ctx, jobID)
	if err != nil {
		return nil, errs.Wrap(err, "list match runs")
	}
	return runs, nil
}
