package lifecycle

import (
	"context"
	"errors"
	"log/slog"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/ports"
)

// CompleteResult carries the payout credited on completion.
type CompleteResult struct {
	Job          marketplace.Job   `json:"job" yaml:"job"`
	Quote        marketplace.Quote `json:"quote" yaml:"quote"`
	PayoutCents  int64             `json:"payout_cents" yaml:"payout_cents"`
	ContractorID string            `json:"contractor_id" yaml:"contractor_id"`
}

// StartJob moves a matched job to active on behalf of the contractor
// holding the accepted quote.
func (s *Service) StartJob(ctx context.Context, input JobActionInput) (marketplace.Job, error) {
	if err := s.check(ctx); err != nil {
		return marketplace.Job{}, err
	}
	jobID, actor, err := actionArgs(input)
	if err != nil {
		return marketplace.Job{}, err
	}

	var job marketplace.Job
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		j, _, err := s.loadForAcceptedContractor(txCtx, jobID, actor)
		if err != nil {
			return err
		}
		j, err = s.transition(txCtx, j, marketplace.JobActive)
		job = j
		return err
	})
	if err != nil {
		return marketplace.Job{}, err
	}

	logging.Info(s.logCtx(ctx, slog.String("job_id", job.ID)), "job started")
	return job, nil
}

// CompleteJob marks a matched or active job completed and credits the
// contractor payout for the accepted quote.
func (s *Service) CompleteJob(ctx context.Context, input JobActionInput) (CompleteResult, error) {
	if err := s.check(ctx); err != nil {
		return CompleteResult{}, err
	}
	jobID, actor, err := actionArgs(input)
	if err != nil {
		return CompleteResult{}, err
	}

	var result CompleteResult
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		job, quote, err := s.loadForAcceptedContractor(txCtx, jobID, actor)
		if err != nil {
			return err
		}
		job, err = s.transition(txCtx, job, marketplace.JobCompleted)
		if err != nil {
			return err
		}

		payout := s.pricing.ContractorPayout(quote.AmountCents)
		if err := s.contractors.AddEarnings(txCtx, quote.ContractorID, payout); err != nil {
			return errs.Wrap(err, "credit earnings")
		}
		result = CompleteResult{Job: job, Quote: quote, PayoutCents: payout, ContractorID: quote.ContractorID}
		return nil
	})
	if err != nil {
		return CompleteResult{}, err
	}

	logCtx := s.logCtx(ctx, slog.String("job_id", result.Job.ID))
	logging.Info(logCtx, "job completed", slog.Int64("payout_cents", result.PayoutCents))
	s.publish(logCtx, marketplace.Event{
		Name:  marketplace.EventJobCompleted,
		JobID: result.Job.ID,
		Payload: map[string]any{
			"contractor_id": result.ContractorID,
			"quote_id":      result.Quote.ID,
			"payout_cents":  result.PayoutCents,
		},
		OccurredAt: result.Job.UpdatedAt,
	})
	return result, nil
}

// CancelJob lets the homeowner withdraw an open or matched job.
func (s *Service) CancelJob(ctx context.Context, input JobActionInput) (marketplace.Job, error) {
	if err := s.check(ctx); err != nil {
		return marketplace.Job{}, err
	}
	jobID, actor, err := actionArgs(input)
	if err != nil {
		return marketplace.Job{}, err
	}

	var job marketplace.Job
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		j, err := s.loadJob(txCtx, jobID)
		if err != nil {
			return err
		}
		if j.HomeownerID != actor {
			return errs.Forbidden("user %s does not own job %s", actor, j.ID)
		}
		j, err = s.transition(txCtx, j, marketplace.JobCancelled)
		job = j
		return err
	})
	if err != nil {
		return marketplace.Job{}, err
	}

	logCtx := s.logCtx(ctx, slog.String("job_id", job.ID))
	logging.Info(logCtx, "job cancelled")
	s.publish(logCtx, marketplace.Event{
		Name:       marketplace.EventJobCancelled,
		JobID:      job.ID,
		OccurredAt: job.UpdatedAt,
	})
	return job, nil
}

func actionArgs(input JobActionInput) (string, string, error) {
	jobID, err := required("job id", input.JobID)
	if err != nil {
		return "", "", err
	}
	actor, err := required("user id", input.ActorUserID)
	if err != nil {
		return "", "", err
	}
	return jobID, actor, nil
}

// loadForAcceptedContractor checks that actor owns the contractor profile
// behind the job's single accepted quote.
func (s *Service) loadForAcceptedContractor(ctx context.Context, jobID, actor string) (marketplace.Job, marketplace.Quote, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return marketplace.Job{}, marketplace.Quote{}, err
	}
	quote, err := s.quotes.GetAcceptedQuoteForJob(ctx, job.ID)
	if err != nil {
		if errors.Is(err, ports.ErrQuoteNotFound) {
			return marketplace.Job{}, marketplace.Quote{}, errs.Conflict(errs.CodeInvalidTransition, "job %s has no accepted quote", job.ID)
		}
		return marketplace.Job{}, marketplace.Quote{}, errs.Wrap(err, "load accepted quote")
	}
	contractor, err := s.contractors.GetContractor(ctx, quote.ContractorID)
	if err != nil {
		return marketplace.Job{}, marketplace.Quote{}, notFound(err, "contractor", quote.ContractorID)
	}
	if contractor.UserID != actor {
		return marketplace.Job{}, marketplace.Quote{}, errs.Forbidden("user %s does not hold the accepted quote for job %s", actor, job.ID)
	}
	return job, quote, nil
}

// transition applies one state machine edge guarded on the current status.
func (s *Service) transition(ctx context.Context, job marketplace.Job, to marketplace.JobStatus) (marketplace.Job, error) {
	if !marketplace.CanTransition(job.Status, to) {
		return job, errs.Conflict(errs.CodeInvalidTransition, "job %s cannot move from %s to %s", job.ID, job.Status, to)
	}
	now := s.now()
	ok, err := s.jobs.UpdateJobStatus(ctx, job.ID, to, job.Status, now)
	if err != nil {
		return job, errs.Wrapf(err, "set job %s %s", job.ID, to)
	}
	if !ok {
		return job, errs.Conflict(errs.CodeInvalidTransition, "job %s changed concurrently", job.ID)
	}
	job.Status = to
	job.UpdatedAt = now
	if to == marketplace.JobCompleted {
		job.CompletedAt = &now
	}
	return job, nil
}
