package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/ports"
)

// AcceptResult is the state after an accept call.
type AcceptResult struct {
	Job             marketplace.Job     `json:"job" yaml:"job"`
	Quote           marketplace.Quote   `json:"quote" yaml:"quote"`
	Rejected        []marketplace.Quote `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	AlreadyAccepted bool                `json:"already_accepted" yaml:"already_accepted"`
}

// SubmitQuote records a pending quote from the caller's contractor profile.
func (s *Service) SubmitQuote(ctx context.Context, input SubmitQuoteInput) (marketplace.Quote, error) {
	if err := s.check(ctx); err != nil {
		return marketplace.Quote{}, err
	}
	jobID, err := required("job id", input.JobID)
	if err != nil {
		return marketplace.Quote{}, err
	}
	actor, err := required("user id", input.ActorUserID)
	if err != nil {
		return marketplace.Quote{}, err
	}
	if err := marketplace.ValidateQuoteAmount(input.AmountCents); err != nil {
		return marketplace.Quote{}, errs.Validation("%v", err)
	}

	var quote marketplace.Quote
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		job, err := s.loadJob(txCtx, jobID)
		if err != nil {
			return err
		}
		if job.Status != marketplace.JobOpen {
			return errs.Conflict(errs.CodeJobNotOpen, "job %s is %s", job.ID, job.Status)
		}

		contractor, err := s.contractorForUser(txCtx, actor)
		if err != nil {
			return err
		}
		if contractor.Verification == marketplace.VerificationRejected {
			return errs.Forbidden("contractor %s is not allowed to quote", contractor.ID)
		}
		if _, exists, err := s.quotes.FindQuote(txCtx, job.ID, contractor.ID); err != nil {
			return errs.Wrap(err, "find existing quote")
		} else if exists {
			return errs.Conflict(errs.CodeDuplicateQuote, "contractor %s already quoted job %s", contractor.ID, job.ID)
		}

		now := s.now()
		quote, err = s.quotes.CreateQuote(txCtx, marketplace.Quote{
			ID:           s.newID(),
			JobID:        job.ID,
			ContractorID: contractor.ID,
			AmountCents:  input.AmountCents,
			Availability: strings.TrimSpace(input.Availability),
			Message:      strings.TrimSpace(input.Message),
			Status:       marketplace.QuotePending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if errors.Is(err, ports.ErrDuplicateQuote) {
			return errs.Conflict(errs.CodeDuplicateQuote, "contractor %s already quoted job %s", contractor.ID, job.ID)
		}
		return errs.Wrap(err, "create quote")
	})
	if err != nil {
		return marketplace.Quote{}, err
	}

	logCtx := s.logCtx(ctx, slog.String("job_id", quote.JobID), slog.String("quote_id", quote.ID))
	logging.Info(logCtx, "quote submitted", slog.Int64("amount_cents", quote.AmountCents))
	s.publish(logCtx, marketplace.Event{
		Name:  marketplace.EventQuoteSubmitted,
		JobID: quote.JobID,
		Payload: map[string]any{
			"quote_id":      quote.ID,
			"contractor_id": quote.ContractorID,
			"amount_cents":  quote.AmountCents,
			"payout_cents":  s.pricing.ContractorPayout(quote.AmountCents),
		},
		OccurredAt: quote.CreatedAt,
	})
	return quote, nil
}

// AcceptQuote accepts one pending quote, rejects the job's other pending
// quotes and moves the job to matched. All three writes commit together.
//
// The job row is claimed first with a conditional update so two accepts on
// the same job serialize on it; the loser sees zero affected rows.
func (s *Service) AcceptQuote(ctx context.Context, input AcceptQuoteInput) (AcceptResult, error) {
	if err := s.check(ctx); err != nil {
		return AcceptResult{}, err
	}
	quoteID, err := required("quote id", input.QuoteID)
	if err != nil {
		return AcceptResult{}, err
	}
	actor, err := required("user id", input.ActorUserID)
	if err != nil {
		return AcceptResult{}, err
	}

	var result AcceptResult
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		quote, err := s.quotes.GetQuote(txCtx, quoteID)
		if err != nil {
			return notFound(err, "quote", quoteID)
		}
		job, err := s.loadJob(txCtx, quote.JobID)
		if err != nil {
			return err
		}
		if job.HomeownerID != actor {
			return errs.Forbidden("user %s does not own job %s", actor, job.ID)
		}

		if quote.Status == marketplace.QuoteAccepted {
			result = AcceptResult{Job: job, Quote: quote, AlreadyAccepted: true}
			return nil
		}
		if job.Status != marketplace.JobOpen {
			return errs.Conflict(errs.CodeJobNotOpen, "job %s is %s", job.ID, job.Status)
		}
		if quote.Status != marketplace.QuotePending {
			return errs.Conflict(errs.CodeQuoteNoLongerAvailable, "quote %s is %s", quote.ID, quote.Status)
		}

		now := s.now()
		claimed, err := s.jobs.UpdateJobStatus(txCtx, job.ID, marketplace.JobMatched, marketplace.JobOpen, now)
		if err != nil {
			return errs.Wrap(err, "claim job")
		}
		if !claimed {
			return s.lostAcceptRace(txCtx, quote.ID, job.ID)
		}

		accepted, err := s.quotes.UpdateQuoteStatus(txCtx, quote.ID, marketplace.QuoteAccepted, marketplace.QuotePending, now)
		if err != nil {
			return errs.Wrap(err, "accept quote")
		}
		if !accepted {
			return errs.Conflict(errs.CodeQuoteNoLongerAvailable, "quote %s is no longer pending", quote.ID)
		}

		others, err := s.quotes.ListPendingQuotesForJob(txCtx, job.ID, quote.ID)
		if err != nil {
			return errs.Wrap(err, "list competing quotes")
		}
		rejected := make([]marketplace.Quote, 0, len(others))
		for _, other := range others {
			ok, err := s.quotes.UpdateQuoteStatus(txCtx, other.ID, marketplace.QuoteRejected, marketplace.QuotePending, now)
			if err != nil {
				return errs.Wrapf(err, "reject quote %s", other.ID)
			}
			if ok {
				other.Status = marketplace.QuoteRejected
				other.UpdatedAt = now
				rejected = append(rejected, other)
			}
		}

		quote.Status = marketplace.QuoteAccepted
		quote.UpdatedAt = now
		job.Status = marketplace.JobMatched
		job.UpdatedAt = now
		result = AcceptResult{Job: job, Quote: quote, Rejected: rejected}
		return nil
	})
	if err != nil {
		return AcceptResult{}, err
	}

	logCtx := s.logCtx(ctx, slog.String("job_id", result.Job.ID), slog.String("quote_id", result.Quote.ID))
	if result.AlreadyAccepted {
		logging.Info(logCtx, "quote already accepted")
		return result, nil
	}
	logging.Info(logCtx, "quote accepted", slog.Int("rejected", len(result.Rejected)))
	s.publish(logCtx, marketplace.Event{
		Name:  marketplace.EventQuoteAccepted,
		JobID: result.Job.ID,
		Payload: map[string]any{
			"quote_id":      result.Quote.ID,
			"contractor_id": result.Quote.ContractorID,
			"amount_cents":  result.Quote.AmountCents,
		},
		OccurredAt: result.Quote.UpdatedAt,
	})
	return result, nil
}

// lostAcceptRace reports why the job claim affected no rows.
func (s *Service) lostAcceptRace(ctx context.Context, quoteID, jobID string) error {
	current, err := s.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return notFound(err, "quote", quoteID)
	}
	if current.Status != marketplace.QuotePending {
		return errs.Conflict(errs.CodeQuoteNoLongerAvailable, "quote %s is %s", quoteID, current.Status)
	}
	return errs.Conflict(errs.CodeJobNotOpen, "job %s is no longer open", jobID)
}

// ListQuotes returns a job's quotes in submission order.
func (s *Service) ListQuotes(ctx context.Context, jobID string) ([]marketplace.Quote, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	job, err := s.loadJob(ctx, strings.TrimSpace(jobID))
	if err != nil {
		return nil, err
	}
	quotes, err := s.quotes.ListQuotesForJob(ctx, job.ID)
	if err != nil {
		return nil, errs.Wrap(err, "list quotes")
	}
	return quotes, nil
}

func (s *Service) GetQuote(ctx context.Context, quoteID string) (marketplace.Quote, error) {
	if err := s.check(ctx); err != nil {
		return marketplace.Quote{}, err
	}
	q, err := s.quotes.GetQuote(ctx, strings.TrimSpace(quoteID))
	if err != nil {
		return marketplace.Quote{}, notFound(err, "quote", quoteID)
	}
	return q, nil
}
