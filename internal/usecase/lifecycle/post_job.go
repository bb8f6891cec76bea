package lifecycle

import (
	"context"
	"log/slog"
	"strings"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/marketplace"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
)

// PostJob stores an open job and hands it to the matcher. Matching never
// affects the result.
func (s *Service) PostJob(ctx context.Context, input PostJobInput) (marketplace.Job, error) {
	if err := s.check(ctx); err != nil {
		return marketplace.Job{}, err
	}

	homeownerID, err := required("homeowner id", input.HomeownerID)
	if err != nil {
		return marketplace.Job{}, err
	}
	category := strings.ToLower(strings.TrimSpace(input.Category))
	if !pricing.ValidCategoryTag(category) {
		return marketplace.Job{}, errs.Validation("%v: %q", marketplace.ErrInvalidCategory, input.Category)
	}
	zip := strings.TrimSpace(input.Zip)
	if !marketplace.ValidZip(zip) {
		return marketplace.Job{}, errs.Validation("%v: %q", marketplace.ErrInvalidZip, input.Zip)
	}
	urgency, err := marketplace.ParseUrgency(input.Urgency)
	if err != nil {
		return marketplace.Job{}, errs.Validation("%v", err)
	}
	if err := marketplace.ValidatePriceRange(input.PriceMinCents, input.PriceMaxCents); err != nil {
		return marketplace.Job{}, errs.Validation("%v", err)
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = category
		if svc, err := s.pricing.Catalogue().Lookup(category); err == nil {
			title = svc.Label
		}
	}

	now := s.now()
	job, err := s.jobs.CreateJob(ctx, marketplace.Job{
		ID:            s.newID(),
		HomeownerID:   homeownerID,
		Category:      category,
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		Zip:           zip,
		Address:       strings.TrimSpace(input.Address),
		Urgency:       urgency,
		Status:        marketplace.JobOpen,
		PriceMinCents: input.PriceMinCents,
		PriceMaxCents: input.PriceMaxCents,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return marketplace.Job{}, errs.Wrap(err, "create job")
	}

	logging.Info(s.logCtx(ctx, slog.String("job_id", job.ID)), "job posted", slog.String("category", job.Category), slog.String("zip", job.Zip))
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, job.ID)
	}
	return job, nil
}

// GetJob loads one job.
func (s *Service) GetJob(ctx context.Context, jobID string) (marketplace.Job, error) {
	if err := s.check(ctx); err != nil {
		return marketplace.Job{}, err
	}
	jobID, err := required("job id", jobID)
	if err != nil {
		return marketplace.Job{}, err
	}
	return s.loadJob(ctx, jobID)
}
