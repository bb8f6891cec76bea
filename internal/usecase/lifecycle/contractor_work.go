package lifecycle

import (
	"context"

	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/ports"
)

// ContractorQuote is a quote the contractor sent, with the job it was for.
type ContractorQuote struct {
	Quote       marketplace.Quote     `json:"quote" yaml:"quote"`
	JobTitle    string                `json:"job_title" yaml:"job_title"`
	JobCategory string                `json:"job_category" yaml:"job_category"`
	JobStatus   marketplace.JobStatus `json:"job_status" yaml:"job_status"`
	PayoutCents int64                 `json:"payout_cents" yaml:"payout_cents"`
}

// ContractorQuotes lists every quote the contractor submitted, newest first.
func (s *Service) ContractorQuotes(ctx context.Context, contractorID string) ([]ContractorQuote, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	contractor, err := s.GetContractor(ctx, contractorID)
	if err != nil {
		return nil, err
	}

	quotes, err := s.quotes.ListQuotesForContractor(ctx, contractor.ID)
	if err != nil {
		return nil, errs.Wrap(err, "list contractor quotes")
	}
	if len(quotes) == 0 {
		return []ContractorQuote{}, nil
	}

	ids := make([]string, 0, len(quotes))
	for _, q := range quotes {
		ids = append(ids, q.JobID)
	}
	jobs, err := s.jobs.ListJobs(ctx, ports.JobFilter{IDs: ids})
	if err != nil {
		return nil, errs.Wrap(err, "load quoted jobs")
	}
	byID := make(map[string]marketplace.Job, len(jobs))
	for _, job := range jobs {
		byID[job.ID] = job
	}

	out := make([]ContractorQuote, 0, len(quotes))
	for _, q := range quotes {
		job := byID[q.JobID]
		out = append(out, ContractorQuote{
			Quote:       q,
			JobTitle:    job.Title,
			JobCategory: job.Category,
			JobStatus:   job.Status,
			PayoutCents: s.pricing.ContractorPayout(q.AmountCents),
		})
	}
	return out, nil
}

// ContractorActiveJobs lists the active jobs the contractor holds the
// accepted quote for. These are the jobs it can mark completed.
func (s *Service) ContractorActiveJobs(ctx context.Context, contractorID string) ([]marketplace.Job, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	contractor, err := s.GetContractor(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobs.ListJobsForContractor(ctx, contractor.ID, []marketplace.JobStatus{marketplace.JobActive})
	if err != nil {
		return nil, errs.Wrap(err, "list active jobs")
	}
	return jobs, nil
}
