package lifecycle

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/ports"
)

const defaultFeedLimit = 50

// FeedItem is one open job as seen by a contractor.
type FeedItem struct {
	Job           marketplace.Job `json:"job" yaml:"job"`
	MatchedForYou bool            `json:"matched_for_you" yaml:"matched_for_you"`
	MatchSlot     int             `json:"match_slot,omitempty" yaml:"match_slot,omitempty"`
	MatchReason   string          `json:"match_reason,omitempty" yaml:"match_reason,omitempty"`
	AlreadyQuoted bool            `json:"already_quoted" yaml:"already_quoted"`
}

// Earnings summarises a contractor's payouts.
type Earnings struct {
	ContractorID      string    `json:"contractor_id" yaml:"contractor_id"`
	MonthStart        time.Time `json:"month_start" yaml:"month_start"`
	MonthToDateCents  int64     `json:"month_to_date_cents" yaml:"month_to_date_cents"`
	AcceptedThisMonth int       `json:"accepted_this_month" yaml:"accepted_this_month"`
	AllTimeCents      int64     `json:"all_time_cents" yaml:"all_time_cents"`
}

type ListJobsInput struct {
	HomeownerID string
	Status      string
	Limit       int
}

// ContractorFeed lists open jobs in the contractor's trades and service
// area. Jobs the matcher picked for them come first, in slot order, and may
// sit outside the service area.
func (s *Service) ContractorFeed(ctx context.Context, contractorID string) ([]FeedItem, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	contractor, err := s.GetContractor(ctx, contractorID)
	if err != nil {
		return nil, err
	}

	jobs, err := s.jobs.ListJobs(ctx, ports.JobFilter{
		Statuses:   []marketplace.JobStatus{marketplace.JobOpen},
		Categories: contractor.TradeTypes,
		Zips:       contractor.ServiceZips,
		Limit:      defaultFeedLimit,
	})
	if err != nil {
		return nil, errs.Wrap(err, "list open jobs")
	}

	items := make([]FeedItem, 0, len(jobs))
	index := make(map[string]int, len(jobs))
	for _, job := range jobs {
		index[job.ID] = len(items)
		items = append(items, FeedItem{Job: job})
	}

	if s.matches != nil {
		matches, err := s.matches.ListMatchesForContractor(ctx, contractor.ID)
		if err != nil {
			return nil, errs.Wrap(err, "list contractor matches")
		}
		for _, m := range matches {
			pos, ok := index[m.JobID]
			if !ok {
				job, err := s.jobs.GetJob(ctx, m.JobID)
				if errors.Is(err, ports.ErrJobNotFound) {
					continue
				}
				if err != nil {
					return nil, errs.Wrapf(err, "load matched job %s", m.JobID)
				}
				if job.Status != marketplace.JobOpen {
					continue
				}
				pos = len(items)
				index[job.ID] = pos
				items = append(items, FeedItem{Job: job})
			}
			items[pos].MatchedForYou = true
			items[pos].MatchSlot = m.Slot
			items[pos].MatchReason = m.Reason
		}
	}

	for i := range items {
		_, quoted, err := s.quotes.FindQuote(ctx, items[i].Job.ID, contractor.ID)
		if err != nil {
			return nil, errs.Wrap(err, "check existing quote")
		}
		items[i].AlreadyQuoted = quoted
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.MatchedForYou != b.MatchedForYou {
			return a.MatchedForYou
		}
		if a.MatchedForYou && a.MatchSlot != b.MatchSlot {
			return a.MatchSlot < b.MatchSlot
		}
		return a.Job.CreatedAt.After(b.Job.CreatedAt)
	})
	return items, nil
}

// Earnings sums payouts of quotes accepted since the start of the current
// UTC month next to the stored all-time total.
func (s *Service) Earnings(ctx context.Context, contractorID string) (Earnings, error) {
	if err := s.check(ctx); err != nil {
		return Earnings{}, err
	}
	contractor, err := s.GetContractor(ctx, contractorID)
	if err != nil {
		return Earnings{}, err
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	quotes, err := s.quotes.ListAcceptedQuotesForContractor(ctx, contractor.ID, monthStart)
	if err != nil {
		return Earnings{}, errs.Wrap(err, "list accepted quotes")
	}

	out := Earnings{
		ContractorID:      contractor.ID,
		MonthStart:        monthStart,
		AcceptedThisMonth: len(quotes),
		AllTimeCents:      contractor.TotalEarningsCents,
	}
	for _, q := range quotes {
		out.MonthToDateCents += s.pricing.ContractorPayout(q.AmountCents)
	}
	return out, nil
}

// ListJobs lists jobs newest first, optionally for one homeowner and status.
func (s *Service) ListJobs(ctx context.Context, input ListJobsInput) ([]marketplace.Job, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	filter := ports.JobFilter{HomeownerID: strings.TrimSpace(input.HomeownerID), Limit: input.Limit}
	if strings.TrimSpace(input.Status) != "" {
		st, err := marketplace.ParseJobStatus(input.Status)
		if err != nil {
			return nil, errs.Validation("%v", err)
		}
		filter.Statuses = []marketplace.JobStatus{st}
	}
	jobs, err := s.jobs.ListJobs(ctx, filter)
	if err != nil {
		return nil, errs.Wrap(err, "list jobs")
	}
	return jobs, nil
}

// ListMatches returns a job's matches in slot order.
func (s *Service) ListMatches(ctx context.Context, jobID string) ([]marketplace.Match, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if s.matches == nil {
		return nil, errors.New("match repository is required")
	}
	job, err := s.loadJob(ctx, strings.TrimSpace(jobID))
	if err != nil {
		return nil, err
	}
	matches, err := s.matches.ListMatchesForJob(ctx, job.ID)
	if err != nil {
		return nil, errs.Wrap(err, "list matches")
	}
	return matches, nil
}
