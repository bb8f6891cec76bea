package board

import (
	"context"
	"errors"

	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/ports"
)

// Row is one job line on the board.
type Row struct {
	Job     marketplace.Job
	Quotes  int
	Matches int
}

// Detail is everything shown for the selected job.
type Detail struct {
	Job     marketplace.Job        `json:"job" yaml:"job"`
	Quotes  []marketplace.Quote    `json:"quotes" yaml:"quotes"`
	Matches []marketplace.Match    `json:"matches" yaml:"matches"`
	Runs    []marketplace.MatchRun `json:"runs" yaml:"runs"`
}

// Reader loads board data straight from the repositories.
type Reader struct {
	jobs    ports.JobRepository
	quotes  ports.QuoteRepository
	matches ports.MatchRepository
}

func NewReader(jobs ports.JobRepository, quotes ports.QuoteRepository, matches ports.MatchRepository) *Reader {
	return &Reader{jobs: jobs, quotes: quotes, matches: matches}
}

func (r *Reader) Rows(ctx context.Context, status marketplace.JobStatus, limit int) ([]Row, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	filter := ports.JobFilter{Limit: limit}
	if status != "" {
		filter.Statuses = []marketplace.JobStatus{status}
	}
	jobs, err := r.jobs.ListJobs(ctx, filter)
	if err != nil {
		return nil, errs.Wrap(err, "list jobs")
	}

	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}
	quoteCounts, err := r.quotes.CountQuotesByJob(ctx, ids)
	if err != nil {
		return nil, errs.Wrap(err, "count quotes")
	}
	matchCounts, err := r.matches.CountMatchesByJob(ctx, ids)
	if err != nil {
		return nil, errs.Wrap(err, "count matches")
	}

	rows := make([]Row, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, Row{Job: job, Quotes: quoteCounts[job.ID], Matches: matchCounts[job.ID]})
	}
	return rows, nil
}

func (r *Reader) Detail(ctx context.Context, jobID string) (Detail, error) {
	if ctx == nil {
		return Detail{}, errors.New("context is required")
	}
	job, err := r.jobs.GetJob(ctx, jobID)
	if err != nil {
		return Detail{}, errs.Wrapf(err, "load job %s", jobID)
	}
	quotes, err := r.quotes.ListQuotesForJob(ctx, jobID)
	if err != nil {
		return Detail{}, errs.Wrap(err, "list quotes")
	}
	matches, err := r.matches.ListMatchesForJob(ctx, jobID)
	if err != nil {
		return Detail{}, errs.Wrap(err, "list matches")
	}
	runs, err := r.matches.ListMatchRuns(ctx, jobID)
	if err != nil {
		return Detail{}, errs.Wrap(err, "list match runs")
	}
	return Detail{Job: job, Quotes: quotes, Matches: matches, Runs: runs}, nil
}
