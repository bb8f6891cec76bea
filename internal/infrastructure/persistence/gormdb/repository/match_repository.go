package repository

import (
	"context"

	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/infrastructure/persistence/gormdb/model"
	"homematch/internal/ports"
)

func (r *MarketplaceRepository) InsertMatch(ctx context.Context, match marketplace.Match) (marketplace.Match, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return marketplace.Match{}, err
	}

	row := model.Match{
		ID:           match.ID,
		JobID:        match.JobID,
		ContractorID: match.ContractorID,
		Slot:         match.Slot,
		Reason:       match.Reason,
		CreatedAt:    match.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return marketplace.Match{}, ports.ErrDuplicateMatch
		}
		return marketplace.Match{}, errs.Wrap(err, "insert match")
	}
	return mapMatch(row), nil
}

func (r *MarketplaceRepository) ListMatchesForJob(ctx context.Context, jobID string) ([]marketplace.Match, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Match
	if err := db.Where("job_id = ?", jobID).Order("slot asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query matches for job")
	}
	return mapMatches(rows), nil
}

func (r *MarketplaceRepository) ListMatchesForContractor(ctx context.Context, contractorID string) ([]marketplace.Match, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Match
	if err := db.Where("contractor_id = ?", contractorID).Order("created_at desc").Order("slot asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query matches for contractor")
	}
	return mapMatches(rows), nil
}

func (r *MarketplaceRepository) CountMatchesByJob(ctx context.Context, jobIDs []string) (map[string]int, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	out, err := countByJob(db, &model.Match{}, jobIDs)
	if err != nil {
		return nil, errs.Wrap(err, "count matches")
	}
	return out, nil
}

func (r *MarketplaceRepository) RecordMatchRun(ctx context.Context, run marketplace.MatchRun) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.MatchRun{
		ID:             run.ID,
		JobID:          run.JobID,
		Outcome:        string(run.Outcome),
		Reason:         run.Reason,
		CandidateCount: run.CandidateCount,
		Trace:          run.Trace,
		CreatedAt:      run.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert match run")
	}
	return nil
}

func (r *MarketplaceRepository) ListMatchRuns(ctx context.Context, jobID string) ([]marketplace.MatchRun, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.MatchRun
	if err := db.Where("job_id = ?", jobID).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query match runs")
	}

	items := make([]marketplace.MatchRun, 0, len(rows))
	for _, row := range rows {
		items = append(items, marketplace.MatchRun{
			ID:             row.ID,
			JobID:          row.JobID,
			Outcome:        marketplace.MatchOutcome(row.Outcome),
			Reason:         row.Reason,
			CandidateCount: row.CandidateCount,
			Trace:          row.Trace,
			CreatedAt:      row.CreatedAt,
		})
	}
	return items, nil
}

func mapMatch(row model.Match) marketplace.Match {
	return marketplace.Match{
		ID:           row.ID,
		JobID:        row.JobID,
		ContractorID: row.ContractorID,
		Slot:         row.Slot,
		Reason:       row.Reason,
		CreatedAt:    row.CreatedAt,
	}
}

func mapMatches(rows []model.Match) []marketplace.Match {
	items := make([]marketplace.Match, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapMatch(row))
	}
	return items
}
