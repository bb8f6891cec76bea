package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/infrastructure/persistence/gormdb/model"
	"homematch/internal/ports"
)

func (r *MarketplaceRepository) CreateJob(ctx context.Context, job marketplace.Job) (marketplace.Job, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return marketplace.Job{}, err
	}

	row := toJobModel(job)
	if err := db.Create(&row).Error; err != nil {
		return marketplace.Job{}, errs.Wrap(err, "insert job")
	}
	return mapJob(row), nil
}

func (r *MarketplaceRepository) GetJob(ctx context.Context, jobID string) (marketplace.Job, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return marketplace.Job{}, err
	}

	var row model.Job
	if err := db.Where("id = ?", jobID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return marketplace.Job{}, ports.ErrJobNotFound
		}
		return marketplace.Job{}, errs.Wrapf(err, "get job %s", jobID)
	}
	return mapJob(row), nil
}

func (r *MarketplaceRepository) ListJobs(ctx context.Context, filter ports.JobFilter) ([]marketplace.Job, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Job{})
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if homeowner := strings.TrimSpace(filter.HomeownerID); homeowner != "" {
		query = query.Where("homeowner_id = ?", homeowner)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		query = query.Where("status IN ?", statuses)
	}
	if len(filter.Categories) > 0 {
		query = query.Where("category IN ?", filter.Categories)
	}
	if len(filter.Zips) > 0 {
		query = query.Where("zip IN ?", filter.Zips)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.Job
	if err := query.Order("created_at desc").Order("id desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query jobs")
	}
	return mapJobs(rows), nil
}

func (r *MarketplaceRepository) UpdateJobStatus(
	ctx context.Context,
	jobID string,
	status marketplace.JobStatus,
	expected marketplace.JobStatus,
	at time.Time,
) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"status":     string(status),
		"updated_at": at,
	}
	if status == marketplace.JobCompleted {
		updates["completed_at"] = at
	}

	query := db.Model(&model.Job{}).Where("id = ?", jobID)
	if expected != "" {
		query = query.Where("status = ?", string(expected))
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return false, errs.Wrapf(result.Error, "update job %s status", jobID)
	}
	return result.RowsAffected == 1, nil
}

func (r *MarketplaceRepository) ListCompletedJobs(ctx context.Context, homeownerID string) ([]marketplace.Job, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Job
	if err := db.Where("homeowner_id = ? AND status = ?", homeownerID, string(marketplace.JobCompleted)).
		Order("completed_at asc").Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query completed jobs")
	}
	return mapJobs(rows), nil
}

func (r *MarketplaceRepository) ListCompletedJobsForContractor(ctx context.Context, contractorID string) ([]marketplace.Job, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	accepted := db.Model(&model.Quote{}).
		Select("job_id").
		Where("contractor_id = ? AND status = ?", contractorID, string(marketplace.QuoteAccepted))

	var rows []model.Job
	if err := db.Where("status = ? AND id IN (?)", string(marketplace.JobCompleted), accepted).
		Order("completed_at asc").Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query contractor completed jobs")
	}
	return mapJobs(rows), nil
}

func (r *MarketplaceRepository) ListJobsForContractor(ctx context.Context, contractorID string, statuses []marketplace.JobStatus) ([]marketplace.Job, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	accepted := db.Model(&model.Quote{}).
		Select("job_id").
		Where("contractor_id = ? AND status = ?", contractorID, string(marketplace.QuoteAccepted))

	query := db.Where("id IN (?)", accepted)
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, st := range statuses {
			values = append(values, string(st))
		}
		query = query.Where("status IN ?", values)
	}

	var rows []model.Job
	if err := query.Order("created_at desc").Order("id desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query contractor jobs")
	}
	return mapJobs(rows), nil
}

func toJobModel(job marketplace.Job) model.Job {
	return model.Job{
		ID:            job.ID,
		HomeownerID:   job.HomeownerID,
		Category:      job.Category,
		Title:         job.Title,
		Description:   job.Description,
		Zip:           job.Zip,
		Address:       job.Address,
		Urgency:       string(job.Urgency),
		Status:        string(job.Status),
		PriceMinCents: job.PriceMinCents,
		PriceMaxCents: job.PriceMaxCents,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
		CompletedAt:   job.CompletedAt,
	}
}

func mapJob(row model.Job) marketplace.Job {
	return marketplace.Job{
		ID:            row.ID,
		HomeownerID:   row.HomeownerID,
		Category:      row.Category,
		Title:         row.Title,
		Description:   row.Description,
		Zip:           row.Zip,
		Address:       row.Address,
		Urgency:       marketplace.Urgency(row.Urgency),
		Status:        marketplace.JobStatus(row.Status),
		PriceMinCents: row.PriceMinCents,
		PriceMaxCents: row.PriceMaxCents,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		CompletedAt:   row.CompletedAt,
	}
}

func mapJobs(rows []model.Job) []marketplace.Job {
	items := make([]marketplace.Job, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapJob(row))
	}
	return items
}
