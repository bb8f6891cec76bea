package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/infrastructure/persistence/gormdb/model"
	"homematch/internal/ports"
)

func (r *MarketplaceRepository) CreateQuote(ctx context.Context, quote marketplace.Quote) (marketplace.Quote, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return marketplace.Quote{}, err
	}

	row := toQuoteModel(quote)
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return marketplace.Quote{}, ports.ErrDuplicateQuote
		}
		return marketplace.Quote{}, errs.Wrap(err, "insert quote")
	}
	return mapQuote(row), nil
}

func (r *MarketplaceRepository) GetQuote(ctx context.Context, quoteID string) (marketplace.Quote, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return marketplace.Quote{}, err
	}

	var row model.Quote
	if err := db.Where("id = ?", quoteID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return marketplace.Quote{}, ports.ErrQuoteNotFound
		}
		return marketplace.Quote{}, errs.Wrapf(err, "get quote %s", quoteID)
	}
	return mapQuote(row), nil
}

func (r *MarketplaceRepository) FindQuote(ctx context.Context, jobID string, contractorID string) (marketplace.Quote, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return marketplace.Quote{}, false, err
	}

	var row model.Quote
	if err := db.Where("job_id = ? AND contractor_id = ?", jobID, contractorID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return marketplace.Quote{}, false, nil
		}
		return marketplace.Quote{}, false, errs.Wrap(err, "find quote")
	}
	return mapQuote(row), true, nil
}

func (r *MarketplaceRepository) ListQuotesForJob(ctx context.Context, jobID string) ([]marketplace.Quote, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Quote
	if err := db.Where("job_id = ?", jobID).Order("created_at asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query quotes for job")
	}
	return mapQuotes(rows), nil
}

func (r *MarketplaceRepository) ListPendingQuotesForJob(ctx context.Context, jobID string, excludingQuoteID string) ([]marketplace.Quote, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Where("job_id = ? AND status = ?", jobID, string(marketplace.QuotePending))
	if excludingQuoteID != "" {
		query = query.Where("id <> ?", excludingQuoteID)
	}

	var rows []model.Quote
	if err := query.Order("created_at asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query pending quotes")
	}
	return mapQuotes(rows), nil
}

func (r *MarketplaceRepository) UpdateQuoteStatus(
	ctx context.Context,
	quoteID string,
	status marketplace.QuoteStatus,
	expected marketplace.QuoteStatus,
	at time.Time,
) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	result := db.Model(&model.Quote{}).
		Where("id = ? AND status = ?", quoteID, string(expected)).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": at,
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return false, nil
		}
		return false, errs.Wrapf(result.Error, "update quote %s status", quoteID)
	}
	return result.RowsAffected == 1, nil
}

func (r *MarketplaceRepository) GetAcceptedQuoteForJob(ctx context.Context, jobID string) (marketplace.Quote, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return marketplace.Quote{}, err
	}

	var row model.Quote
	if err := db.Where("job_id = ? AND status = ?", jobID, string(marketplace.QuoteAccepted)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return marketplace.Quote{}, ports.ErrQuoteNotFound
		}
		return marketplace.Quote{}, errs.Wrap(err, "get accepted quote")
	}
	return mapQuote(row), nil
}

func (r *MarketplaceRepository) ListQuotesForContractor(ctx context.Context, contractorID string) ([]marketplace.Quote, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Quote
	if err := db.Where("contractor_id = ?", contractorID).
		Order("created_at desc").Order("id desc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query contractor quotes")
	}
	return mapQuotes(rows), nil
}

func (r *MarketplaceRepository) ListAcceptedQuotesForContractor(ctx context.Context, contractorID string, since time.Time) ([]marketplace.Quote, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Where("contractor_id = ? AND status = ?", contractorID, string(marketplace.QuoteAccepted))
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	var rows []model.Quote
	if err := query.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query accepted quotes")
	}
	return mapQuotes(rows), nil
}

func (r *MarketplaceRepository) CountQuotesByJob(ctx context.Context, jobIDs []string) (map[string]int, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	out, err := countByJob(db, &model.Quote{}, jobIDs)
	if err != nil {
		return nil, errs.Wrap(err, "count quotes")
	}
	return out, nil
}

func toQuoteModel(q marketplace.Quote) model.Quote {
	return model.Quote{
		ID:           q.ID,
		JobID:        q.JobID,
		ContractorID: q.ContractorID,
		AmountCents:  q.AmountCents,
		Availability: q.Availability,
		Message:      q.Message,
		Status:       string(q.Status),
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    q.UpdatedAt,
	}
}

func mapQuote(row model.Quote) marketplace.Quote {
	return marketplace.Quote{
		ID:           row.ID,
		JobID:        row.JobID,
		ContractorID: row.ContractorID,
		AmountCents:  row.AmountCents,
		Availability: row.Availability,
		Message:      row.Message,
		Status:       marketplace.QuoteStatus(row.Status),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func mapQuotes(rows []model.Quote) []marketplace.Quote {
	items := make([]marketplace.Quote, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapQuote(row))
	}
	return items
}
