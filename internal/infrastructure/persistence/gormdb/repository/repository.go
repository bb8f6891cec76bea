package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"homematch/internal/ports"
)

// MarketplaceRepository implements every marketplace repository port on one
// gorm handle. Calls made with a UnitOfWork context join its transaction.
type MarketplaceRepository struct {
	db *gorm.DB
}

var (
	_ ports.JobRepository        = (*MarketplaceRepository)(nil)
	_ ports.ContractorRepository = (*MarketplaceRepository)(nil)
	_ ports.QuoteRepository      = (*MarketplaceRepository)(nil)
	_ ports.MatchRepository      = (*MarketplaceRepository)(nil)
	_ ports.RatingRepository     = (*MarketplaceRepository)(nil)
)

func NewMarketplaceRepository(db *gorm.DB) *MarketplaceRepository {
	return &MarketplaceRepository{db: db}
}

func (r *MarketplaceRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

type countRow struct {
	JobID string `gorm:"column:job_id"`
	N     int    `gorm:"column:n"`
}

func countByJob(db *gorm.DB, table any, jobIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(jobIDs))
	if len(jobIDs) == 0 {
		return out, nil
	}

	var rows []countRow
	if err := db.Model(table).
		Select("job_id, count(*) as n").
		Where("job_id IN ?", jobIDs).
		Group("job_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.JobID] = row.N
	}
	return out, nil
}
