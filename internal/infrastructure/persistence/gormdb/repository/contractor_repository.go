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

func (r *MarketplaceRepository) CreateContractor(ctx context.Context, contractor marketplace.Contractor) (marketplace.Contractor, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return marketplace.Contractor{}, err
	}

	row := model.Contractor{
		ID:                 contractor.ID,
		UserID:             contractor.UserID,
		FullName:           contractor.FullName,
		Bio:                contractor.Bio,
		PrimaryTrade:       contractor.PrimaryTrade,
		Verification:       string(contractor.Verification),
		RatingAvg:          contractor.RatingAvg,
		RatingCount:        contractor.RatingCount,
		TotalEarningsCents: contractor.TotalEarningsCents,
		CreatedAt:          contractor.CreatedAt,
		UpdatedAt:          contractor.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return marketplace.Contractor{}, errs.Wrap(err, "insert contractor")
	}

	if len(contractor.TradeTypes) > 0 {
		trades := make([]model.ContractorTrade, 0, len(contractor.TradeTypes))
		for i, trade := range contractor.TradeTypes {
			trades = append(trades, model.ContractorTrade{ContractorID: row.ID, Trade: trade, Position: i})
		}
		if err := db.Create(&trades).Error; err != nil {
			return marketplace.Contractor{}, errs.Wrap(err, "insert contractor trades")
		}
	}
	if len(contractor.ServiceZips) > 0 {
		zips := make([]model.ContractorZip, 0, len(contractor.ServiceZips))
		for i, zip := range contractor.ServiceZips {
			zips = append(zips, model.ContractorZip{ContractorID: row.ID, Zip: zip, Position: i})
		}
		if err := db.Create(&zips).Error; err != nil {
			return marketplace.Contractor{}, errs.Wrap(err, "insert contractor zips")
		}
	}

	out := mapContractor(row)
	out.TradeTypes = append([]string(nil), contractor.TradeTypes...)
	out.ServiceZips = append([]string(nil), contractor.ServiceZips...)
	return out, nil
}

func (r *MarketplaceRepository) GetContractor(ctx context.Context, contractorID string) (marketplace.Contractor, error) {
	return r.getContractorWhere(ctx, "id = ?", contractorID)
}

func (r *MarketplaceRepository) GetContractorByUserID(ctx context.Context, userID string) (marketplace.Contractor, error) {
	return r.getContractorWhere(ctx, "user_id = ?", userID)
}

func (r *MarketplaceRepository) getContractorWhere(ctx context.Context, cond string, arg string) (marketplace.Contractor, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return marketplace.Contractor{}, err
	}

	var row model.Contractor
	if err := db.Where(cond, arg).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return marketplace.Contractor{}, ports.ErrContractorNotFound
		}
		return marketplace.Contractor{}, errs.Wrapf(err, "get contractor %s", arg)
	}

	items, err := r.hydrateContractors(db, []model.Contractor{row})
	if err != nil {
		return marketplace.Contractor{}, err
	}
	return items[0], nil
}

func (r *MarketplaceRepository) ListContractorsByTradeAndZip(ctx context.Context, trade string, zip string) ([]marketplace.Contractor, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	byTrade := db.Model(&model.ContractorTrade{}).Select("contractor_id").Where("trade = ?", trade)
	byZip := db.Model(&model.ContractorZip{}).Select("contractor_id").Where("zip = ?", zip)

	var rows []model.Contractor
	if err := db.Where("id IN (?) AND id IN (?)", byTrade, byZip).
		Order("created_at asc").Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query contractors by trade and zip")
	}
	return r.hydrateContractors(db, rows)
}

func (r *MarketplaceRepository) ListContractorsByTrade(ctx context.Context, trade string) ([]marketplace.Contractor, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	byTrade := db.Model(&model.ContractorTrade{}).Select("contractor_id").Where("trade = ?", trade)

	var rows []model.Contractor
	if err := db.Where("id IN (?)", byTrade).
		Order("created_at asc").Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query contractors by trade")
	}
	return r.hydrateContractors(db, rows)
}

func (r *MarketplaceRepository) UpdateVerification(ctx context.Context, contractorID string, status marketplace.VerificationStatus) error {
	return r.updateContractor(ctx, contractorID, map[string]any{
		"verification_status": string(status),
		"updated_at":          time.Now().UTC(),
	})
}

func (r *MarketplaceRepository) UpdateRatingStats(ctx context.Context, contractorID string, avg float64, count int) error {
	return r.updateContractor(ctx, contractorID, map[string]any{
		"rating_avg":   avg,
		"rating_count": count,
		"updated_at":   time.Now().UTC(),
	})
}

func (r *MarketplaceRepository) AddEarnings(ctx context.Context, contractorID string, cents int64) error {
	return r.updateContractor(ctx, contractorID, map[string]any{
		"total_earnings_cents": gorm.Expr("total_earnings_cents + ?", cents),
		"updated_at":           time.Now().UTC(),
	})
}

func (r *MarketplaceRepository) updateContractor(ctx context.Context, contractorID string, updates map[string]any) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Contractor{}).Where("id = ?", contractorID).Updates(updates)
	if result.Error != nil {
		return errs.Wrapf(result.Error, "update contractor %s", contractorID)
	}
	if result.RowsAffected == 0 {
		return ports.ErrContractorNotFound
	}
	return nil
}

func (r *MarketplaceRepository) hydrateContractors(db *gorm.DB, rows []model.Contractor) ([]marketplace.Contractor, error) {
	items := make([]marketplace.Contractor, 0, len(rows))
	if len(rows) == 0 {
		return items, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var trades []model.ContractorTrade
	if err := db.Where("contractor_id IN ?", ids).Order("position asc").Find(&trades).Error; err != nil {
		return nil, errs.Wrap(err, "query contractor trades")
	}
	var zips []model.ContractorZip
	if err := db.Where("contractor_id IN ?", ids).Order("position asc").Find(&zips).Error; err != nil {
		return nil, errs.Wrap(err, "query contractor zips")
	}

	tradesByID := make(map[string][]string, len(rows))
	for _, t := range trades {
		tradesByID[t.ContractorID] = append(tradesByID[t.ContractorID], t.Trade)
	}
	zipsByID := make(map[string][]string, len(rows))
	for _, z := range zips {
		zipsByID[z.ContractorID] = append(zipsByID[z.ContractorID], z.Zip)
	}

	for _, row := range rows {
		item := mapContractor(row)
		item.TradeTypes = tradesByID[row.ID]
		item.ServiceZips = zipsByID[row.ID]
		items = append(items, item)
	}
	return items, nil
}

func mapContractor(row model.Contractor) marketplace.Contractor {
	return marketplace.Contractor{
		ID:                 row.ID,
		UserID:             row.UserID,
		FullName:           row.FullName,
		Bio:                row.Bio,
		PrimaryTrade:       row.PrimaryTrade,
		Verification:       marketplace.VerificationStatus(row.Verification),
		RatingAvg:          row.RatingAvg,
		RatingCount:        row.RatingCount,
		TotalEarningsCents: row.TotalEarningsCents,
		CreatedAt:          row.CreatedAt,
	}
}
