package repository

import (
	"context"
	"fmt"

	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/infrastructure/persistence/gormdb/model"
	"homematch/internal/ports"
)

func (r *MarketplaceRepository) CreateRating(ctx context.Context, rating marketplace.Rating) (marketplace.Rating, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return marketplace.Rating{}, err
	}

	row := model.Rating{
		ID:                      rating.ID,
		JobID:                   rating.JobID,
		RaterRole:               string(rating.RaterRole),
		HomeownerID:             rating.HomeownerID,
		ContractorID:            rating.ContractorID,
		Stars:                   rating.Stars,
		OnTime:                  rating.Answers.OnTime,
		PriceAccurate:           rating.Answers.PriceAccurate,
		WouldHireAgain:          rating.Answers.WouldHireAgain,
		ClearInstructions:       rating.Answers.ClearInstructions,
		PaymentSmooth:           rating.Answers.PaymentSmooth,
		ProfessionalInteraction: rating.Answers.ProfessionalInteraction,
		Comment:                 rating.Comment,
		CreatedAt:               rating.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return marketplace.Rating{}, ports.ErrDuplicateRating
		}
		return marketplace.Rating{}, errs.Wrap(err, "insert rating")
	}
	return mapRating(row), nil
}

func (r *MarketplaceRepository) ListRatingsForRater(ctx context.Context, raterID string, role marketplace.RaterRole) ([]marketplace.Rating, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var column string
	switch role {
	case marketplace.RaterHomeowner:
		column = "homeowner_id"
	case marketplace.RaterContractor:
		column = "contractor_id"
	default:
		return nil, fmt.Errorf("%w: %q", marketplace.ErrInvalidRaterRole, role)
	}

	var rows []model.Rating
	if err := db.Where(column+" = ? AND rater_role = ?", raterID, string(role)).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query ratings for rater")
	}

	items := make([]marketplace.Rating, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapRating(row))
	}
	return items, nil
}

func mapRating(row model.Rating) marketplace.Rating {
	return marketplace.Rating{
		ID:           row.ID,
		JobID:        row.JobID,
		RaterRole:    marketplace.RaterRole(row.RaterRole),
		HomeownerID:  row.HomeownerID,
		ContractorID: row.ContractorID,
		Stars:        row.Stars,
		Answers: marketplace.Answers{
			OnTime:                  row.OnTime,
			PriceAccurate:           row.PriceAccurate,
			WouldHireAgain:          row.WouldHireAgain,
			ClearInstructions:       row.ClearInstructions,
			PaymentSmooth:           row.PaymentSmooth,
			ProfessionalInteraction: row.ProfessionalInteraction,
		},
		Comment:   row.Comment,
		CreatedAt: row.CreatedAt,
	}
}
