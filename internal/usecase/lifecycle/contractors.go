package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/marketplace"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
	"homematch/internal/ports"
)

// RegisterContractor creates a contractor profile awaiting verification.
// The primary trade is always part of the trade list.
func (s *Service) RegisterContractor(ctx context.Context, input RegisterContractorInput) (marketplace.Contractor, error) {
	if err := s.check(ctx); err != nil {
		return marketplace.Contractor{}, err
	}
	userID, err := required("user id", input.UserID)
	if err != nil {
		return marketplace.Contractor{}, err
	}
	fullName, err := required("full name", input.FullName)
	if err != nil {
		return marketplace.Contractor{}, err
	}

	primary := strings.ToLower(strings.TrimSpace(input.PrimaryTrade))
	trades := marketplace.NormalizeTags(input.TradeTypes)
	if primary == "" && len(trades) > 0 {
		primary = trades[0]
	}
	if primary == "" {
		return marketplace.Contractor{}, errs.Validation("primary trade is required")
	}
	trades = marketplace.NormalizeTags(append([]string{primary}, trades...))
	for _, trade := range trades {
		if !pricing.ValidCategoryTag(trade) {
			return marketplace.Contractor{}, errs.Validation("%v: %q", marketplace.ErrInvalidCategory, trade)
		}
	}

	zips := marketplace.NormalizeTags(input.ServiceZips)
	if len(zips) > marketplace.MaxServiceZips {
		return marketplace.Contractor{}, errs.Validation("%v: got %d", marketplace.ErrTooManyServiceZips, len(zips))
	}
	for _, zip := range zips {
		if !marketplace.ValidZip(zip) {
			return marketplace.Contractor{}, errs.Validation("%v: %q", marketplace.ErrInvalidZip, zip)
		}
	}

	var contractor marketplace.Contractor
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		_, err := s.contractors.GetContractorByUserID(txCtx, userID)
		switch {
		case err == nil:
			return errs.Conflict(errs.CodeDuplicateContractor, "user %s already has a contractor profile", userID)
		case !errors.Is(err, ports.ErrContractorNotFound):
			return errs.Wrap(err, "check existing profile")
		}

		contractor, err = s.contractors.CreateContractor(txCtx, marketplace.Contractor{
			ID:           s.newID(),
			UserID:       userID,
			FullName:     fullName,
			Bio:          strings.TrimSpace(input.Bio),
			PrimaryTrade: primary,
			TradeTypes:   trades,
			ServiceZips:  zips,
			Verification: marketplace.VerificationPending,
			CreatedAt:    s.now(),
		})
		return errs.Wrap(err, "create contractor")
	})
	if err != nil {
		return marketplace.Contractor{}, err
	}

	logging.Info(s.logCtx(ctx, slog.String("contractor_id", contractor.ID)), "contractor registered", slog.Any("trades", contractor.TradeTypes))
	return contractor, nil
}

// SetVerification records an operator's verification decision.
func (s *Service) SetVerification(ctx context.Context, contractorID string, status string) (marketplace.Contractor, error) {
	if err := s.check(ctx); err != nil {
		return marketplace.Contractor{}, err
	}
	contractorID, err := required("contractor id", contractorID)
	if err != nil {
		return marketplace.Contractor{}, err
	}
	st, err := marketplace.ParseVerificationStatus(status)
	if err != nil {
		return marketplace.Contractor{}, errs.Validation("%v", err)
	}

	if err := s.contractors.UpdateVerification(ctx, contractorID, st); err != nil {
		return marketplace.Contractor{}, notFound(err, "contractor", contractorID)
	}
	return s.GetContractor(ctx, contractorID)
}

func (s *Service) GetContractor(ctx context.Context, contractorID string) (marketplace.Contractor, error) {
	if err := s.check(ctx); err != nil {
		return marketplace.Contractor{}, err
	}
	c, err := s.contractors.GetContractor(ctx, strings.TrimSpace(contractorID))
	if err != nil {
		return marketplace.Contractor{}, notFound(err, "contractor", contractorID)
	}
	return c, nil
}
