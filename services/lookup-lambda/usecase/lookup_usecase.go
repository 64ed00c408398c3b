package usecase

import (
	"context"
	"strings"

	"github.com/checkin-web/common/config"
	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/validator"
	"github.com/checkin-web/services/lookup-lambda/models"
	"github.com/checkin-web/services/lookup-lambda/repository"
)

type LookupUseCase struct {
	lookupRepo *repository.LookupRepository
	config     *config.SystemConfig
}

func NewLookupUseCase(repo *repository.LookupRepository, cfg *config.SystemConfig) *LookupUseCase {
	if cfg == nil {
		cfg = config.GetConfig()
	}
	return &LookupUseCase{lookupRepo: repo, config: cfg}
}

// Validate checks the form before any call.
func (uc *LookupUseCase) Validate(form *models.LookupForm) error {
	if err := validator.Struct(form); err != nil {
		return err
	}
	if len(validator.DigitsOnly(form.Phone)) < uc.config.PhoneMinLength {
		return apperrors.InvalidPhone(uc.config.PhoneMinLength)
	}
	return nil
}

// Lookup finds the guest's reservations. The phone is sent as digits
// only. A 404 is the same as an empty list; every other failure is an
// error.
func (uc *LookupUseCase) Lookup(ctx context.Context, form *models.LookupForm) (*models.LookupResult, error) {
	if err := uc.Validate(form); err != nil {
		return nil, err
	}

	req := &models.LookupRequest{
		GuestName:   strings.TrimSpace(form.GuestName),
		PhoneNumber: validator.DigitsOnly(form.Phone),
	}
	result, err := uc.lookupRepo.Lookup(ctx, req)
	if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		return &models.LookupResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Reservation lookup for %s returned %d rows",
		validator.MaskPhone(req.PhoneNumber), len(result.Reservations))
	return result, nil
}
