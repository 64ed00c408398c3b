package repository

import (
	"context"

	"github.com/checkin-web/common/apiclient"
	"github.com/checkin-web/services/lookup-lambda/models"
)

type LookupRepository struct {
	api *apiclient.Client
}

// NewLookupRepository creates a new lookup repository
func NewLookupRepository(api *apiclient.Client) *LookupRepository {
	if api == nil {
		api = apiclient.New(nil)
	}
	return &LookupRepository{api: api}
}

// Lookup calls POST /api/reservations/lookup.
func (r *LookupRepository) Lookup(ctx context.Context, req *models.LookupRequest) (*models.LookupResult, error) {
	var result models.LookupResult
	if err := r.api.Post(ctx, "/api/reservations/lookup", "", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
