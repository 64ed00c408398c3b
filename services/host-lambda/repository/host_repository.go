package repository

import (
	"context"

	"github.com/checkin-web/common/apiclient"
	"github.com/checkin-web/services/host-lambda/models"
)

// HostRepository calls the host endpoints with the host's bearer token.
type HostRepository struct {
	api *apiclient.Client
}

// NewHostRepository creates a new host repository
func NewHostRepository(api *apiclient.Client) *HostRepository {
	if api == nil {
		api = apiclient.New(nil)
	}
	return &HostRepository{api: api}
}

// ListEvents calls GET /api/host/events.
func (r *HostRepository) ListEvents(ctx context.Context, token string) ([]models.HostEvent, error) {
	var events []models.HostEvent
	if err := r.api.Get(ctx, "/api/host/events", token, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// SetVisibility calls PATCH /api/host/events/{id}/visibility.
func (r *HostRepository) SetVisibility(ctx context.Context, token string, eventID int64, visible bool) error {
	return r.api.Patch(ctx, apiclient.Path("/api/host/events/%d/visibility", eventID), token, &models.VisibilityRequest{Visible: visible}, nil)
}

// GetScheduleStatus calls GET /api/host/events/{id}/schedules-status.
func (r *HostRepository) GetScheduleStatus(ctx context.Context, token string, eventID int64) (*models.EventStatus, error) {
	var status models.EventStatus
	if err := r.api.Get(ctx, apiclient.Path("/api/host/events/%d/schedules-status", eventID), token, &status); err != nil {
		return nil, err
	}
	if status.EventID == 0 {
		status.EventID = eventID
	}
	return &status, nil
}

// CheckinByQR calls POST /api/host/checkin.
func (r *HostRepository) CheckinByQR(ctx context.Context, token, qrToken string) (*models.CheckinResult, error) {
	var result models.CheckinResult
	if err := r.api.Post(ctx, "/api/host/checkin", token, &models.CheckinRequest{QRToken: qrToken}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckinReservation calls PATCH /api/host/reservations/{id}/checkin.
func (r *HostRepository) CheckinReservation(ctx context.Context, token string, reservationID int64) error {
	return r.api.Patch(ctx, apiclient.Path("/api/host/reservations/%d/checkin", reservationID), token, nil, nil)
}
