package repository

import (
	"context"

	"github.com/checkin-web/common/apiclient"
	"github.com/checkin-web/services/event-lambda/models"
)

// EventRepository reads events and creates reservations through the
// platform API.
type EventRepository struct {
	api *apiclient.Client
}

// NewEventRepository creates a new event repository
func NewEventRepository(api *apiclient.Client) *EventRepository {
	if api == nil {
		api = apiclient.New(nil)
	}
	return &EventRepository{api: api}
}

// GetEvent calls GET /api/events/{eventCode}.
func (r *EventRepository) GetEvent(ctx context.Context, eventCode string) (*models.Event, error) {
	var event models.Event
	if err := r.api.Get(ctx, apiclient.Path("/api/events/%s", eventCode), "", &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// CreateReservation calls POST /api/reservations.
func (r *EventRepository) CreateReservation(ctx context.Context, req *models.ReservationRequest) (*models.ReservationResult, error) {
	var result models.ReservationResult
	if err := r.api.Post(ctx, "/api/reservations", "", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
