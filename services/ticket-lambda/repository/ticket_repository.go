package repository

import (
	"context"

	"github.com/checkin-web/common/apiclient"
	"github.com/checkin-web/services/ticket-lambda/models"
)

// TicketRepository reads and cancels reservations by QR token. The
// guest-lookup token, when the guest has one, is the bearer credential.
type TicketRepository struct {
	api *apiclient.Client
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(api *apiclient.Client) *TicketRepository {
	if api == nil {
		api = apiclient.New(nil)
	}
	return &TicketRepository{api: api}
}

// GetByQRToken calls GET /api/reservations/qr/{qrToken}.
func (r *TicketRepository) GetByQRToken(ctx context.Context, qrToken, lookupToken string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.api.Get(ctx, apiclient.Path("/api/reservations/qr/%s", qrToken), lookupToken, &ticket); err != nil {
		return nil, err
	}
	if ticket.QRToken == "" {
		ticket.QRToken = qrToken
	}
	return &ticket, nil
}

// Cancel calls DELETE /api/reservations/{id}.
func (r *TicketRepository) Cancel(ctx context.Context, reservationID int64, lookupToken string) error {
	return r.api.Delete(ctx, apiclient.Path("/api/reservations/%d", reservationID), lookupToken, nil)
}
