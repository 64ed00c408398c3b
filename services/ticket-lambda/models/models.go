package models

import (
	"html/template"
	"time"

	common "github.com/checkin-web/common/models"
	"github.com/checkin-web/common/render"
)

// ============================================================
// Ticket - GET /api/reservations/qr/{qrToken}
// ============================================================
type Ticket struct {
	ID            int64                    `json:"id"`
	QRToken       string                   `json:"qrToken"`
	Status        common.ReservationStatus `json:"status"`
	GuestName     string                   `json:"guestName"`
	PhoneNumber   string                   `json:"phoneNumber"`
	EventCode     string                   `json:"eventCode"`
	EventTitle    string                   `json:"eventTitle"`
	Location      string                   `json:"location"`
	ScheduleStart common.APITime           `json:"startTime"`
	ScheduleEnd   common.APITime           `json:"endTime"`
	CheckedInAt   common.APITime           `json:"checkedInAt"`
	Answers       []common.AnswerView      `json:"answers"`
}

// CanCancel is true only while the reservation is confirmed and unused.
func (t *Ticket) CanCancel() bool {
	return t.Status.IsConfirmed()
}

// ShowQR hides the code of a cancelled reservation.
func (t *Ticket) ShowQR() bool {
	return !t.Status.IsCancelled()
}

// ============================================================
// Views
// ============================================================

type TicketPage struct {
	render.Base
	Ticket         *Ticket
	TokenPath      string       // path-escaped QR token for links
	QRImage        template.URL // data: URI of the QR PNG
	AsOf           time.Time
	RefreshSeconds int
	CancelError    string
}
