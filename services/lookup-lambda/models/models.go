package models

import (
	"bytes"
	"encoding/json"
	"net/url"

	common "github.com/checkin-web/common/models"
	"github.com/checkin-web/common/render"
)

// ============================================================
// API payloads - POST /api/reservations/lookup
// ============================================================

type LookupRequest struct {
	GuestName   string `json:"guestName"`
	PhoneNumber string `json:"phoneNumber"` // digits only
}

// Reservation is one row of a lookup result.
type Reservation struct {
	ID            int64                    `json:"id"`
	QRToken       string                   `json:"qrToken"`
	Status        common.ReservationStatus `json:"status"`
	EventCode     string                   `json:"eventCode"`
	EventTitle    string                   `json:"eventTitle"`
	ScheduleStart common.APITime           `json:"startTime"`
	ScheduleEnd   common.APITime           `json:"endTime"`
}

// TokenPath is the QR token escaped as one path segment.
func (r Reservation) TokenPath() string {
	return url.PathEscape(r.QRToken)
}

// LookupResult accepts both shapes the API answers with: an object
// carrying a guest token, or a bare array of reservations.
type LookupResult struct {
	LookupToken  string        `json:"lookupToken"`
	Reservations []Reservation `json:"reservations"`
}

func (r *LookupResult) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		r.LookupToken = ""
		return json.Unmarshal(data, &r.Reservations)
	}

	var obj struct {
		LookupToken  string        `json:"lookupToken"`
		Token        string        `json:"token"`
		Reservations []Reservation `json:"reservations"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.LookupToken = obj.LookupToken
	if r.LookupToken == "" {
		r.LookupToken = obj.Token
	}
	r.Reservations = obj.Reservations
	return nil
}

// ============================================================
// Form and view
// ============================================================

type LookupForm struct {
	GuestName      string `form:"name" validate:"notblank,max=50"`
	Phone          string `form:"phone" validate:"required"`
	RecaptchaToken string `form:"-"`
}

type LookupPage struct {
	render.Base
	Form           LookupForm
	FieldErrors    map[string]string
	FormError      string
	Searched       bool
	Reservations   []Reservation
	PhoneMinLength int
}
