package models

import (
	"bytes"
	"encoding/json"

	common "github.com/checkin-web/common/models"
	"github.com/checkin-web/common/render"
)

// ============================================================
// Dashboard - GET /api/host/events
// ============================================================

type HostEvent struct {
	ID               int64  `json:"id"`
	EventCode        string `json:"eventCode"`
	Title            string `json:"title"`
	Visible          bool   `json:"visible"`
	ScheduleCount    int    `json:"scheduleCount"`
	ReservationCount int    `json:"reservationCount"`
}

// VisibilityRequest - PATCH /api/host/events/{id}/visibility
type VisibilityRequest struct {
	Visible bool `json:"visible"`
}

// VisibilityResult is what the dashboard switch settles on. Reverted is
// set when the optimistic flip was undone because the call failed.
type VisibilityResult struct {
	Visible  bool   `json:"visible"`
	Reverted bool   `json:"reverted"`
	Error    string `json:"error,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// ============================================================
// Event detail - GET /api/host/events/{id}/schedules-status
// ============================================================

type RosterEntry struct {
	ReservationID int64                    `json:"reservationId"`
	GuestName     string                   `json:"guestName"`
	PhoneNumber   string                   `json:"phoneNumber"`
	Status        common.ReservationStatus `json:"status"`
	CheckedInAt   common.APITime           `json:"checkedInAt"`
	Answers       []common.AnswerView      `json:"answers"`
}

type ScheduleStatus struct {
	ScheduleID    int64          `json:"scheduleId"`
	StartTime     common.APITime `json:"startTime"`
	EndTime       common.APITime `json:"endTime"`
	Capacity      int            `json:"capacity"`
	ReservedCount int            `json:"reservedCount"`
	Reservations  []RosterEntry  `json:"reservations"`
}

// CheckedInCount counts admitted guests on the roster.
func (s ScheduleStatus) CheckedInCount() int {
	n := 0
	for _, r := range s.Reservations {
		if r.Status.IsCheckedIn() {
			n++
		}
	}
	return n
}

// EventStatus is the detail payload. The API may also answer with a bare
// array of schedules.
type EventStatus struct {
	EventID   int64            `json:"eventId"`
	EventCode string           `json:"eventCode"`
	Title     string           `json:"title"`
	Schedules []ScheduleStatus `json:"schedules"`
}

func (e *EventStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &e.Schedules)
	}
	type plain EventStatus
	return json.Unmarshal(data, (*plain)(e))
}

// QuestionTexts collects every question asked across the roster, in
// first-seen order, for the export header.
func (e *EventStatus) QuestionTexts() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range e.Schedules {
		for _, r := range s.Reservations {
			for _, a := range r.Answers {
				if !seen[a.Question] {
					seen[a.Question] = true
					out = append(out, a.Question)
				}
			}
		}
	}
	return out
}

// ============================================================
// Check-in
// ============================================================

// CheckinRequest - POST /api/host/checkin
type CheckinRequest struct {
	QRToken string `json:"qrToken"`
}

type CheckinResult struct {
	ReservationID int64                    `json:"reservationId"`
	GuestName     string                   `json:"guestName"`
	Status        common.ReservationStatus `json:"status"`
	CheckedInAt   common.APITime           `json:"checkedInAt"`
}

// Scan outcomes reported to the scanner page.
const (
	OutcomeCheckedIn    = "checked_in"
	OutcomeDuplicate    = "duplicate"
	OutcomeCoolingDown  = "cooling_down"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

type ScanResponse struct {
	Outcome   string `json:"outcome"`
	Message   string `json:"message"`
	GuestName string `json:"guestName,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
}

// ============================================================
// Views
// ============================================================

type DashboardRow struct {
	HostEvent
	ShareURL string
}

type DashboardPage struct {
	render.Base
	Events []DashboardRow
}

type EventDetailPage struct {
	render.Base
	EventID        int64
	Status         *EventStatus
	ScanCooldownMs int
}
