package models

import (
	"strings"

	common "github.com/checkin-web/common/models"
	"github.com/checkin-web/common/render"
)

// Question texts that stand for the built-in name and phone inputs.
const (
	NameQuestionText  = "이름"
	PhoneQuestionText = "연락처"
)

// ============================================================
// API payloads - GET /api/events/{eventCode}
// ============================================================

// Event is the public landing page payload.
type Event struct {
	ID          int64      `json:"id"`
	EventCode   string     `json:"eventCode"`
	Title       string     `json:"title"`
	Location    string     `json:"location"`
	Images      []string   `json:"images"`
	Description string     `json:"description"`
	Visible     bool       `json:"visible"`
	Schedules   []Schedule `json:"schedules"`
	Questions   []Question `json:"questions"`
}

// Schedule is one bookable time slot.
type Schedule struct {
	ID            int64          `json:"id"`
	StartTime     common.APITime `json:"startTime"`
	EndTime       common.APITime `json:"endTime"`
	Capacity      int            `json:"capacity"`
	ReservedCount int            `json:"reservedCount"`
}

// Remaining is capacity minus reserved, never negative.
func (s Schedule) Remaining() int {
	if r := s.Capacity - s.ReservedCount; r > 0 {
		return r
	}
	return 0
}

// SoldOut disables the option on the form.
func (s Schedule) SoldOut() bool {
	return s.Remaining() == 0
}

// Question is a host-defined reservation question.
type Question struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	Required bool   `json:"required"`
}

// Alias returns "name" or "phone" for the built-in questions, "" otherwise.
func (q Question) Alias() string {
	switch strings.TrimSpace(q.Text) {
	case NameQuestionText:
		return "name"
	case PhoneQuestionText:
		return "phone"
	default:
		return ""
	}
}

// FreeText reports whether the question is rendered as its own input.
func (q Question) FreeText() bool {
	return q.Alias() == ""
}

// FindSchedule returns the schedule with id, or nil.
func (e *Event) FindSchedule(id int64) *Schedule {
	for i := range e.Schedules {
		if e.Schedules[i].ID == id {
			return &e.Schedules[i]
		}
	}
	return nil
}

// FreeTextQuestions are the questions that get their own input.
func (e *Event) FreeTextQuestions() []Question {
	out := make([]Question, 0, len(e.Questions))
	for _, q := range e.Questions {
		if q.FreeText() {
			out = append(out, q)
		}
	}
	return out
}

// ============================================================
// API payloads - POST /api/reservations
// ============================================================

type Answer struct {
	QuestionID int64  `json:"questionId"`
	Answer     string `json:"answer"`
}

type ReservationRequest struct {
	EventCode   string   `json:"eventCode"`
	ScheduleID  int64    `json:"scheduleId"`
	GuestName   string   `json:"guestName"`
	PhoneNumber string   `json:"phoneNumber"`
	Answers     []Answer `json:"answers"`
}

type ReservationResult struct {
	ID      int64  `json:"id"`
	QRToken string `json:"qrToken"`
}

// ============================================================
// Form state
// ============================================================

// ReservationForm is the guest's local selection state. It is echoed
// back into the page when validation fails.
type ReservationForm struct {
	EventCode      string
	ScheduleID     int64
	GuestName      string
	PhoneNumber    string
	Responses      map[int64]string // free-text answers by question id
	RecaptchaToken string
}

// ============================================================
// Views
// ============================================================

type HomePage struct {
	render.Base
	LastTicket string
}

type EventPage struct {
	render.Base
	Event             *Event
	Form              ReservationForm
	FieldErrors       map[string]string
	FormError         string
	PhoneMinLength    int
	CarouselInterval  int
	FreeTextQuestions []Question
}

type PrivateEventPage struct {
	render.Base
	EventCode string
}
