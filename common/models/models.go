package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ReservationStatus is the server-side state of a reservation.
type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCheckedIn ReservationStatus = "CHECKED_IN"
	StatusCancelled ReservationStatus = "CANCELLED"
)

// UnmarshalJSON upper-cases the value and folds known aliases.
func (s *ReservationStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// ParseStatus normalizes a status string from the API.
func ParseStatus(raw string) ReservationStatus {
	switch v := strings.ToUpper(strings.TrimSpace(raw)); v {
	case "CHECKEDIN", "CHECKED-IN", "CHECKED_IN", "USED":
		return StatusCheckedIn
	case "CANCELED", "CANCELLED":
		return StatusCancelled
	case "CONFIRMED", "RESERVED", "PENDING", "":
		return StatusConfirmed
	default:
		return ReservationStatus(v)
	}
}

// Label is the Korean badge text.
func (s ReservationStatus) Label() string {
	switch s {
	case StatusConfirmed:
		return "예약 확정"
	case StatusCheckedIn:
		return "입장 완료"
	case StatusCancelled:
		return "예약 취소"
	default:
		return string(s)
	}
}

func (s ReservationStatus) IsConfirmed() bool { return s == StatusConfirmed }
func (s ReservationStatus) IsCheckedIn() bool { return s == StatusCheckedIn }
func (s ReservationStatus) IsCancelled() bool { return s == StatusCancelled }

// AnswerView is a question/answer pair as the API echoes it back.
type AnswerView struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Seoul is where events take place; timestamps without an offset are
// read in this zone.
var Seoul = loadSeoul()

func loadSeoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// APITime accepts the timestamp layouts the platform API emits.
type APITime struct {
	time.Time
}

var apiTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func (t *APITime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTime(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t APITime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// ParseTime tries each known layout in order.
func ParseTime(raw string) (time.Time, error) {
	for _, layout := range apiTimeLayouts {
		var (
			parsed time.Time
			err    error
		)
		if layout == time.RFC3339Nano {
			parsed, err = time.Parse(layout, raw)
		} else {
			parsed, err = time.ParseInLocation(layout, raw, Seoul)
		}
		if err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}
