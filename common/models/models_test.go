package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want ReservationStatus
	}{
		{"CONFIRMED", StatusConfirmed},
		{"confirmed", StatusConfirmed},
		{"", StatusConfirmed},
		{"CHECKED_IN", StatusCheckedIn},
		{"checkedIn", StatusCheckedIn},
		{"CANCELED", StatusCancelled},
		{"REFUNDED", ReservationStatus("REFUNDED")},
	}
	for _, tt := range tests {
		if got := ParseStatus(tt.in); got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAPITimeLayouts(t *testing.T) {
	tests := []struct {
		name string
		json string
		want time.Time
	}{
		{"rfc3339", `"2026-05-02T14:00:00+09:00"`, time.Date(2026, 5, 2, 5, 0, 0, 0, time.UTC)},
		{"no zone", `"2026-05-02T14:00:00"`, time.Date(2026, 5, 2, 14, 0, 0, 0, Seoul)},
		{"space", `"2026-05-02 14:00"`, time.Date(2026, 5, 2, 14, 0, 0, 0, Seoul)},
		{"null", `null`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got APITime
			if err := json.Unmarshal([]byte(tt.json), &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got.Time, tt.want)
			}
		})
	}
}

func TestAPITimeRejectsGarbage(t *testing.T) {
	var got APITime
	if err := json.Unmarshal([]byte(`"next tuesday"`), &got); err == nil {
		t.Error("expected an error")
	}
}

func TestStatusInStruct(t *testing.T) {
	var v struct {
		Status ReservationStatus `json:"status"`
	}
	if err := json.Unmarshal([]byte(`{"status":"checked_in"}`), &v); err != nil {
		t.Fatal(err)
	}
	if !v.Status.IsCheckedIn() {
		t.Errorf("Status = %q", v.Status)
	}
}
