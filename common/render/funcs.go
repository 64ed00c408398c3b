package render

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/checkin-web/common/models"
	"github.com/checkin-web/common/validator"
)

// Raw HTML in descriptions is dropped; goldmark only passes it through
// with html.WithUnsafe.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

var weekdays = [...]string{"일", "월", "화", "수", "목", "금", "토"}

// Funcs is the template function map.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"phone":       validator.FormatPhone,
		"markdown":    Markdown,
		"schedule":    FormatSchedule,
		"datetime":    FormatDateTime,
		"clock":       FormatClock,
		"ms":          func(seconds int) int { return seconds * 1000 },
		"statusClass": statusClass,
		"add":         func(a, b int) int { return a + b },
	}
}

// Markdown renders an event description.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func inSeoul(t time.Time) time.Time {
	return t.In(models.Seoul)
}

// FormatSchedule renders "5월 2일 (토) 14:00 ~ 16:00"; an end on another
// day repeats the date.
func FormatSchedule(start, end time.Time) string {
	if start.IsZero() {
		return ""
	}
	s := inSeoul(start)
	out := fmt.Sprintf("%d월 %d일 (%s) %s", int(s.Month()), s.Day(), weekdays[s.Weekday()], s.Format("15:04"))
	if end.IsZero() {
		return out
	}
	e := inSeoul(end)
	if e.Year() == s.Year() && e.YearDay() == s.YearDay() {
		return out + " ~ " + e.Format("15:04")
	}
	return out + fmt.Sprintf(" ~ %d월 %d일 (%s) %s", int(e.Month()), e.Day(), weekdays[e.Weekday()], e.Format("15:04"))
}

// FormatDateTime renders "2026.05.02 (토) 14:05".
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	s := inSeoul(t)
	return fmt.Sprintf("%s (%s) %s", s.Format("2006.01.02"), weekdays[s.Weekday()], s.Format("15:04"))
}

// FormatClock renders the seconds-precision "as of" time on tickets.
func FormatClock(t time.Time) string {
	return inSeoul(t).Format("15:04:05")
}

func statusClass(s models.ReservationStatus) string {
	switch s {
	case models.StatusCheckedIn:
		return "badge-checked-in"
	case models.StatusCancelled:
		return "badge-cancelled"
	default:
		return "badge-confirmed"
	}
}
