package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/jung-kurt/gofpdf"
)

// TicketPDFData holds what goes on a printable reservation ticket.
type TicketPDFData struct {
	ReservationID  string
	QRToken        string
	EventTitle     string
	Location       string
	ScheduleStart  time.Time
	ScheduleEnd    time.Time
	GuestName      string
	Phone          string // already formatted for display
	Status         string // display label
	StatusCode     string // ASCII status, printed when no font is loaded
	QRCodePngBytes []byte
}

// Options controls font handling. Hangul needs a TrueType font; without
// one the core Helvetica font is used and non-Latin text is replaced.
type Options struct {
	FontPath string
}

// DefaultOptions reads TICKET_FONT_PATH.
func DefaultOptions() Options {
	return Options{FontPath: os.Getenv("TICKET_FONT_PATH")}
}

const fontFamily = "ticket"

// GenerateTicketPDF renders a one-page A5 ticket with the QR on top.
func GenerateTicketPDF(data TicketPDFData, opts Options) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("Ticket "+data.ReservationID, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	family, text, unicodeFont := "Helvetica", latinOnly, false
	if opts.FontPath != "" {
		if _, err := os.Stat(opts.FontPath); err == nil {
			pdf.AddUTF8Font(fontFamily, "", opts.FontPath)
			pdf.AddUTF8Font(fontFamily, "B", opts.FontPath)
			if pdf.Err() {
				return nil, fmt.Errorf("failed to load ticket font: %w", pdf.Error())
			}
			family, text = fontFamily, func(s string) string { return s }
			unicodeFont = true
		}
	}

	pageW, _ := pdf.GetPageSize()
	margin := 14.0
	contentW := pageW - 2*margin

	// QR
	if len(data.QRCodePngBytes) > 0 {
		imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
		imgName := "qr_" + data.ReservationID
		pdf.RegisterImageOptionsReader(imgName, imgOpts, bytes.NewReader(data.QRCodePngBytes))

		size := 80.0
		pdf.ImageOptions(imgName, (pageW-size)/2, 16, size, size, false, imgOpts, 0, "")
		pdf.SetY(16 + size + 4)
	} else {
		pdf.SetY(20)
	}

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.4)
	pdf.Line(margin, pdf.GetY(), pageW-margin, pdf.GetY())
	pdf.Ln(6)

	pdf.SetX(margin)
	pdf.SetFont(family, "B", 18)
	pdf.MultiCell(contentW, 8, text(data.EventTitle), "", "L", false)
	pdf.Ln(2)

	rows := [][2]string{
		{"Date", formatSchedule(data.ScheduleStart, data.ScheduleEnd)},
		{"Location", data.Location},
		{"Guest", data.GuestName},
		{"Phone", data.Phone},
		{"Status", statusText(data, unicodeFont)},
	}
	for _, r := range rows {
		if strings.TrimSpace(r[1]) == "" {
			continue
		}
		pdf.SetX(margin)
		pdf.SetFont(family, "", 11)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(28, 7, r[0], "", 0, "L", false, 0, "")
		pdf.SetFont(family, "B", 12)
		pdf.SetTextColor(20, 20, 20)
		pdf.MultiCell(contentW-28, 7, text(r[1]), "", "L", false)
	}

	pdf.Ln(4)
	pdf.SetX(margin)
	pdf.SetFont(family, "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.MultiCell(contentW, 4, "Reservation "+data.ReservationID, "", "C", false)
	pdf.SetX(margin)
	pdf.MultiCell(contentW, 4, text("Show this QR code at the entrance to check in."), "", "C", false)

	if pdf.Err() {
		return nil, fmt.Errorf("failed to lay out ticket: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func formatSchedule(start, end time.Time) string {
	if start.IsZero() {
		return ""
	}
	s := start.Format("2006-01-02 15:04")
	if !end.IsZero() {
		if end.Format("2006-01-02") == start.Format("2006-01-02") {
			s += " - " + end.Format("15:04")
		} else {
			s += " - " + end.Format("2006-01-02 15:04")
		}
	}
	return s
}

// latinOnly keeps printable ASCII and collapses everything else into a
// single '?' per run, since the core fonts cannot draw Hangul.
func latinOnly(s string) string {
	var sb strings.Builder
	lastReplaced := false
	for _, r := range s {
		if r < 128 && unicode.IsPrint(r) {
			sb.WriteRune(r)
			lastReplaced = false
			continue
		}
		if unicode.IsSpace(r) {
			sb.WriteByte(' ')
			lastReplaced = false
			continue
		}
		if !lastReplaced {
			sb.WriteByte('?')
			lastReplaced = true
		}
	}
	return sb.String()
}

// statusText picks the label when the font can draw it and the ASCII
// status otherwise.
func statusText(data TicketPDFData, unicodeFont bool) string {
	if unicodeFont || data.StatusCode == "" {
		return data.Status
	}
	return data.StatusCode
}
