package usecase

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/common/validator"
	"github.com/checkin-web/services/host-lambda/models"
)

const rosterSheet = "Roster"

// RosterExport - roster of every schedule as one worksheet
func (uc *HostUseCase) RosterExport(ctx context.Context, token string, eventID int64) ([]byte, string, error) {
	status, err := uc.hostRepo.GetScheduleStatus(ctx, token, eventID)
	if err != nil {
		return nil, "", err
	}
	data, err := BuildRoster(status)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "명단 파일을 만들 수 없습니다")
	}
	return data, RosterFilename(status), nil
}

// RosterFilename slugs the event title, falling back to the id.
func RosterFilename(status *models.EventStatus) string {
	name := slug.Make(status.Title)
	if name == "" {
		name = fmt.Sprintf("event-%d", status.EventID)
	}
	return name + "-roster.xlsx"
}

// BuildRoster writes one row per reservation with a bold header.
func BuildRoster(status *models.EventStatus) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return nil, err
	}

	questions := status.QuestionTexts()
	header := []interface{}{"관람 시간", "예약 번호", "이름", "연락처", "상태", "입장 시각"}
	for _, q := range questions {
		header = append(header, q)
	}
	if err := f.SetSheetRow(rosterSheet, "A1", &header); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(rosterSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	row := 2
	for _, s := range status.Schedules {
		when := render.FormatSchedule(s.StartTime.Time, s.EndTime.Time)
		for _, r := range s.Reservations {
			answers := make(map[string]string, len(r.Answers))
			for _, a := range r.Answers {
				answers[a.Question] = a.Answer
			}
			values := []interface{}{
				when,
				r.ReservationID,
				r.GuestName,
				validator.FormatPhone(r.PhoneNumber),
				r.Status.Label(),
				render.FormatDateTime(r.CheckedInAt.Time),
			}
			for _, q := range questions {
				values = append(values, answers[q])
			}

			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(rosterSheet, cell, &values); err != nil {
				return nil, err
			}
			row++
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(rosterSheet, "A", lastCol, 20); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
