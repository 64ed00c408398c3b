package usecase

import (
	"context"
	"strconv"
	"strings"

	"github.com/checkin-web/common/config"
	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/pdf"
	"github.com/checkin-web/common/qrcode"
	"github.com/checkin-web/common/validator"
	"github.com/checkin-web/services/ticket-lambda/models"
	"github.com/checkin-web/services/ticket-lambda/repository"
)

type TicketUseCase struct {
	ticketRepo *repository.TicketRepository
	config     *config.SystemConfig
	pdfOptions pdf.Options
}

func NewTicketUseCase(repo *repository.TicketRepository, cfg *config.SystemConfig) *TicketUseCase {
	if cfg == nil {
		cfg = config.GetConfig()
	}
	return &TicketUseCase{
		ticketRepo: repo,
		config:     cfg,
		pdfOptions: pdf.DefaultOptions(),
	}
}

// GetTicket - fetch the ticket behind a QR token
func (uc *TicketUseCase) GetTicket(ctx context.Context, qrToken, lookupToken string) (*models.Ticket, error) {
	if strings.TrimSpace(qrToken) == "" {
		return nil, apperrors.NotFound("티켓")
	}
	return uc.ticketRepo.GetByQRToken(ctx, qrToken, lookupToken)
}

// Cancel - cancel a confirmed reservation. Nothing is sent unless the
// guest ticked the confirmation.
func (uc *TicketUseCase) Cancel(ctx context.Context, ticket *models.Ticket, lookupToken string, confirmed bool) error {
	if !confirmed {
		return apperrors.InvalidInput("confirm", "취소하려면 확인란에 체크해주세요")
	}
	if !ticket.CanCancel() {
		return apperrors.BusinessError("입장했거나 이미 취소된 예약은 취소할 수 없습니다")
	}

	err := uc.ticketRepo.Cancel(ctx, ticket.ID, lookupToken)
	logger.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "reservation",
		Action:   "cancel",
		Entity:   "reservation",
		EntityID: strconv.FormatInt(ticket.ID, 10),
		Success:  err == nil,
		Error:    errString(err),
	})
	return err
}

// QRCodePNG - the QR image of a ticket that still has one
func (uc *TicketUseCase) QRCodePNG(ticket *models.Ticket) ([]byte, error) {
	if !ticket.ShowQR() {
		return nil, apperrors.NotFound("QR 코드")
	}
	png, err := qrcode.TicketPNG(ticket.QRToken, uc.config.QRSize)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "QR 코드를 만들 수 없습니다")
	}
	return png, nil
}

// QRCodeDataURI - the same image inlined for the ticket page
func (uc *TicketUseCase) QRCodeDataURI(ticket *models.Ticket) (string, error) {
	if !ticket.ShowQR() {
		return "", nil
	}
	uri, err := qrcode.TicketDataURI(ticket.QRToken, uc.config.QRSize)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "QR 코드를 만들 수 없습니다")
	}
	return uri, nil
}

// TicketPDF - printable ticket with the QR on it
func (uc *TicketUseCase) TicketPDF(ticket *models.Ticket) ([]byte, error) {
	png, err := uc.QRCodePNG(ticket)
	if err != nil {
		return nil, err
	}

	data := pdf.TicketPDFData{
		ReservationID:  strconv.FormatInt(ticket.ID, 10),
		QRToken:        ticket.QRToken,
		EventTitle:     ticket.EventTitle,
		Location:       ticket.Location,
		ScheduleStart:  ticket.ScheduleStart.Time,
		ScheduleEnd:    ticket.ScheduleEnd.Time,
		GuestName:      ticket.GuestName,
		Phone:          validator.FormatPhone(ticket.PhoneNumber),
		Status:         ticket.Status.Label(),
		StatusCode:     string(ticket.Status),
		QRCodePngBytes: png,
	}
	out, err := pdf.GenerateTicketPDF(data, uc.pdfOptions)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "티켓 PDF를 만들 수 없습니다")
	}
	return out, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
