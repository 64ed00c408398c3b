package handler

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gosimple/slug"

	"github.com/checkin-web/common/config"
	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/common/request"
	"github.com/checkin-web/common/response"
	"github.com/checkin-web/common/session"
	"github.com/checkin-web/services/ticket-lambda/models"
	"github.com/checkin-web/services/ticket-lambda/repository"
	"github.com/checkin-web/services/ticket-lambda/usecase"
)

const ticketNotFoundLocation = "/?notice=ticket-not-found"

type TicketHandler struct {
	useCase  *usecase.TicketUseCase
	renderer *render.Renderer
	config   *config.SystemConfig
	now      func() time.Time
}

func NewTicketHandler() *TicketHandler {
	cfg := config.GetConfig()
	return NewTicketHandlerWith(
		usecase.NewTicketUseCase(repository.NewTicketRepository(nil), cfg),
		render.Default(),
		cfg,
		time.Now,
	)
}

func NewTicketHandlerWith(uc *usecase.TicketUseCase, r *render.Renderer, cfg *config.SystemConfig, now func() time.Time) *TicketHandler {
	if now == nil {
		now = time.Now
	}
	return &TicketHandler{useCase: uc, renderer: r, config: cfg, now: now}
}

// HandleTicketPage - GET /t/{qrToken}
func (h *TicketHandler) HandleTicketPage(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ticket, failed := h.loadTicket(ctx, req)
	if failed != nil {
		return *failed, nil
	}

	page := h.ticketPage(ctx, req, ticket)
	if request.Query(req, "notice") == "reservation-cancelled" {
		page.Notice = "예약이 취소되었습니다."
		page.NoticeKind = "info"
	}
	return h.renderer.Page(http.StatusOK, "ticket", page), nil
}

// HandleQRCode - GET /t/{qrToken}/qr.png
func (h *TicketHandler) HandleQRCode(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ticket, failed := h.loadTicket(ctx, req)
	if failed != nil {
		return *failed, nil
	}

	png, err := h.useCase.QRCodePNG(ticket)
	if err != nil {
		return h.fileFailed(ctx, req, err), nil
	}
	return response.Binary(response.ContentTypePNG, "", png), nil
}

// HandleTicketPDF - GET /t/{qrToken}/ticket.pdf
func (h *TicketHandler) HandleTicketPDF(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ticket, failed := h.loadTicket(ctx, req)
	if failed != nil {
		return *failed, nil
	}

	data, err := h.useCase.TicketPDF(ticket)
	if err != nil {
		return h.fileFailed(ctx, req, err), nil
	}
	return response.Binary(response.ContentTypePDF, pdfFilename(ticket), data), nil
}

// HandleCancel - POST /t/{qrToken}/cancel
func (h *TicketHandler) HandleCancel(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	values, err := request.Form(req)
	if err != nil {
		return h.renderer.Error(req, http.StatusBadRequest, "요청을 읽을 수 없습니다."), nil
	}

	ticket, failed := h.loadTicket(ctx, req)
	if failed != nil {
		return *failed, nil
	}

	lookupToken := session.Read(req, session.LookupTokenCookie)
	confirmed := values.Get("confirm") != ""
	if err := h.useCase.Cancel(ctx, ticket, lookupToken, confirmed); err != nil {
		appErr := apperrors.ToAppError(err)
		if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			return response.Redirect(ticketNotFoundLocation), nil
		}

		page := h.ticketPage(ctx, req, ticket)
		page.CancelError = appErr.Message
		status := appErr.HTTPStatus
		if status >= 500 {
			logger.WithContext(ctx).WithError(err).Error("Cancellation failed")
			status = http.StatusBadGateway
		}
		return h.renderer.Page(status, "ticket", page), nil
	}

	location := "/t/" + url.PathEscape(ticket.QRToken) + "?notice=reservation-cancelled"
	return response.Redirect(location), nil
}

// loadTicket fetches the ticket named in the path. An unknown or
// malformed token sends the guest home with a notice.
func (h *TicketHandler) loadTicket(ctx context.Context, req events.APIGatewayProxyRequest) (*models.Ticket, *events.APIGatewayProxyResponse) {
	qrToken := request.PathParam(req, "qrToken")
	lookupToken := session.Read(req, session.LookupTokenCookie)

	ticket, err := h.useCase.GetTicket(ctx, qrToken, lookupToken)
	if err == nil {
		return ticket, nil
	}

	var resp events.APIGatewayProxyResponse
	if apperrors.HasCode(err, apperrors.ErrCodeNotFound, apperrors.ErrCodeValidation) {
		resp = response.Redirect(ticketNotFoundLocation)
	} else {
		logger.WithContext(ctx).WithError(err).Error("Failed to load ticket")
		resp = h.renderer.Error(req, http.StatusBadGateway, "")
	}
	return nil, &resp
}

func (h *TicketHandler) ticketPage(ctx context.Context, req events.APIGatewayProxyRequest, ticket *models.Ticket) models.TicketPage {
	page := models.TicketPage{
		Base:           render.NewBase(req, ticket.EventTitle),
		Ticket:         ticket,
		TokenPath:      url.PathEscape(ticket.QRToken),
		AsOf:           h.now(),
		RefreshSeconds: h.config.TicketRefreshSeconds,
	}
	uri, err := h.useCase.QRCodeDataURI(ticket)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("QR image unavailable")
	}
	// data: URIs are otherwise rejected by html/template
	page.QRImage = template.URL(uri)
	return page
}

func (h *TicketHandler) fileFailed(ctx context.Context, req events.APIGatewayProxyRequest, err error) events.APIGatewayProxyResponse {
	if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		return h.renderer.NotFound(req, "취소된 예약에는 QR 코드가 없습니다.")
	}
	logger.WithContext(ctx).WithError(err).Error("Ticket file generation failed")
	return h.renderer.Error(req, http.StatusInternalServerError, "")
}

func pdfFilename(ticket *models.Ticket) string {
	name := slug.Make(ticket.EventTitle)
	if name == "" {
		name = "ticket"
	}
	return name + "-ticket.pdf"
}
