package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/checkin-web/common/config"
	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/recaptcha"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/common/request"
	"github.com/checkin-web/common/response"
	"github.com/checkin-web/common/session"
	"github.com/checkin-web/services/event-lambda/models"
	"github.com/checkin-web/services/event-lambda/repository"
	"github.com/checkin-web/services/event-lambda/usecase"
)

// Notices the home page understands in ?notice=.
var notices = map[string]string{
	"ticket-not-found":      "티켓을 찾을 수 없습니다. 예약 조회에서 다시 확인해주세요.",
	"reservation-cancelled": "예약이 취소되었습니다.",
	"logged-out":            "로그아웃되었습니다.",
}

// EventHandler serves the home page and the public event landing flow.
type EventHandler struct {
	useCase   *usecase.EventUseCase
	renderer  *render.Renderer
	sessions  *session.Store
	recaptcha *recaptcha.Service
	config    *config.SystemConfig
}

// NewEventHandler wires the handler from the environment.
func NewEventHandler() *EventHandler {
	cfg := config.GetConfig()
	return NewEventHandlerWith(
		usecase.NewEventUseCase(repository.NewEventRepository(nil), cfg),
		render.Default(),
		session.NewStore(),
		recaptcha.NewService(nil),
		cfg,
	)
}

// NewEventHandlerWith takes every dependency explicitly.
func NewEventHandlerWith(uc *usecase.EventUseCase, r *render.Renderer, s *session.Store, rc *recaptcha.Service, cfg *config.SystemConfig) *EventHandler {
	return &EventHandler{
		useCase:   uc,
		renderer:  r,
		sessions:  s,
		recaptcha: rc,
		config:    cfg,
	}
}

// HandleHome handles GET /
func (h *EventHandler) HandleHome(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	page := models.HomePage{
		Base:       render.NewBase(req, "이벤트 예약"),
		LastTicket: session.Read(req, session.LastTicketCookie),
	}
	if msg, ok := notices[request.Query(req, "notice")]; ok {
		page.Notice = msg
		page.NoticeKind = "info"
		if request.Query(req, "notice") == "ticket-not-found" {
			page.NoticeKind = "warn"
		}
	}
	return h.renderer.Page(http.StatusOK, "home", page), nil
}

// HandleEventPage handles GET /e/{eventCode}
func (h *EventHandler) HandleEventPage(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	code := request.PathParam(req, "eventCode")

	event, err := h.useCase.GetEvent(ctx, code)
	if err != nil {
		return h.eventLoadFailed(ctx, req, code, err), nil
	}

	page := h.eventPage(req, event, models.ReservationForm{EventCode: event.EventCode})
	return h.renderer.Page(http.StatusOK, "event", page), nil
}

// HandleReserve handles POST /e/{eventCode}/reserve
func (h *EventHandler) HandleReserve(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	code := request.PathParam(req, "eventCode")
	log := logger.WithContext(ctx).With("event_code", code)

	values, err := request.Form(req)
	if err != nil {
		return h.renderer.Error(req, http.StatusBadRequest, "요청을 읽을 수 없습니다."), nil
	}
	form := parseReservationForm(code, values)

	event, err := h.useCase.GetEvent(ctx, code)
	if err != nil {
		return h.eventLoadFailed(ctx, req, code, err), nil
	}

	if err := h.useCase.ValidateReservation(event, &form); err != nil {
		log.Debug("Reservation rejected before submit: %v", err)
		return h.formFailed(req, event, form, err), nil
	}

	if err := h.recaptcha.Check(ctx, form.RecaptchaToken, "reserve", request.ClientIP(req)); err != nil {
		return h.formFailed(req, event, form, err), nil
	}

	result, err := h.useCase.Reserve(ctx, event, &form)
	if err != nil {
		log.WithError(err).Warn("Reservation failed")
		return h.formFailed(req, event, form, err), nil
	}

	location := "/t/" + url.PathEscape(result.QRToken)
	return response.Redirect(location, h.sessions.LastTicket(result.QRToken)), nil
}

func (h *EventHandler) eventPage(req events.APIGatewayProxyRequest, event *models.Event, form models.ReservationForm) models.EventPage {
	base := render.NewBase(req, event.Title)
	base.SiteKey = h.recaptcha.SiteKey()
	return models.EventPage{
		Base:              base,
		Event:             event,
		Form:              form,
		FieldErrors:       map[string]string{},
		PhoneMinLength:    h.config.PhoneMinLength,
		CarouselInterval:  h.config.CarouselIntervalSeconds,
		FreeTextQuestions: event.FreeTextQuestions(),
	}
}

// formFailed re-renders the form with the guest's input and the error
// next to the field it belongs to.
func (h *EventHandler) formFailed(req events.APIGatewayProxyRequest, event *models.Event, form models.ReservationForm, err error) events.APIGatewayProxyResponse {
	page := h.eventPage(req, event, form)
	appErr := apperrors.ToAppError(err)

	status := appErr.HTTPStatus
	if field := appErr.Field(); field != "" {
		page.FieldErrors[field] = appErr.Message
	} else {
		page.FormError = appErr.Message
	}
	if status < 400 || status >= 500 {
		status = http.StatusOK
	}
	return h.renderer.Page(status, "event", page)
}

// eventLoadFailed maps the event fetch failure onto a page. A private
// event is a 403 and gets its own page, distinct from not found.
func (h *EventHandler) eventLoadFailed(ctx context.Context, req events.APIGatewayProxyRequest, code string, err error) events.APIGatewayProxyResponse {
	switch {
	case apperrors.HasCode(err, apperrors.ErrCodeAccessDenied):
		return h.renderer.Page(http.StatusForbidden, "event_private", models.PrivateEventPage{
			Base:      render.NewBase(req, "비공개 이벤트"),
			EventCode: code,
		})
	case apperrors.HasCode(err, apperrors.ErrCodeNotFound):
		return h.renderer.NotFound(req, "이벤트를 찾을 수 없습니다. 주소를 다시 확인해주세요.")
	default:
		logger.WithContext(ctx).WithError(err).Error("Failed to load event %s", code)
		return h.renderer.Error(req, http.StatusBadGateway, "")
	}
}

func parseReservationForm(code string, values url.Values) models.ReservationForm {
	form := models.ReservationForm{
		EventCode:      code,
		GuestName:      values.Get("name"),
		PhoneNumber:    values.Get("phone"),
		Responses:      map[int64]string{},
		RecaptchaToken: values.Get(recaptcha.FormField),
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(values.Get("scheduleId")), 10, 64); err == nil {
		form.ScheduleID = id
	}
	for key := range values {
		if !strings.HasPrefix(key, "answer_") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(key, "answer_"), 10, 64)
		if err != nil {
			continue
		}
		form.Responses[id] = values.Get(key)
	}
	return form
}
