package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/checkin-web/common/config"
	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/recaptcha"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/common/request"
	"github.com/checkin-web/common/session"
	"github.com/checkin-web/services/lookup-lambda/models"
	"github.com/checkin-web/services/lookup-lambda/repository"
	"github.com/checkin-web/services/lookup-lambda/usecase"
)

// LookupHandler finds a guest's reservations by name and phone.
type LookupHandler struct {
	useCase   *usecase.LookupUseCase
	renderer  *render.Renderer
	sessions  *session.Store
	recaptcha *recaptcha.Service
	config    *config.SystemConfig
}

func NewLookupHandler() *LookupHandler {
	cfg := config.GetConfig()
	return NewLookupHandlerWith(
		usecase.NewLookupUseCase(repository.NewLookupRepository(nil), cfg),
		render.Default(),
		session.NewStore(),
		recaptcha.NewService(nil),
		cfg,
	)
}

func NewLookupHandlerWith(uc *usecase.LookupUseCase, r *render.Renderer, s *session.Store, rc *recaptcha.Service, cfg *config.SystemConfig) *LookupHandler {
	return &LookupHandler{useCase: uc, renderer: r, sessions: s, recaptcha: rc, config: cfg}
}

// HandleLookupPage - GET /lookup
func (h *LookupHandler) HandleLookupPage(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return h.renderer.Page(http.StatusOK, "lookup", h.page(req, models.LookupForm{})), nil
}

// HandleLookup - POST /lookup
func (h *LookupHandler) HandleLookup(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	values, err := request.Form(req)
	if err != nil {
		return h.renderer.Error(req, http.StatusBadRequest, "요청을 읽을 수 없습니다."), nil
	}
	form := models.LookupForm{
		GuestName:      values.Get("name"),
		Phone:          values.Get("phone"),
		RecaptchaToken: values.Get(recaptcha.FormField),
	}

	if err := h.useCase.Validate(&form); err != nil {
		return h.failed(req, form, err), nil
	}
	if err := h.recaptcha.Check(ctx, form.RecaptchaToken, "lookup", request.ClientIP(req)); err != nil {
		return h.failed(req, form, err), nil
	}

	result, err := h.useCase.Lookup(ctx, &form)
	if err != nil {
		if !apperrors.HasCode(err, apperrors.ErrCodeValidation, apperrors.ErrCodeBusinessRule) {
			logger.WithContext(ctx).WithError(err).Error("Reservation lookup failed")
		}
		return h.failed(req, form, err), nil
	}

	page := h.page(req, form)
	page.Searched = true
	page.Reservations = result.Reservations

	if result.LookupToken != "" {
		return h.renderer.Page(http.StatusOK, "lookup", page, h.sessions.LookupToken(result.LookupToken)), nil
	}
	return h.renderer.Page(http.StatusOK, "lookup", page), nil
}

func (h *LookupHandler) page(req events.APIGatewayProxyRequest, form models.LookupForm) models.LookupPage {
	base := render.NewBase(req, "예약 조회")
	base.SiteKey = h.recaptcha.SiteKey()
	return models.LookupPage{
		Base:           base,
		Form:           form,
		FieldErrors:    map[string]string{},
		PhoneMinLength: h.config.PhoneMinLength,
	}
}

// failed re-renders the form. Input problems sit next to their field;
// anything else is the error view above the form.
func (h *LookupHandler) failed(req events.APIGatewayProxyRequest, form models.LookupForm, err error) events.APIGatewayProxyResponse {
	page := h.page(req, form)
	appErr := apperrors.ToAppError(err)
	if field := appErr.Field(); field != "" {
		page.FieldErrors[field] = appErr.Message
	} else {
		page.FormError = appErr.Message
	}

	status := appErr.HTTPStatus
	if status >= 500 {
		status = http.StatusBadGateway
	}
	return h.renderer.Page(status, "lookup", page)
}
