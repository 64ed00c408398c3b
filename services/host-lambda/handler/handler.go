package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/checkin-web/common/config"
	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/jwt"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/common/request"
	"github.com/checkin-web/common/response"
	"github.com/checkin-web/common/scanguard"
	"github.com/checkin-web/common/session"
	"github.com/checkin-web/services/host-lambda/models"
	"github.com/checkin-web/services/host-lambda/repository"
	"github.com/checkin-web/services/host-lambda/usecase"
)

var detailNotices = map[string]struct{ text, kind string }{
	"checked-in":     {"입장 처리되었습니다.", "info"},
	"duplicate":      {"이미 입장 처리된 예약입니다.", "warn"},
	"checkin-failed": {"입장 처리에 실패했습니다. 다시 시도해주세요.", "error"},
}

// HostHandler serves the host dashboard and event detail pages. Every
// action requires an unexpired host token.
type HostHandler struct {
	useCase  *usecase.HostUseCase
	renderer *render.Renderer
	sessions *session.Store
	tokens   *jwt.Parser
	config   *config.SystemConfig
}

// NewHostHandler wires the handler from the environment around guard.
func NewHostHandler(guard scanguard.Guard) *HostHandler {
	cfg := config.GetConfig()
	return NewHostHandlerWith(
		usecase.NewHostUseCase(repository.NewHostRepository(nil), guard, cfg),
		render.Default(),
		session.NewStore(),
		jwt.NewParser(),
		cfg,
	)
}

func NewHostHandlerWith(uc *usecase.HostUseCase, r *render.Renderer, s *session.Store, p *jwt.Parser, cfg *config.SystemConfig) *HostHandler {
	return &HostHandler{useCase: uc, renderer: r, sessions: s, tokens: p, config: cfg}
}

// ============================================================
// Pages
// ============================================================

// HandleDashboard - GET /host
func (h *HostHandler) HandleDashboard(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx, token, claims, ok := h.authenticate(ctx, req)
	if !ok {
		return h.loginRedirect(req), nil
	}

	rows, err := h.useCase.ListEvents(ctx, token)
	if err != nil {
		return h.pageFailed(ctx, req, err), nil
	}

	page := models.DashboardPage{Base: h.base(req, "내 이벤트", claims), Events: rows}
	if request.Query(req, "notice") == "visibility-failed" {
		page.Notice = "공개 설정을 바꾸지 못했습니다."
		page.NoticeKind = "error"
	}
	return h.renderer.Page(http.StatusOK, "host_dashboard", page), nil
}

// HandleEventDetail - GET /host/events/{eventId}
func (h *HostHandler) HandleEventDetail(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx, token, claims, ok := h.authenticate(ctx, req)
	if !ok {
		return h.loginRedirect(req), nil
	}
	eventID, ok := pathID(req, "eventId")
	if !ok {
		return h.renderer.NotFound(req, "이벤트를 찾을 수 없습니다."), nil
	}

	status, err := h.useCase.EventStatus(ctx, token, eventID)
	if err != nil {
		return h.pageFailed(ctx, req, err), nil
	}

	title := status.Title
	if title == "" {
		title = "이벤트 현황"
	}
	page := models.EventDetailPage{
		Base:           h.base(req, title, claims),
		EventID:        eventID,
		Status:         status,
		ScanCooldownMs: h.config.ScanCooldownSeconds * 1000,
	}
	if n, ok := detailNotices[request.Query(req, "notice")]; ok {
		page.Notice, page.NoticeKind = n.text, n.kind
	}
	return h.renderer.Page(http.StatusOK, "host_event", page), nil
}

// HandleRoster - GET /host/events/{eventId}/roster.xlsx
func (h *HostHandler) HandleRoster(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx, token, _, ok := h.authenticate(ctx, req)
	if !ok {
		return h.loginRedirect(req), nil
	}
	eventID, ok := pathID(req, "eventId")
	if !ok {
		return h.renderer.NotFound(req, ""), nil
	}

	data, filename, err := h.useCase.RosterExport(ctx, token, eventID)
	if err != nil {
		return h.pageFailed(ctx, req, err), nil
	}
	return response.Binary(response.ContentTypeXLSX, filename, data), nil
}

// ============================================================
// Actions
// ============================================================

// HandleVisibility - POST /host/events/{eventId}/visibility
//
// The switch on the dashboard has already flipped; the body carries the
// new state. Scripts get JSON back, a plain form post is redirected.
func (h *HostHandler) HandleVisibility(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	wantsJSON := isJSON(req)
	visible, err := parseVisibility(req)
	if err != nil {
		if !wantsJSON {
			return response.Redirect("/host?notice=visibility-failed"), nil
		}
		return response.JSON(http.StatusBadRequest, models.VisibilityResult{Reverted: true, Error: "요청을 읽을 수 없습니다"})
	}

	// The action is POST only, so login always returns to the dashboard.
	ctx, token, _, ok := h.authenticate(ctx, req)
	if !ok {
		if !wantsJSON {
			return response.Redirect(loginLocation("/host"), h.sessions.Clear(session.HostTokenCookie)), nil
		}
		return response.JSON(http.StatusUnauthorized, models.VisibilityResult{
			Visible:  !visible,
			Reverted: true,
			Error:    apperrors.TokenExpired().Message,
			Redirect: loginLocation("/host"),
		})
	}
	eventID, ok := pathID(req, "eventId")
	if !ok {
		return response.JSON(http.StatusNotFound, models.VisibilityResult{Visible: !visible, Reverted: true, Error: "이벤트를 찾을 수 없습니다"})
	}

	result, err := h.useCase.SetVisibility(ctx, token, eventID, visible)
	status := http.StatusOK
	if err != nil {
		status = apperrors.ToAppError(err).HTTPStatus
		if apperrors.IsAuthFailure(err) {
			result.Redirect = loginLocation("/host")
		}
	}

	if !wantsJSON {
		if result.Redirect != "" {
			return response.Redirect(result.Redirect, h.sessions.Clear(session.HostTokenCookie)), nil
		}
		if result.Reverted {
			return response.Redirect("/host?notice=visibility-failed"), nil
		}
		return response.Redirect("/host"), nil
	}
	return response.JSON(status, result)
}

// HandleScan - POST /host/events/{eventId}/scan
func (h *HostHandler) HandleScan(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx, token, _, ok := h.authenticate(ctx, req)
	if !ok {
		return response.JSON(http.StatusUnauthorized, models.ScanResponse{
			Outcome:  models.OutcomeUnauthorized,
			Message:  apperrors.TokenExpired().Message,
			Redirect: loginLocation(detailPath(request.PathParam(req, "eventId"))),
		})
	}
	eventID, ok := pathID(req, "eventId")
	if !ok {
		return response.JSON(http.StatusNotFound, models.ScanResponse{Outcome: models.OutcomeNotFound, Message: "이벤트를 찾을 수 없습니다"})
	}

	var body models.CheckinRequest
	if raw, err := request.Body(req); err != nil || json.Unmarshal([]byte(raw), &body) != nil {
		return response.JSON(http.StatusBadRequest, models.ScanResponse{Outcome: models.OutcomeInvalid, Message: "요청을 읽을 수 없습니다"})
	}

	result, err := h.useCase.Scan(ctx, token, eventID, body.QRToken)
	if err != nil {
		status, resp := scanFailure(err, eventID)
		if resp.Outcome == models.OutcomeError {
			logger.WithContext(ctx).WithError(err).Error("QR check-in failed")
		}
		return response.JSON(status, resp)
	}

	msg := "입장 확인되었습니다"
	if result.GuestName != "" {
		msg = result.GuestName + "님 입장 확인되었습니다"
	}
	return response.JSON(http.StatusOK, models.ScanResponse{
		Outcome:   models.OutcomeCheckedIn,
		Message:   msg,
		GuestName: result.GuestName,
	})
}

// HandleCheckin - POST /host/reservations/{reservationId}/checkin
func (h *HostHandler) HandleCheckin(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	values, err := request.Form(req)
	if err != nil {
		return h.renderer.Error(req, http.StatusBadRequest, "요청을 읽을 수 없습니다."), nil
	}
	back := detailPath(values.Get("eventId"))

	ctx, token, _, ok := h.authenticate(ctx, req)
	if !ok {
		return response.Redirect(loginLocation(back), h.sessions.Clear(session.HostTokenCookie)), nil
	}
	reservationID, ok := pathID(req, "reservationId")
	if !ok {
		return h.renderer.NotFound(req, "예약을 찾을 수 없습니다."), nil
	}
	eventID, _ := strconv.ParseInt(values.Get("eventId"), 10, 64)

	err = h.useCase.Checkin(ctx, token, eventID, reservationID)
	switch {
	case err == nil:
		return response.Redirect(back + "?notice=checked-in"), nil
	case apperrors.HasCode(err, apperrors.ErrCodeConflict):
		return response.Redirect(back + "?notice=duplicate"), nil
	case apperrors.IsAuthFailure(err):
		return response.Redirect(loginLocation(back), h.sessions.Clear(session.HostTokenCookie)), nil
	case apperrors.HasCode(err, apperrors.ErrCodeNotFound):
		return h.renderer.NotFound(req, "예약을 찾을 수 없습니다."), nil
	default:
		logger.WithContext(ctx).WithError(err).Error("Manual check-in failed")
		return response.Redirect(back + "?notice=checkin-failed"), nil
	}
}

// ============================================================
// Helpers
// ============================================================

// authenticate reads the host token cookie. A missing or expired token
// fails here, before any call is made. The returned context carries the
// host's email for logging.
func (h *HostHandler) authenticate(ctx context.Context, req events.APIGatewayProxyRequest) (context.Context, string, *jwt.Claims, bool) {
	token := session.Read(req, session.HostTokenCookie)
	claims, err := h.tokens.Parse(token)
	if err != nil {
		if token != "" {
			logger.WithContext(ctx).Debug("Rejecting host token: %v", err)
		}
		return ctx, "", nil, false
	}
	return logger.ContextWithHost(ctx, claims.Email), token, claims, true
}

func (h *HostHandler) base(req events.APIGatewayProxyRequest, title string, claims *jwt.Claims) render.Base {
	b := render.NewBase(req, title)
	b.HostEmail = claims.Email
	return b
}

func (h *HostHandler) loginRedirect(req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	next := req.Path
	if next == "" {
		next = "/host"
	}
	return response.Redirect(loginLocation(next), h.sessions.Clear(session.HostTokenCookie))
}

// pageFailed maps API failures on host pages: auth problems go back to
// login, unknown ids are not found, the rest is the error page.
func (h *HostHandler) pageFailed(ctx context.Context, req events.APIGatewayProxyRequest, err error) events.APIGatewayProxyResponse {
	switch {
	case apperrors.IsAuthFailure(err):
		return h.loginRedirect(req)
	case apperrors.HasCode(err, apperrors.ErrCodeNotFound):
		return h.renderer.NotFound(req, "이벤트를 찾을 수 없습니다.")
	default:
		logger.WithContext(ctx).WithError(err).Error("Host page failed")
		return h.renderer.Error(req, http.StatusBadGateway, "")
	}
}

func scanFailure(err error, eventID int64) (int, models.ScanResponse) {
	appErr := apperrors.ToAppError(err)
	switch {
	case apperrors.HasCode(err, apperrors.ErrCodeScanCoolingDown):
		return appErr.HTTPStatus, models.ScanResponse{Outcome: models.OutcomeCoolingDown, Message: appErr.Message}
	case apperrors.HasCode(err, apperrors.ErrCodeConflict):
		return http.StatusConflict, models.ScanResponse{Outcome: models.OutcomeDuplicate, Message: "이미 입장 처리된 QR 코드입니다"}
	case apperrors.HasCode(err, apperrors.ErrCodeNotFound):
		return http.StatusNotFound, models.ScanResponse{Outcome: models.OutcomeNotFound, Message: "유효하지 않은 QR 코드입니다"}
	case apperrors.HasCode(err, apperrors.ErrCodeValidation):
		return http.StatusBadRequest, models.ScanResponse{Outcome: models.OutcomeInvalid, Message: appErr.Message}
	case apperrors.IsAuthFailure(err):
		return http.StatusUnauthorized, models.ScanResponse{
			Outcome:  models.OutcomeUnauthorized,
			Message:  appErr.Message,
			Redirect: loginLocation(detailPath(strconv.FormatInt(eventID, 10))),
		}
	default:
		return http.StatusBadGateway, models.ScanResponse{Outcome: models.OutcomeError, Message: appErr.Message}
	}
}

func loginLocation(next string) string {
	return "/login?next=" + url.QueryEscape(next)
}

func detailPath(eventID string) string {
	if _, err := strconv.ParseInt(eventID, 10, 64); err != nil {
		return "/host"
	}
	return "/host/events/" + eventID
}

func pathID(req events.APIGatewayProxyRequest, name string) (int64, bool) {
	id, err := strconv.ParseInt(request.PathParam(req, name), 10, 64)
	return id, err == nil && id > 0
}

func isJSON(req events.APIGatewayProxyRequest) bool {
	return strings.HasPrefix(request.Header(req, "Content-Type"), "application/json")
}

func parseVisibility(req events.APIGatewayProxyRequest) (bool, error) {
	if isJSON(req) {
		raw, err := request.Body(req)
		if err != nil {
			return false, err
		}
		var body models.VisibilityRequest
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return false, err
		}
		return body.Visible, nil
	}
	values, err := request.Form(req)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(values.Get("visible"))
}
