package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/checkin-web/common/config"
	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/jwt"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/render"
	"github.com/checkin-web/common/request"
	"github.com/checkin-web/common/response"
	"github.com/checkin-web/common/session"
	"github.com/checkin-web/services/auth-lambda/models"
	"github.com/checkin-web/services/auth-lambda/repository"
	"github.com/checkin-web/services/auth-lambda/usecase"
)

// AuthHandler handles host login, signup and logout
type AuthHandler struct {
	useCase  *usecase.AuthUseCase
	renderer *render.Renderer
	sessions *session.Store
	tokens   *jwt.Parser
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler() *AuthHandler {
	sessions := session.NewStore()
	return NewAuthHandlerWith(
		usecase.NewAuthUseCase(repository.NewAuthRepository(nil), config.GetConfig(), sessions.Now),
		render.Default(),
		sessions,
		jwt.NewParser(),
	)
}

func NewAuthHandlerWith(uc *usecase.AuthUseCase, r *render.Renderer, s *session.Store, p *jwt.Parser) *AuthHandler {
	return &AuthHandler{useCase: uc, renderer: r, sessions: s, tokens: p}
}

// ============================================================
// Login / logout
// ============================================================

// HandleLoginPage - GET /login
func (h *AuthHandler) HandleLoginPage(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	next := safeNext(request.Query(req, "next"))
	if _, err := h.tokens.Parse(session.Read(req, session.HostTokenCookie)); err == nil {
		return response.Redirect(next), nil
	}

	page := h.loginPage(req, next)
	if request.Query(req, "next") != "" {
		page.Notice = "로그인이 필요합니다."
		page.NoticeKind = "info"
	}
	return h.renderer.Page(http.StatusOK, "login", page), nil
}

// HandleLogin - POST /login
func (h *AuthHandler) HandleLogin(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	values, err := request.Form(req)
	if err != nil {
		return h.renderer.Error(req, http.StatusBadRequest, "요청을 읽을 수 없습니다."), nil
	}
	form := models.LoginForm{Email: values.Get("email"), Password: values.Get("password")}
	next := safeNext(values.Get("next"))

	token, err := h.useCase.Login(ctx, &form)
	if err != nil {
		page := h.loginPage(req, next)
		page.Email = form.Email
		status := setFormError(err, page.FieldErrors, &page.FormError)
		if status >= 500 {
			logger.WithContext(ctx).WithError(err).Error("Login failed")
		}
		return h.renderer.Page(status, "login", page), nil
	}

	return response.Redirect(next, h.sessions.HostToken(token)), nil
}

// HandleLogout - POST /logout
func (h *AuthHandler) HandleLogout(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return response.Redirect("/?notice=logged-out", h.sessions.Clear(session.HostTokenCookie)), nil
}

// ============================================================
// Signup with email verification
// ============================================================

// HandleSignupPage - GET /signup
func (h *AuthHandler) HandleSignupPage(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	v, _ := h.sessions.ReadVerification(req)
	return h.renderer.Page(http.StatusOK, "signup", h.signupPage(req, v)), nil
}

// HandleSendCode - POST /signup/email/send
func (h *AuthHandler) HandleSendCode(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	values, err := request.Form(req)
	if err != nil {
		return h.renderer.Error(req, http.StatusBadRequest, "요청을 읽을 수 없습니다."), nil
	}
	form := models.SendCodeForm{Email: values.Get("email")}

	v, err := h.useCase.SendCode(ctx, &form)
	if err != nil {
		return h.signupFailed(ctx, req, session.Verification{Email: form.Email}, err), nil
	}

	cookie, err := h.sessions.VerificationCookie(v)
	if err != nil {
		return h.signupFailed(ctx, req, v, apperrors.Wrap(err, apperrors.ErrCodeInternal, "인증 상태를 저장할 수 없습니다")), nil
	}
	page := h.signupPage(req, v)
	page.Notice = "인증 코드를 보냈습니다. 메일함을 확인해주세요."
	page.NoticeKind = "info"
	return h.renderer.Page(http.StatusOK, "signup", page, cookie), nil
}

// HandleVerifyCode - POST /signup/email/verify
func (h *AuthHandler) HandleVerifyCode(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	values, err := request.Form(req)
	if err != nil {
		return h.renderer.Error(req, http.StatusBadRequest, "요청을 읽을 수 없습니다."), nil
	}
	form := models.VerifyCodeForm{Code: values.Get("code")}
	v, _ := h.sessions.ReadVerification(req)

	v, err = h.useCase.VerifyCode(ctx, v, &form)
	if err != nil {
		return h.signupFailed(ctx, req, v, err), nil
	}

	cookie, err := h.sessions.VerificationCookie(v)
	if err != nil {
		return h.signupFailed(ctx, req, v, apperrors.Wrap(err, apperrors.ErrCodeInternal, "인증 상태를 저장할 수 없습니다")), nil
	}
	page := h.signupPage(req, v)
	page.Notice = "이메일 인증이 완료되었습니다."
	page.NoticeKind = "info"
	return h.renderer.Page(http.StatusOK, "signup", page, cookie), nil
}

// HandleSignup - POST /signup
func (h *AuthHandler) HandleSignup(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	values, err := request.Form(req)
	if err != nil {
		return h.renderer.Error(req, http.StatusBadRequest, "요청을 읽을 수 없습니다."), nil
	}
	form := models.SignupForm{
		Email:           values.Get("email"),
		Password:        values.Get("password"),
		PasswordConfirm: values.Get("passwordConfirm"),
		Name:            values.Get("name"),
	}
	v, _ := h.sessions.ReadVerification(req)

	token, err := h.useCase.Signup(ctx, v, &form)
	if err != nil {
		return h.signupFailed(ctx, req, v, err), nil
	}

	return response.Redirect("/host",
		h.sessions.HostToken(token),
		h.sessions.Clear(session.VerificationCookie),
	), nil
}

// ============================================================
// Helpers
// ============================================================

func (h *AuthHandler) loginPage(req events.APIGatewayProxyRequest, next string) models.LoginPage {
	return models.LoginPage{
		Base:        render.NewBase(req, "주최자 로그인"),
		Next:        next,
		FieldErrors: map[string]string{},
	}
}

func (h *AuthHandler) signupPage(req events.APIGatewayProxyRequest, v session.Verification) models.SignupPage {
	page := models.SignupPage{
		Base:        render.NewBase(req, "주최자 가입"),
		Email:       v.Email,
		Verified:    v.Verified,
		CodeSent:    !v.ExpiresAt.IsZero(),
		FieldErrors: map[string]string{},
	}
	if page.CodeSent && !v.Verified {
		page.SecondsLeft = v.SecondsLeft(h.sessions.Now())
	}
	return page
}

func (h *AuthHandler) signupFailed(ctx context.Context, req events.APIGatewayProxyRequest, v session.Verification, err error) events.APIGatewayProxyResponse {
	page := h.signupPage(req, v)
	status := setFormError(err, page.FieldErrors, &page.FormError)
	if status >= 500 {
		logger.WithContext(ctx).WithError(err).Error("Signup step failed")
	}
	return h.renderer.Page(status, "signup", page)
}

// setFormError places the error next to its field, or above the form,
// and returns the status to answer with.
func setFormError(err error, fields map[string]string, formError *string) int {
	appErr := apperrors.ToAppError(err)
	if field := appErr.Field(); field != "" {
		fields[field] = appErr.Message
	} else {
		*formError = appErr.Message
	}
	if appErr.HTTPStatus >= 500 {
		return http.StatusBadGateway
	}
	return appErr.HTTPStatus
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/host"
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" {
		return "/host"
	}
	return next
}
