package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/checkin-web/common/config"
	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/session"
	"github.com/checkin-web/common/validator"
	"github.com/checkin-web/services/auth-lambda/models"
	"github.com/checkin-web/services/auth-lambda/repository"
)

// AuthUseCase handles host login and signup with email verification.
type AuthUseCase struct {
	authRepo *repository.AuthRepository
	config   *config.SystemConfig
	now      func() time.Time
}

// NewAuthUseCase creates a new auth use case
func NewAuthUseCase(repo *repository.AuthRepository, cfg *config.SystemConfig, now func() time.Time) *AuthUseCase {
	if cfg == nil {
		cfg = config.GetConfig()
	}
	if now == nil {
		now = time.Now
	}
	return &AuthUseCase{authRepo: repo, config: cfg, now: now}
}

// Login returns the host bearer token.
func (uc *AuthUseCase) Login(ctx context.Context, form *models.LoginForm) (string, error) {
	form.Email = strings.TrimSpace(form.Email)
	if err := validator.Struct(form); err != nil {
		return "", err
	}

	resp, err := uc.authRepo.Login(ctx, &models.LoginRequest{Email: form.Email, Password: form.Password})
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeUnauthorized, apperrors.ErrCodeNotFound) {
			return "", apperrors.Unauthorized("이메일 또는 비밀번호가 올바르지 않습니다")
		}
		return "", err
	}
	return uc.token(ctx, "login", form.Email, resp)
}

// SendCode asks the API to mail a verification code and starts the
// countdown. The API's expiry wins over the configured fallback.
func (uc *AuthUseCase) SendCode(ctx context.Context, form *models.SendCodeForm) (session.Verification, error) {
	form.Email = strings.TrimSpace(form.Email)
	if err := validator.Struct(form); err != nil {
		return session.Verification{}, err
	}

	resp, err := uc.authRepo.SendEmailCode(ctx, form.Email)
	if err != nil {
		return session.Verification{}, err
	}

	expiry := uc.config.VerificationExpiry()
	if resp.ExpiresIn > 0 {
		expiry = time.Duration(resp.ExpiresIn) * time.Second
	}
	return session.Verification{
		Email:     form.Email,
		ExpiresAt: uc.now().Add(expiry),
	}, nil
}

// VerifyCode confirms the code for the pending verification. An expired
// countdown is rejected without asking the API.
func (uc *AuthUseCase) VerifyCode(ctx context.Context, v session.Verification, form *models.VerifyCodeForm) (session.Verification, error) {
	if v.Email == "" {
		return v, apperrors.VerificationRequired()
	}
	if v.Verified {
		return v, nil
	}
	if v.Expired(uc.now()) {
		return v, apperrors.VerificationExpired()
	}

	form.Code = strings.TrimSpace(form.Code)
	if err := validator.Struct(form); err != nil {
		return v, err
	}
	if err := uc.authRepo.VerifyEmailCode(ctx, v.Email, form.Code); err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeValidation, apperrors.ErrCodeBusinessRule, apperrors.ErrCodeNotFound) {
			return v, apperrors.InvalidInput("code", "인증 코드가 올바르지 않습니다")
		}
		return v, err
	}

	v.Verified = true
	return v, nil
}

// Signup creates the host account. The email must be the one verified.
func (uc *AuthUseCase) Signup(ctx context.Context, v session.Verification, form *models.SignupForm) (string, error) {
	form.Email = strings.TrimSpace(form.Email)
	form.Name = strings.TrimSpace(form.Name)
	if !v.Verified || !strings.EqualFold(v.Email, form.Email) {
		return "", apperrors.VerificationRequired()
	}
	if err := validator.Struct(form); err != nil {
		return "", err
	}

	resp, err := uc.authRepo.Signup(ctx, &models.SignupRequest{
		Email:    form.Email,
		Password: form.Password,
		Name:     form.Name,
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeConflict) {
			return "", apperrors.InvalidInput("email", "이미 가입된 이메일입니다")
		}
		return "", err
	}
	return uc.token(ctx, "signup", form.Email, resp)
}

func (uc *AuthUseCase) token(ctx context.Context, action, email string, resp *models.AuthResponse) (string, error) {
	token := resp.BearerToken()
	if token == "" {
		return "", apperrors.ExternalServiceError("api", "로그인 정보를 받지 못했습니다")
	}
	logger.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "auth",
		Action:   action,
		Entity:   "host",
		EntityID: email,
		Success:  true,
	})
	return token, nil
}
