package repository

import (
	"context"

	"github.com/checkin-web/common/apiclient"
	"github.com/checkin-web/services/auth-lambda/models"
)

// AuthRepository calls the platform auth endpoints.
type AuthRepository struct {
	api *apiclient.Client
}

// NewAuthRepository creates a new auth repository
func NewAuthRepository(api *apiclient.Client) *AuthRepository {
	if api == nil {
		api = apiclient.New(nil)
	}
	return &AuthRepository{api: api}
}

// Login calls POST /api/auth/login.
func (r *AuthRepository) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := r.api.Post(ctx, "/api/auth/login", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signup calls POST /api/auth/signup.
func (r *AuthRepository) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := r.api.Post(ctx, "/api/auth/signup", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendEmailCode calls POST /api/auth/email/send.
func (r *AuthRepository) SendEmailCode(ctx context.Context, email string) (*models.EmailSendResponse, error) {
	var resp models.EmailSendResponse
	if err := r.api.Post(ctx, "/api/auth/email/send", "", &models.EmailSendRequest{Email: email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyEmailCode calls POST /api/auth/email/verify.
func (r *AuthRepository) VerifyEmailCode(ctx context.Context, email, code string) error {
	return r.api.Post(ctx, "/api/auth/email/verify", "", &models.EmailVerifyRequest{Email: email, Code: code}, nil)
}
