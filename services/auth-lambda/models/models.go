package models

import "github.com/checkin-web/common/render"

// ============================================================
// API payloads - /api/auth/*
// ============================================================

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest represents signup request body
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// AuthResponse carries the bearer token under either name the API uses.
type AuthResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
}

// BearerToken returns whichever token field was filled.
func (r *AuthResponse) BearerToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

// EmailSendRequest - POST /api/auth/email/send
type EmailSendRequest struct {
	Email string `json:"email"`
}

// EmailSendResponse carries the code lifetime in seconds, when sent.
type EmailSendResponse struct {
	ExpiresIn int `json:"expiresIn"`
}

// EmailVerifyRequest - POST /api/auth/email/verify
type EmailVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ============================================================
// Forms
// ============================================================

type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type SendCodeForm struct {
	Email string `form:"email" validate:"required,email"`
}

type VerifyCodeForm struct {
	Code string `form:"code" validate:"required,vcode"`
}

type SignupForm struct {
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,password"`
	PasswordConfirm string `form:"passwordConfirm" validate:"eqfield=Password"`
	Name            string `form:"name" validate:"notblank,max=50"`
}

// ============================================================
// Views
// ============================================================

type LoginPage struct {
	render.Base
	Email       string
	Next        string
	FieldErrors map[string]string
	FormError   string
}

type SignupPage struct {
	render.Base
	Email       string
	Name        string
	CodeSent    bool
	Verified    bool
	SecondsLeft int
	FieldErrors map[string]string
	FormError   string
}
