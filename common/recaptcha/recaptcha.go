package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/checkin-web/common/config"
	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/logger"
)

// Form field the widget posts its token in.
const FormField = "g-recaptcha-response"

// Config holds reCAPTCHA configuration
type Config struct {
	SecretKey  string  // Server-side secret key from Google
	SiteKey    string  // Rendered into the reservation and lookup forms
	VerifyURL  string  // Google verification URL
	MinScore   float64 // Minimum score for v3 (0.0 - 1.0)
	Timeout    time.Duration
	SkipVerify bool // Skip verification in dev mode
}

// DefaultConfig returns reCAPTCHA config from environment variables
func DefaultConfig() *Config {
	return &Config{
		SecretKey:  config.GetEnv("RECAPTCHA_SECRET_KEY", ""),
		SiteKey:    config.GetEnv("RECAPTCHA_SITE_KEY", ""),
		VerifyURL:  config.GetEnv("RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
		MinScore:   0.5,
		Timeout:    10 * time.Second,
		SkipVerify: config.GetEnvBool("RECAPTCHA_SKIP_VERIFY", false),
	}
}

// VerifyResponse represents Google's reCAPTCHA verification response
type VerifyResponse struct {
	Success     bool      `json:"success"`
	Score       float64   `json:"score,omitempty"`  // v3 only
	Action      string    `json:"action,omitempty"` // v3 only
	ChallengeTS time.Time `json:"challenge_ts"`
	Hostname    string    `json:"hostname"`
	ErrorCodes  []string  `json:"error-codes,omitempty"`
}

// VerifyResult represents the verification result with additional context
type VerifyResult struct {
	Valid        bool
	Skipped      bool
	Score        float64
	Action       string
	ErrorMessage string
	RawResponse  *VerifyResponse
}

// Service verifies widget tokens posted with guest forms.
type Service struct {
	config *Config
	client *http.Client
}

// NewService creates a verifier. A nil config means DefaultConfig().
func NewService(cfg *Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Service{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// IsConfigured returns true if reCAPTCHA is properly configured
func (s *Service) IsConfigured() bool {
	return s.config.SecretKey != "" && !s.config.SkipVerify
}

// SiteKey is empty when the widget should not be rendered.
func (s *Service) SiteKey() string {
	if !s.IsConfigured() {
		return ""
	}
	return s.config.SiteKey
}

// Verify verifies a reCAPTCHA token
func (s *Service) Verify(ctx context.Context, token, remoteIP string) (*VerifyResult, error) {
	result := &VerifyResult{}

	if !s.IsConfigured() {
		logger.WithContext(ctx).Debug("reCAPTCHA not configured, skipping verification")
		result.Valid = true
		result.Skipped = true
		result.Score = 1.0
		return result, nil
	}

	if token == "" {
		result.Valid = false
		result.ErrorMessage = "reCAPTCHA token is required"
		return result, nil
	}

	data := url.Values{}
	data.Set("secret", s.config.SecretKey)
	data.Set("response", token)
	if remoteIP != "" {
		data.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.VerifyURL, strings.NewReader(data.Encode()))
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("failed to build request: %v", err)
		return result, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("failed to verify reCAPTCHA: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	var verifyResp VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verifyResp); err != nil {
		result.ErrorMessage = fmt.Sprintf("failed to parse response: %v", err)
		return result, err
	}

	result.RawResponse = &verifyResp
	result.Score = verifyResp.Score
	result.Action = verifyResp.Action

	if !verifyResp.Success {
		result.ErrorMessage = formatErrorCodes(verifyResp.ErrorCodes)
		return result, nil
	}

	// v3 tokens carry a score
	if verifyResp.Score > 0 && verifyResp.Score < s.config.MinScore {
		result.ErrorMessage = fmt.Sprintf("score too low: %.2f (minimum: %.2f)", verifyResp.Score, s.config.MinScore)
		return result, nil
	}

	result.Valid = true
	return result, nil
}

// Check verifies token for a form action and returns an AppError the
// form can show when the submission must be rejected.
func (s *Service) Check(ctx context.Context, token, action, remoteIP string) error {
	result, err := s.Verify(ctx, token, remoteIP)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("reCAPTCHA verification failed for %s", action)
		return apperrors.RecaptchaError("보안 확인에 실패했습니다. 잠시 후 다시 시도해주세요").WithCause(err)
	}

	if result.Valid && !result.Skipped && result.Action != "" && action != "" && result.Action != action {
		result.Valid = false
		result.ErrorMessage = fmt.Sprintf("action mismatch: expected '%s', got '%s'", action, result.Action)
	}

	if !result.Valid {
		logger.WithContext(ctx).With("action", action).Warn("reCAPTCHA rejected: %s", result.ErrorMessage)
		return apperrors.New(apperrors.ErrCodeValidation, "보안 확인을 완료해주세요").WithDetails(result.ErrorMessage)
	}
	return nil
}

func formatErrorCodes(codes []string) string {
	if len(codes) == 0 {
		return "unknown error"
	}

	messages := make([]string, 0, len(codes))
	for _, code := range codes {
		messages = append(messages, getErrorMessage(code))
	}
	return strings.Join(messages, "; ")
}

func getErrorMessage(code string) string {
	errorMessages := map[string]string{
		"missing-input-secret":   "secret key is missing",
		"invalid-input-secret":   "secret key is invalid",
		"missing-input-response": "token is missing",
		"invalid-input-response": "token is invalid or expired",
		"bad-request":            "bad request",
		"timeout-or-duplicate":   "token expired or already used",
	}

	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return code
}

// ClientIP picks the caller address from proxy headers, falling back to
// the source IP API Gateway reports.
func ClientIP(headers map[string]string, sourceIP string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "X-Forwarded-For") && v != "" {
			return strings.TrimSpace(strings.Split(v, ",")[0])
		}
	}
	for k, v := range headers {
		if strings.EqualFold(k, "X-Real-IP") && v != "" {
			return v
		}
	}

	if host, _, err := net.SplitHostPort(sourceIP); err == nil {
		return host
	}
	return sourceIP
}
