package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/checkin-web/common/config"
	apperrors "github.com/checkin-web/common/errors"
	"github.com/checkin-web/common/logger"
)

// Config holds the platform API connection settings
type Config struct {
	BaseURL   string        // e.g. https://api.example.com, no trailing slash
	Timeout   time.Duration // per request
	UserAgent string
}

// DefaultConfig reads API_BASE_URL and API_TIMEOUT from the environment.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   strings.TrimRight(config.GetEnv("API_BASE_URL", "http://localhost:8000"), "/"),
		Timeout:   config.GetEnvDuration("API_TIMEOUT", 10*time.Second),
		UserAgent: "checkin-web/1.0",
	}
}

// Client calls the platform REST API. Every service repository goes
// through it, so status mapping and call logging live in one place.
type Client struct {
	config *Config
	http   *http.Client
}

// New creates a client. A nil config means DefaultConfig().
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Client{
		config: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// BaseURL returns the configured API origin.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Path builds an API path. String arguments are escaped as one path
// segment; numbers are formatted by their verb.
func Path(format string, args ...interface{}) string {
	escaped := make([]interface{}, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			escaped[i] = url.PathEscape(v)
		default:
			escaped[i] = a
		}
	}
	return fmt.Sprintf(format, escaped...)
}

func (c *Client) Get(ctx context.Context, path, token string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, token, nil, out)
}

func (c *Client) Post(ctx context.Context, path, token string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, token, body, out)
}

func (c *Client) Patch(ctx context.Context, path, token string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPatch, path, token, body, out)
}

func (c *Client) Delete(ctx context.Context, path, token string, out interface{}) error {
	return c.Do(ctx, http.MethodDelete, path, token, nil, out)
}

// Do sends one request. body is JSON-encoded when non-nil; a non-empty
// token is sent as a bearer credential. On 2xx the payload, bare or
// wrapped in the {success,data} envelope, is decoded into out. Any other
// outcome is returned as an *errors.AppError.
func (c *Client) Do(ctx context.Context, method, path, token string, body, out interface{}) error {
	start := time.Now()
	call := logger.APICallLog{Method: method, Path: path}
	log := logger.WithContext(ctx)
	defer func() {
		call.Duration = time.Since(start)
		log.LogAPICall(call)
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			call.Error = err.Error()
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		call.Error = err.Error()
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		call.Error = err.Error()
		return transportError(err)
	}
	defer resp.Body.Close()
	call.Status = resp.StatusCode

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		call.Error = err.Error()
		return transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.FromStatus(resp.StatusCode, errorMessage(data))
	}

	return decode(data, out)
}

// envelope mirrors response.APIResponse with optional fields so that a
// bare object can be told apart from a wrapped one.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decode(data []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil && env.Success != nil {
			if !*env.Success {
				msg := env.Error
				if msg == "" {
					msg = env.Message
				}
				return apperrors.FromStatus(http.StatusUnprocessableEntity, msg)
			}
			if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
				return nil
			}
			trimmed = env.Data
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeExternalService, "unexpected response from server")
	}
	return nil
}

func errorMessage(data []byte) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	if env.Error != "" {
		return env.Error
	}
	return env.Message
}

func transportError(err error) *apperrors.AppError {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.Timeout().WithCause(err)
	}
	return apperrors.ExternalServiceError("api", "서버에 연결할 수 없습니다. 잠시 후 다시 시도해주세요").WithCause(err)
}
