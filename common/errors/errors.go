package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Authentication errors (1xxx)
	ErrCodeUnauthorized ErrorCode = "E1001"
	ErrCodeTokenExpired ErrorCode = "E1003"
	ErrCodeAccessDenied ErrorCode = "E1005"

	// Validation errors (2xxx)
	ErrCodeValidation    ErrorCode = "E2001"
	ErrCodeMissingField  ErrorCode = "E2003"
	ErrCodeInvalidFormat ErrorCode = "E2004"
	ErrCodeInvalidEmail  ErrorCode = "E2005"
	ErrCodeInvalidPhone  ErrorCode = "E2006"

	// Resource errors (3xxx)
	ErrCodeNotFound ErrorCode = "E3001"
	ErrCodeConflict ErrorCode = "E3003"

	// Business logic errors (4xxx)
	ErrCodeBusinessRule         ErrorCode = "E4001"
	ErrCodeScheduleSoldOut      ErrorCode = "E4004"
	ErrCodeVerificationExpired  ErrorCode = "E4007"
	ErrCodeVerificationRequired ErrorCode = "E4010"
	ErrCodeScanCoolingDown      ErrorCode = "E4011"

	// External service errors (5xxx)
	ErrCodeExternalService ErrorCode = "E5001"
	ErrCodeRecaptchaError  ErrorCode = "E5004"

	// Internal errors (9xxx)
	ErrCodeInternal ErrorCode = "E9001"
	ErrCodeTimeout  ErrorCode = "E9003"
)

// AppError represents an application error with context
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Stack      string                 `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds additional details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithField adds a field to the error
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// Field returns the form field the error is about, or "".
func (e *AppError) Field() string {
	if f, ok := e.Fields["field"].(string); ok {
		return f
	}
	return ""
}

// ToJSON converts error to JSON response format
func (e *AppError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"status":  "error",
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Details != "" {
		result["details"] = e.Details
	}
	if len(e.Fields) > 0 {
		result["fields"] = e.Fields
	}
	return result
}

// ============================================================
// Error constructors
// ============================================================

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: getHTTPStatus(code),
		Stack:      captureStack(2),
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: getHTTPStatus(code),
		Cause:      err,
		Stack:      captureStack(2),
	}
}

// FromStatus maps an upstream API status code onto an AppError.
// message is the upstream's own message when it sent one.
func FromStatus(status int, message string) *AppError {
	var code ErrorCode
	switch {
	case status == http.StatusBadRequest:
		code = ErrCodeValidation
	case status == http.StatusUnauthorized:
		code = ErrCodeUnauthorized
	case status == http.StatusForbidden:
		code = ErrCodeAccessDenied
	case status == http.StatusNotFound:
		code = ErrCodeNotFound
	case status == http.StatusConflict:
		code = ErrCodeConflict
	case status == http.StatusUnprocessableEntity:
		code = ErrCodeBusinessRule
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		code = ErrCodeTimeout
	case status >= 500:
		code = ErrCodeExternalService
	default:
		code = ErrCodeInternal
	}

	if strings.TrimSpace(message) == "" {
		message = defaultMessage(code)
	}

	e := New(code, message)
	e.Stack = captureStack(2)
	return e.WithField("upstream_status", status)
}

// ============================================================
// Predefined error constructors
// ============================================================

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func TokenExpired() *AppError {
	return New(ErrCodeTokenExpired, "로그인이 만료되었습니다. 다시 로그인해주세요")
}

func AccessDenied() *AppError {
	return New(ErrCodeAccessDenied, "접근 권한이 없습니다")
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// InvalidInput reports a problem with a single form field.
func InvalidInput(field, message string) *AppError {
	return New(ErrCodeValidation, message).WithField("field", field)
}

func MissingField(field, message string) *AppError {
	return New(ErrCodeMissingField, message).WithField("field", field)
}

func InvalidEmail() *AppError {
	return New(ErrCodeInvalidEmail, "올바른 이메일 주소를 입력해주세요").WithField("field", "email")
}

func InvalidPhone(minDigits int) *AppError {
	return New(ErrCodeInvalidPhone, fmt.Sprintf("연락처를 %d자리 이상 입력해주세요", minDigits)).WithField("field", "phone")
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s을(를) 찾을 수 없습니다", resource))
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

func BusinessError(message string) *AppError {
	return New(ErrCodeBusinessRule, message)
}

func ScheduleSoldOut() *AppError {
	return New(ErrCodeScheduleSoldOut, "선택한 시간은 마감되었습니다").WithField("field", "schedule")
}

func VerificationExpired() *AppError {
	return New(ErrCodeVerificationExpired, "인증 시간이 만료되었습니다. 인증 코드를 다시 요청해주세요").WithField("field", "code")
}

func VerificationRequired() *AppError {
	return New(ErrCodeVerificationRequired, "이메일 인증을 먼저 완료해주세요").WithField("field", "email")
}

func ScanCoolingDown() *AppError {
	return New(ErrCodeScanCoolingDown, "방금 스캔한 QR 코드입니다")
}

func ExternalServiceError(service, message string) *AppError {
	return New(ErrCodeExternalService, message).WithField("service", service)
}

func RecaptchaError(message string) *AppError {
	return New(ErrCodeRecaptchaError, message)
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Timeout() *AppError {
	return New(ErrCodeTimeout, "요청 시간이 초과되었습니다")
}

// ============================================================
// Helper functions
// ============================================================

func getHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthorized, ErrCodeTokenExpired:
		return http.StatusUnauthorized
	case ErrCodeAccessDenied:
		return http.StatusForbidden
	case ErrCodeValidation, ErrCodeMissingField, ErrCodeInvalidFormat,
		ErrCodeInvalidEmail, ErrCodeInvalidPhone,
		ErrCodeVerificationExpired, ErrCodeVerificationRequired:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeBusinessRule, ErrCodeScheduleSoldOut:
		return http.StatusUnprocessableEntity
	case ErrCodeScanCoolingDown:
		return http.StatusTooManyRequests
	case ErrCodeExternalService, ErrCodeRecaptchaError:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func defaultMessage(code ErrorCode) string {
	switch code {
	case ErrCodeUnauthorized:
		return "로그인이 필요합니다"
	case ErrCodeAccessDenied:
		return "접근 권한이 없습니다"
	case ErrCodeNotFound:
		return "요청한 정보를 찾을 수 없습니다"
	case ErrCodeConflict:
		return "이미 처리된 요청입니다"
	case ErrCodeValidation:
		return "입력값을 확인해주세요"
	case ErrCodeTimeout:
		return "요청 시간이 초과되었습니다"
	default:
		return "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
}

func captureStack(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip+1, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		if strings.Contains(frame.File, "runtime/") {
			if !more {
				break
			}
			continue
		}
		sb.WriteString(fmt.Sprintf("%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return sb.String()
}

// AsAppError finds an AppError anywhere in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries one of the given codes.
func HasCode(err error, codes ...ErrorCode) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	for _, c := range codes {
		if appErr.Code == c {
			return true
		}
	}
	return false
}

// IsAuthFailure reports whether the caller should be sent to the login page.
func IsAuthFailure(err error) bool {
	return HasCode(err, ErrCodeUnauthorized, ErrCodeTokenExpired, ErrCodeAccessDenied)
}

// ToAppError converts any error to AppError
func ToAppError(err error) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Wrap(err, ErrCodeInternal, defaultMessage(ErrCodeInternal))
}
