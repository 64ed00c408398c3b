package validator

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// Email pattern - RFC 5322 simplified
	EmailPattern = regexp.MustCompile(`^[a-zA-Z0-9_+&*-]+(?:\.[a-zA-Z0-9_+&*-]+)*@(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,7}$`)

	// Verification codes sent by email are 4-8 digits.
	VerificationCodePattern = regexp.MustCompile(`^\d{4,8}$`)

	letterPattern = regexp.MustCompile(`[A-Za-z]`)
	digitPattern  = regexp.MustCompile(`\d`)
)

// MaxPhoneDigits is the length of a Korean mobile number.
const MaxPhoneDigits = 11

// DigitsOnly strips everything that is not an ASCII digit.
func DigitsOnly(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// FormatPhone groups a phone number for display, keeping at most 11
// digits: 3 → as is, 3-rest up to 7, 3-3-rest up to 10, then 3-4-4.
func FormatPhone(s string) string {
	d := DigitsOnly(s)
	if len(d) > MaxPhoneDigits {
		d = d[:MaxPhoneDigits]
	}
	switch {
	case len(d) < 4:
		return d
	case len(d) < 8:
		return d[:3] + "-" + d[3:]
	case len(d) < 11:
		return d[:3] + "-" + d[3:6] + "-" + d[6:]
	default:
		return d[:3] + "-" + d[3:7] + "-" + d[7:]
	}
}

// MaskPhone hides the middle group, e.g. 010-****-5678. Used in logs.
func MaskPhone(s string) string {
	formatted := FormatPhone(s)
	parts := strings.Split(formatted, "-")
	if len(parts) != 3 {
		return strings.Repeat("*", len(formatted))
	}
	parts[1] = strings.Repeat("*", len(parts[1]))
	return strings.Join(parts, "-")
}

// IsValidEmail validates email format
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	return EmailPattern.MatchString(email)
}

// IsValidPassword requires 8+ characters with a letter and a digit.
func IsValidPassword(password string) bool {
	if utf8.RuneCountInString(password) < 8 {
		return false
	}
	return letterPattern.MatchString(password) && digitPattern.MatchString(password)
}

// IsBlank reports whether s is empty after trimming Unicode spaces.
func IsBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}

// GetEmailError returns user-friendly error message for email
func GetEmailError(email string) string {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return "이메일을 입력해주세요"
	}
	if !IsValidEmail(trimmed) {
		return "올바른 이메일 주소를 입력해주세요. 예: user@example.com"
	}
	return ""
}

// GetPasswordError returns user-friendly error message for password
func GetPasswordError(password string) string {
	if password == "" {
		return "비밀번호를 입력해주세요"
	}
	if utf8.RuneCountInString(password) < 8 {
		return "비밀번호는 8자 이상이어야 합니다"
	}
	if !letterPattern.MatchString(password) {
		return "비밀번호에 영문자를 1자 이상 포함해주세요"
	}
	if !digitPattern.MatchString(password) {
		return "비밀번호에 숫자를 1자 이상 포함해주세요"
	}
	return ""
}
