package session

import (
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gorilla/securecookie"

	"github.com/checkin-web/common/config"
	"github.com/checkin-web/common/logger"
	"github.com/checkin-web/common/request"
)

// Cookie names. These hold what a browser app would keep in local storage.
const (
	HostTokenCookie    = "checkin_host_token"
	LookupTokenCookie  = "checkin_lookup_token"
	LastTicketCookie   = "checkin_last_ticket"
	VerificationCookie = "checkin_email_verification"
)

const (
	hostTokenMaxAge   = 7 * 24 * time.Hour
	lookupTokenMaxAge = 24 * time.Hour
	lastTicketMaxAge  = 90 * 24 * time.Hour
)

// Store issues and reads client cookies. Plain tokens are stored as is;
// the email verification state is signed and encrypted because the
// client must not be able to mark an address verified on its own.
type Store struct {
	codec  *securecookie.SecureCookie
	secure bool
	now    func() time.Time
}

// NewStore builds a store from SESSION_HASH_KEY and SESSION_BLOCK_KEY.
// Without them random keys are generated, which invalidates pending
// verifications on restart.
func NewStore() *Store {
	hashKey := []byte(config.GetEnv("SESSION_HASH_KEY", ""))
	blockKey := []byte(config.GetEnv("SESSION_BLOCK_KEY", ""))
	if len(hashKey) == 0 {
		logger.Warn("SESSION_HASH_KEY not set, using a random key")
		hashKey = securecookie.GenerateRandomKey(32)
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		blockKey = securecookie.GenerateRandomKey(32)
	}
	return NewStoreWithKeys(hashKey, blockKey, config.CookieSecure(), nil)
}

// NewStoreWithKeys is the explicit constructor used by tests.
func NewStoreWithKeys(hashKey, blockKey []byte, secure bool, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int((30 * time.Minute).Seconds()))
	return &Store{codec: codec, secure: secure, now: now}
}

func (s *Store) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Clear expires a cookie.
func (s *Store) Clear(name string) *http.Cookie {
	c := s.cookie(name, "", 0)
	c.MaxAge = -1
	return c
}

// Read returns a plain cookie value or "".
func Read(req events.APIGatewayProxyRequest, name string) string {
	raw := request.Cookie(req, name)
	if raw == "" {
		return ""
	}
	v, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return v
}

func (s *Store) HostToken(token string) *http.Cookie {
	return s.cookie(HostTokenCookie, token, hostTokenMaxAge)
}

func (s *Store) LookupToken(token string) *http.Cookie {
	return s.cookie(LookupTokenCookie, token, lookupTokenMaxAge)
}

func (s *Store) LastTicket(qrToken string) *http.Cookie {
	return s.cookie(LastTicketCookie, qrToken, lastTicketMaxAge)
}

// Verification is the signup email verification state.
type Verification struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	Verified  bool      `json:"verified"`
}

// Expired reports whether the code can no longer be verified.
func (v Verification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// SecondsLeft is the countdown shown next to the code input.
func (v Verification) SecondsLeft(now time.Time) int {
	left := v.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// VerificationCookie encodes v.
func (s *Store) VerificationCookie(v Verification) (*http.Cookie, error) {
	encoded, err := s.codec.Encode(VerificationCookie, v)
	if err != nil {
		return nil, err
	}
	c := s.cookie(VerificationCookie, "", 30*time.Minute)
	c.Value = encoded
	return c, nil
}

// ReadVerification decodes the verification cookie; ok is false when it
// is absent or was tampered with.
func (s *Store) ReadVerification(req events.APIGatewayProxyRequest) (Verification, bool) {
	raw := request.Cookie(req, VerificationCookie)
	if raw == "" {
		return Verification{}, false
	}
	var v Verification
	if err := s.codec.Decode(VerificationCookie, raw, &v); err != nil {
		logger.WithError(err).Debug("Discarding unreadable verification cookie")
		return Verification{}, false
	}
	return v, true
}

// Now is the store's clock.
func (s *Store) Now() time.Time {
	return s.now()
}
