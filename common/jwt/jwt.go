package jwt

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the client reads from the host bearer token. The token
// is issued by the platform API; the client only needs expiry and who
// is signed in.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

var (
	ErrMissingToken = errors.New("missing token")
	ErrTokenExpired = errors.New("token expired")
)

// Parser reads host tokens. With a secret the HMAC signature is checked;
// without one the claims are only decoded, since the API verifies the
// token on every call anyway.
type Parser struct {
	secret []byte
	now    func() time.Time
}

// NewParser creates a parser using JWT_SECRET when it is set.
func NewParser() *Parser {
	return &Parser{
		secret: []byte(os.Getenv("JWT_SECRET")),
		now:    time.Now,
	}
}

// NewParserWithSecret is used by tests and by deployments that inject the secret.
func NewParserWithSecret(secret []byte, now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{secret: secret, now: now}
}

// Parse returns the claims of a token whose exp has not passed.
func (p *Parser) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}

	if len(p.secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, err
		}
	} else {
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return p.secret, nil
		}, jwt.WithTimeFunc(p.now))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, ErrTokenExpired
			}
			return nil, err
		}
		if !token.Valid {
			return nil, errors.New("invalid token")
		}
	}

	if claims.IsExpired(p.now()) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// IsExpired reports whether exp is at or before now. Tokens without exp
// never expire on the client side.
func (c *Claims) IsExpired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}
