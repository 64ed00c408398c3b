// Package jwttest mints host tokens for tests. Real tokens are issued by
// the platform API.
package jwttest

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token signs an HS256 host token carrying email, name and exp.
func Token(secret []byte, email, name string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"email": email,
		"sub":   email,
		"iat":   expiresAt.Add(-time.Hour).Unix(),
		"exp":   expiresAt.Unix(),
	}
	if name != "" {
		claims["name"] = name
	}
	if len(secret) == 0 {
		secret = []byte("test")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
