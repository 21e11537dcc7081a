package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenExpiry reads the exp claim without verifying the signature;
// the server remains the authority on validity.
func AccessTokenExpiry(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ExpiresWithin reports whether token has a readable expiry that falls
// before now+skew. Tokens without one are treated as fresh.
func ExpiresWithin(token string, now time.Time, skew time.Duration) bool {
	exp, ok := AccessTokenExpiry(token)
	if !ok {
		return false
	}
	return !exp.After(now.Add(skew))
}
