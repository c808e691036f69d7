package client

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expiryLeeway is how close to expiry an access token may get before the
// client refreshes it ahead of a request.
const expiryLeeway = 30 * time.Second

// tokenExpiry extracts the expiry of a JWT access token without verifying
// the signature (the client never holds the signing key). Returns false for
// opaque or claim-less tokens, which are then left to the 401 path.
func tokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// tokenNeedsRefresh reports whether the token visibly expires within the
// leeway window.
func tokenNeedsRefresh(token string, now time.Time) bool {
	exp, ok := tokenExpiry(token)
	if !ok {
		return false
	}
	return now.Add(expiryLeeway).After(exp)
}
