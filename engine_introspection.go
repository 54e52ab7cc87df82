package mailauth

import (
	"context"
	"strings"

	"github.com/mailauth-io/mailauth/jwt"
)

// UserIDFromAuthHeader verifies the bearer token in an Authorization
// header value and returns the user ID it is bound to. Signature and
// expiry are checked; issuer binding is not (matching the refresh path).
func (e *Engine) UserIDFromAuthHeader(header string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if header == "" {
		return "", ErrMissingAuthorization
	}

	token := strings.TrimPrefix(header, "Bearer ")
	claims, err := e.codec.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.UserID(), nil
}

// UserFromAuthHeader resolves the bearer token in an Authorization
// header value to the directory record it is bound to. On top of the
// token checks performed by UserIDFromAuthHeader, the user must still
// exist in the directory; ErrUserNotFound is returned when it does not.
func (e *Engine) UserFromAuthHeader(ctx context.Context, header string) (*UserRecord, error) {
	userID, err := e.UserIDFromAuthHeader(header)
	if err != nil {
		return nil, err
	}
	return e.directory.FindByID(ctx, userID)
}

// ValidateClaims reports whether decoded claims are structurally usable
// by this service: a non-empty audience and payload email, and an issuer
// equal to the configured base URL.
func (e *Engine) ValidateClaims(claims *jwt.Claims) bool {
	if e == nil || claims == nil {
		return false
	}
	if claims.UserID() == "" || claims.Data.Email == "" {
		return false
	}
	return claims.Issuer == e.config.API.BaseURL
}
