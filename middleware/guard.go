package middleware

import (
	"context"
	"net/http"

	"github.com/mailauth-io/mailauth"
)

type userIDContextKey struct{}

// UserIDFromContext returns the user ID injected by a guard, when present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey{}).(string)
	return id, ok
}

// RequireToken returns middleware that admits requests carrying a valid
// bearer token. The token is verified statelessly; the directory is not
// consulted.
func RequireToken(engine *mailauth.Engine) func(http.Handler) http.Handler {
	return guard(func(r *http.Request) (string, error) {
		return engine.UserIDFromAuthHeader(r.Header.Get("Authorization"))
	})
}

// RequireUser returns middleware that admits requests carrying a valid
// bearer token whose user still exists in the directory. Deleted users
// are rejected even while their tokens remain cryptographically valid.
func RequireUser(engine *mailauth.Engine) func(http.Handler) http.Handler {
	return guard(func(r *http.Request) (string, error) {
		user, err := engine.UserFromAuthHeader(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			return "", err
		}
		return user.ID, nil
	})
}

func guard(resolve func(*http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolve(r)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
