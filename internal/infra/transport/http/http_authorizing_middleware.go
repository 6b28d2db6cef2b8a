package http

import (
	"context"
	"net/http"
	"strings"

	context_ "github.com/mkrupp/homecase-accounts/internal/infra/context"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
)

// TokenValidator checks session tokens.
type TokenValidator interface {
	// Validate returns the username bound to token and whether the token is valid.
	// An error means the check itself failed, not that the token was rejected.
	Validate(ctx context.Context, token string) (string, bool, error)
}

// BearerToken extracts the token from the Authorization header.
// The "Bearer" scheme prefix is optional.
func BearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))

	if scheme, rest, ok := strings.Cut(token, " "); ok && strings.EqualFold(scheme, "Bearer") {
		token = strings.TrimSpace(rest)
	}

	return token
}

// AuthorizingMiddleware creates middleware that validates session tokens.
// Requests without a valid token in the Authorization header are rejected with 401.
// On successful validation, the username is added to the request context.
func AuthorizingMiddleware(
	next http.Handler,
	validator TokenValidator,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			log.WarnContext(r.Context(), "no token provided")
			WriteError(w, http.StatusUnauthorized, "no auth token")

			return
		}

		username, ok, err := validator.Validate(r.Context(), token)
		if err != nil {
			log.ErrorContext(r.Context(), "validate token failed", "error", err)
			WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))

			return
		} else if !ok {
			log.WarnContext(r.Context(), "invalid token")
			WriteError(w, http.StatusUnauthorized, "invalid auth token")

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithUsername(r.Context(), username)))
	})
}
