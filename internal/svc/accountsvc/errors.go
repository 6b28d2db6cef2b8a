package accountsvc

import (
	"errors"
	"net/http"

	"github.com/mkrupp/homecase-accounts/internal/domain"
)

//nolint:gochecknoglobals
var errorMessages = []struct {
	err     error
	message string
}{
	{domain.ErrMissingFields, "Missing fields"},
	{domain.ErrWeakPassword, "Weak password"},
	{domain.ErrInvalidEmail, "Invalid email"},
	{domain.ErrInvalidRole, "Invalid role"},
	{domain.ErrAccountNotFound, "User not found"},
	{domain.ErrAccountAlreadyExists, "Username already exists"},
	{domain.ErrInvalidCredentials, "Invalid credentials"},
	{domain.ErrNoAuthToken, "Not logged in"},
	{domain.ErrInvalidAuthToken, "Session expired or invalid"},
	{domain.ErrUnauthorized, "Unauthorized operation"},
}

// StatusCode maps an error to the HTTP status reported for it.
// Storage failures are checked first so a wrapped conflict from a backing
// store is still reported as a server error.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing text for err. Internal failures are not described.
func Message(err error) string {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		return http.StatusText(status)
	}

	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			return m.message
		}
	}

	return http.StatusText(status)
}
