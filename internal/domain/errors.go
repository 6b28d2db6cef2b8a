package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every specific error below wraps exactly one of them so
// transports can map failures with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAuthentication = errors.New("authentication error")
	ErrAuthorization  = errors.New("authorization error")
	ErrStorage        = errors.New("storage error")
)

var (
	// ErrMissingFields is returned when a required input field is empty.
	ErrMissingFields = fmt.Errorf("%w: missing fields", ErrValidation)
	// ErrWeakPassword is returned when a password does not meet the strength rules.
	ErrWeakPassword = fmt.Errorf("%w: weak password", ErrValidation)
	// ErrInvalidEmail is returned when an email does not look like local@domain.tld.
	ErrInvalidEmail = fmt.Errorf("%w: invalid email", ErrValidation)
	// ErrInvalidRole is returned for any role other than "admin" or "user".
	ErrInvalidRole = fmt.Errorf("%w: invalid role", ErrValidation)
	// ErrInvalidCredential is returned when a stored credential is not salt:digest.
	ErrInvalidCredential = fmt.Errorf("%w: invalid credential", ErrValidation)

	// ErrAccountNotFound is returned when looking up a non-existent account.
	ErrAccountNotFound = fmt.Errorf("%w: account not found", ErrNotFound)
	// ErrAccountAlreadyExists is returned when registering a taken username.
	ErrAccountAlreadyExists = fmt.Errorf("%w: account already exists", ErrConflict)

	// ErrInvalidCredentials is returned when the username/password combination is incorrect.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuthentication)
	// ErrNoAuthToken is returned when a session token is required but not provided.
	ErrNoAuthToken = fmt.Errorf("%w: no auth token", ErrAuthentication)
	// ErrInvalidAuthToken is returned for unknown, expired or dangling sessions.
	ErrInvalidAuthToken = fmt.Errorf("%w: invalid auth token", ErrAuthentication)

	// ErrUnauthorized is returned when the authenticated account lacks permission.
	ErrUnauthorized = fmt.Errorf("%w: admin privileges required", ErrAuthorization)
)
