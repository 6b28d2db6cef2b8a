package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Timestamps without a zone were written by older versions of the store in
// local time.
var legacyTimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ValidateEmail reports whether email has the shape local@domain.tld.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Account is a user record. The plaintext password is never kept.
type Account struct {
	Username   string
	Credential Credential
	Email      string
	Role       Role
	CreatedAt  time.Time
}

// NewAccount hashes password into a fresh credential.
func NewAccount(username, password, email string, role Role) (Account, error) {
	credential, err := NewCredential(password)
	if err != nil {
		return Account{}, fmt.Errorf("new credential: %w", err)
	}

	return Account{
		Username:   username,
		Credential: credential,
		Email:      email,
		Role:       role,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// IsAdmin reports whether the account has the admin role.
func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// View returns the credential-free projection of the account.
func (a Account) View() AccountView {
	return AccountView{
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

// Record returns the persisted form of the account.
func (a Account) Record() AccountRecord {
	hash := string(a.Credential)

	return AccountRecord{
		Username:     a.Username,
		PasswordHash: &hash,
		Email:        a.Email,
		Role:         a.Role.String(),
		CreatedAt:    a.CreatedAt.Format(time.RFC3339Nano),
	}
}

// AccountView is what listings and profiles expose.
type AccountView struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountRecord is one element of the JSON array in the accounts file.
// Legacy records carry a plaintext Password instead of PasswordHash.
type AccountRecord struct {
	Username     string  `json:"username"`
	PasswordHash *string `json:"password_hash,omitempty"`
	Password     *string `json:"password,omitempty"`
	Email        string  `json:"email"`
	Role         string  `json:"role,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// IsLegacy reports whether the record predates hashed credentials.
func (r AccountRecord) IsLegacy() bool {
	return r.PasswordHash == nil
}

// AccountFromRecord rebuilds an account from its persisted form. Stored
// hashes are trusted as-is; legacy plaintext passwords are hashed. A missing
// role means user and a missing timestamp means now.
func AccountFromRecord(r AccountRecord, now time.Time) (Account, error) {
	if r.Username == "" {
		return Account{}, fmt.Errorf("%w: username", ErrMissingFields)
	}

	var (
		credential Credential
		err        error
	)

	switch {
	case r.PasswordHash != nil:
		credential, err = ParseCredential(*r.PasswordHash)
		if err != nil {
			return Account{}, fmt.Errorf("parse credential: %w", err)
		}
	case r.Password != nil:
		credential, err = NewCredential(*r.Password)
		if err != nil {
			return Account{}, fmt.Errorf("hash legacy password: %w", err)
		}
	default:
		return Account{}, fmt.Errorf("%w: password", ErrMissingFields)
	}

	role := RoleUser
	if r.Role != "" {
		if role, err = ParseRole(strings.ToLower(r.Role)); err != nil {
			return Account{}, err
		}
	}

	createdAt := now
	if r.CreatedAt != "" {
		if createdAt, err = parseTimestamp(r.CreatedAt); err != nil {
			return Account{}, err
		}
	}

	return Account{
		Username:   r.Username,
		Credential: credential,
		Email:      r.Email,
		Role:       role,
		CreatedAt:  createdAt,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range legacyTimestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: created_at %q", ErrValidation, s)
}
