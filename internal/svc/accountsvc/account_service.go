package accountsvc

import (
	"context"

	"github.com/mkrupp/homecase-accounts/internal/domain"
)

// AccountService defines the operations shared by the HTTP and console transports.
// Operations that take a token act on behalf of the session's account;
// Delete, Update, ChangeRole and ListAll require that account to be an admin.
type AccountService interface {
	// Register adds account to the collection and persists it.
	// The password strength is not checked here; the email and uniqueness are.
	Register(ctx context.Context, account domain.Account) error

	// RegisterUser validates the raw input, creates a regular account and registers it.
	RegisterUser(ctx context.Context, username, password, email string) error

	// Get looks up an account by its exact username.
	Get(ctx context.Context, username string) (domain.Account, bool)

	// Delete removes the account. Returns domain.ErrAccountNotFound without
	// touching the accounts file if the username is unknown.
	Delete(ctx context.Context, token, username string) error

	// Update changes the email and/or password of an account.
	// Empty values leave the corresponding field unchanged.
	Update(ctx context.Context, token, username, email, password string) error

	// ChangeRole sets the role of an account to "admin" or "user".
	ChangeRole(ctx context.Context, token, username, role string) error

	// ChangePassword replaces the password of the session's own account.
	ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error

	// Authenticate verifies the password and issues a new session token.
	Authenticate(ctx context.Context, username, password string) (string, error)

	// Logout revokes the session. Unknown tokens are ignored.
	Logout(ctx context.Context, token string) error

	// Resolve returns the account behind a valid session.
	Resolve(ctx context.Context, token string) (domain.Account, error)

	// IsAdmin reports whether token resolves to an admin account.
	IsAdmin(ctx context.Context, token string) bool

	// Validate implements http.TokenValidator.
	Validate(ctx context.Context, token string) (string, bool, error)

	// Profile returns the credential-free view of the session's account.
	Profile(ctx context.Context, token string) (domain.AccountView, error)

	// List returns all accounts in insertion order, optionally filtered by a
	// case-insensitive username substring.
	List(ctx context.Context, filter string) []domain.AccountView

	// ListAll is the admin variant of List.
	ListAll(ctx context.Context, token, filter string) ([]domain.AccountView, error)

	// Close releases resources held by the service.
	Close() error
}
