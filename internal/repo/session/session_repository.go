package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/homecase-accounts/internal/domain"
)

// ErrTokenCollision is returned when a new session reuses the token of a stored one.
var ErrTokenCollision = fmt.Errorf("%w: session token collision", domain.ErrConflict)

// ErrUnknownBackend is returned by NewRepository for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown session backend")

// Repository defines the interface for session persistence.
// Expiry is not evaluated here; callers compare ExpiresAt against their clock
// and Delete expired sessions lazily.
type Repository interface {
	// CreateSession stores a new session.
	// Returns ErrTokenCollision if the token is already in use.
	CreateSession(ctx context.Context, session domain.Session) error

	// GetSession retrieves a session by token.
	// Returns the session and true if found, or a zero session and false if not found.
	GetSession(ctx context.Context, token string) (domain.Session, bool, error)

	// DeleteSession removes a session. Deleting an unknown token is not an error.
	DeleteSession(ctx context.Context, token string) error

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)

// RepositoryConfig selects and configures the session backend.
type RepositoryConfig struct {
	// Backend is either "memory" or "sqlite"
	Backend string `env:"BACKEND" default:"memory"`

	SQLite SQLiteSessionRepositoryConfig
}

// RepositoryFactoryFor returns the factory for the configured backend.
func RepositoryFactoryFor(cfg RepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewRepository(cfg)
	}
}

// NewRepository creates the configured session backend.
func NewRepository(cfg RepositoryConfig) (Repository, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemorySessionRepository(), nil
	case "sqlite":
		return NewSQLiteSessionRepository(cfg.SQLite)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
