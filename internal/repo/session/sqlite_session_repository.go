package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
)

// SQLiteSessionRepositoryConfig holds configuration for the SQLite session repository.
type SQLiteSessionRepositoryConfig struct {
	// DatabasePath is the SQLite DSN. The default keeps sessions in memory.
	DatabasePath string `env:"DATABASE_PATH" default:"file:sessions?mode=memory&cache=shared"`
}

// SQLiteSessionRepository implements Repository using SQLite as the storage backend.
type SQLiteSessionRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteSessionRepository)(nil)

// NewSQLiteSessionRepository opens the database and creates the schema if needed.
func NewSQLiteSessionRepository(cfg SQLiteSessionRepositoryConfig) (*SQLiteSessionRepository, error) {
	log := logging.GetLogger("repo.session.sqlite_session_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// an in-memory database lives as long as its last connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := initializeDB(db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("initialize db: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	log.Debug("session database ready")

	return &SQLiteSessionRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT    PRIMARY KEY NOT NULL,
			username   TEXT    NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// CreateSession implements Repository.CreateSession using SQLite.
func (r *SQLiteSessionRepository) CreateSession(ctx context.Context, session domain.Session) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (token, username, expires_at) VALUES (?, ?, ?)",
		session.Token,
		session.Username,
		session.ExpiresAt.UnixNano(),
	)
	if err != nil {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) {
			switch liteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
				fallthrough
			case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
				err = errors.Join(ErrTokenCollision, err)
			default:
				break
			}
		}

		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetSession implements Repository.GetSession using SQLite.
func (r *SQLiteSessionRepository) GetSession(ctx context.Context, token string) (domain.Session, bool, error) {
	var (
		session   domain.Session
		expiresAt int64
	)

	err := r.db.QueryRowContext(ctx,
		"SELECT token, username, expires_at FROM sessions WHERE token = ?",
		token,
	).Scan(&session.Token, &session.Username, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, false, nil
		}

		return domain.Session{}, false, fmt.Errorf("query session: %w", err)
	}

	session.ExpiresAt = time.Unix(0, expiresAt).UTC()

	return session, true, nil
}

// DeleteSession implements Repository.DeleteSession using SQLite.
func (r *SQLiteSessionRepository) DeleteSession(ctx context.Context, token string) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteSessionRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
