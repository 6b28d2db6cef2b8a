package session

import (
	"context"
	"sync"

	"github.com/mkrupp/homecase-accounts/internal/domain"
)

// MemorySessionRepository keeps sessions in a map. It is the default backend.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

var _ Repository = (*MemorySessionRepository)(nil)

// NewMemorySessionRepository creates an empty in-memory session repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]domain.Session),
	}
}

// CreateSession implements Repository.CreateSession.
func (r *MemorySessionRepository) CreateSession(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.Token]; exists {
		return ErrTokenCollision
	}

	r.sessions[session.Token] = session

	return nil
}

// GetSession implements Repository.GetSession.
func (r *MemorySessionRepository) GetSession(_ context.Context, token string) (domain.Session, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[token]

	return session, ok, nil
}

// DeleteSession implements Repository.DeleteSession.
func (r *MemorySessionRepository) DeleteSession(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, token)

	return nil
}

// Close implements Repository.Close.
func (r *MemorySessionRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.sessions)

	return nil
}
