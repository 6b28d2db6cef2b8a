package accountsvc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
)

// TokenSize is the number of random bytes in a session token.
const TokenSize = 32

func newToken() (string, error) {
	buf := make([]byte, TokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// issue creates a session for username. Called with s.mu held.
func (s *FileAccountService) issue(ctx context.Context, username string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("new token: %w", err)
	}

	session := domain.Session{
		Token:     token,
		Username:  username,
		ExpiresAt: s.Now().Add(s.Config.SessionTTL),
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", errors.Join(domain.ErrStorage, err))
	}

	s.Log.DebugContext(ctx, "session issued", logging.Group("session",
		"username", username,
		"exp", session.ExpiresAt.UTC().Format(time.RFC3339),
	))

	return token, nil
}

// resolve returns the account behind a valid session. Expired and dangling
// sessions are deleted on the way. Called with s.mu held.
func (s *FileAccountService) resolve(ctx context.Context, token string) (domain.Account, error) {
	if token == "" {
		return domain.Account{}, domain.ErrNoAuthToken
	}

	session, ok, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return domain.Account{}, fmt.Errorf("get session: %w", errors.Join(domain.ErrStorage, err))
	} else if !ok {
		return domain.Account{}, domain.ErrInvalidAuthToken
	}

	if session.Expired(s.Now()) {
		s.purge(ctx, token, "session expired")

		return domain.Account{}, domain.ErrInvalidAuthToken
	}

	i := s.index(session.Username)
	if i < 0 {
		s.purge(ctx, token, "session account gone")

		return domain.Account{}, domain.ErrInvalidAuthToken
	}

	return s.accounts[i], nil
}

func (s *FileAccountService) purge(ctx context.Context, token, reason string) {
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		s.Log.ErrorContext(ctx, "purge session failed", "reason", reason, "error", err)

		return
	}

	s.Log.DebugContext(ctx, reason)
}

// requireAdmin resolves token and checks the admin role. Called with s.mu held.
func (s *FileAccountService) requireAdmin(ctx context.Context, token string) (domain.Account, error) {
	account, err := s.resolve(ctx, token)
	if err != nil {
		return domain.Account{}, err
	}

	if !account.IsAdmin() {
		return domain.Account{}, domain.ErrUnauthorized
	}

	return account, nil
}

// Resolve implements AccountService.Resolve.
func (s *FileAccountService) Resolve(ctx context.Context, token string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.resolve(ctx, token)
}

// Logout implements AccountService.Logout.
func (s *FileAccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		s.Log.ErrorContext(ctx, "logout failed", "error", err)

		return fmt.Errorf("delete session: %w", errors.Join(domain.ErrStorage, err))
	}

	s.Log.InfoContext(ctx, "session revoked")

	return nil
}

// IsAdmin implements AccountService.IsAdmin.
func (s *FileAccountService) IsAdmin(ctx context.Context, token string) bool {
	account, err := s.Resolve(ctx, token)

	return err == nil && account.IsAdmin()
}

// Validate implements AccountService.Validate. Rejected tokens are reported
// through ok; err is only set when the session store fails.
func (s *FileAccountService) Validate(ctx context.Context, token string) (string, bool, error) {
	account, err := s.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrAuthentication) {
			return "", false, nil
		}

		return "", false, err
	}

	return account.Username, true, nil
}

// Profile implements AccountService.Profile.
func (s *FileAccountService) Profile(ctx context.Context, token string) (domain.AccountView, error) {
	account, err := s.Resolve(ctx, token)
	if err != nil {
		return domain.AccountView{}, err
	}

	return account.View(), nil
}
