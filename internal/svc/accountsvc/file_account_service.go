package accountsvc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	"github.com/mkrupp/homecase-accounts/internal/repo/accountfile"
	"github.com/mkrupp/homecase-accounts/internal/repo/session"
)

// FileAccountService implements AccountService on top of a flat-file account
// store and a session repository.
//
// The account collection is held in memory. Mutations work on a copy, write
// the copy to the accounts file and only then replace the collection, so a
// failed write leaves memory and disk in agreement.
type FileAccountService struct {
	Config AccountConfig
	Log    logging.Logger

	// Now is the clock used for session expiry.
	Now func() time.Time

	store    accountfile.Repository
	sessions session.Repository

	mu       sync.RWMutex
	accounts []domain.Account
}

var _ AccountService = (*FileAccountService)(nil)

// NewFileAccountService creates the account store and the session repository,
// migrates a legacy accounts file if there is one and loads the accounts.
// Migration and load failures are logged and never abort startup: the service
// then starts with whatever could be recovered, possibly nothing.
func NewFileAccountService(
	ctx context.Context,
	storeFactory accountfile.RepositoryFactory,
	sessionFactory session.RepositoryFactory,
	cfg AccountConfig,
) (*FileAccountService, error) {
	log := logging.GetLogger("svc.accountsvc.file_account_service")

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = domain.DefaultSessionTTL
	}

	store, err := storeFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new account store: %w", err)
	}

	sessions, err := sessionFactory()
	if err != nil {
		return nil, fmt.Errorf("new session repo: %w", err)
	}

	svc := &FileAccountService{
		Config:   cfg,
		Log:      log,
		Now:      time.Now,
		store:    store,
		sessions: sessions,
	}

	// both log their own failures
	_ = svc.migrate(ctx)
	_ = svc.load(ctx)

	return svc, nil
}

// Register implements AccountService.Register.
func (s *FileAccountService) Register(ctx context.Context, account domain.Account) (err error) {
	log := s.Log.With(logging.Group("account", "username", account.Username, "role", account.Role.String()))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register account failed", "error", err)
		} else {
			log.InfoContext(ctx, "account registered")
		}
	}()

	if !domain.ValidateEmail(account.Email) {
		return domain.ErrInvalidEmail
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(account.Username) >= 0 {
		return domain.ErrAccountAlreadyExists
	}

	if err := s.commit(ctx, append(slices.Clone(s.accounts), account)); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// RegisterUser implements AccountService.RegisterUser.
func (s *FileAccountService) RegisterUser(ctx context.Context, username, password, email string) error {
	if username == "" || password == "" || email == "" {
		return domain.ErrMissingFields
	}

	if !domain.ValidatePassword(password) {
		return domain.ErrWeakPassword
	}

	account, err := domain.NewAccount(username, password, email, domain.RoleUser)
	if err != nil {
		return fmt.Errorf("new account: %w", err)
	}

	return s.Register(ctx, account)
}

// Get implements AccountService.Get.
func (s *FileAccountService) Get(_ context.Context, username string) (domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.index(username); i >= 0 {
		return s.accounts[i], true
	}

	return domain.Account{}, false
}

// Delete implements AccountService.Delete.
func (s *FileAccountService) Delete(ctx context.Context, token, username string) (err error) {
	log := s.Log.With(logging.Group("account", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "delete account failed", "error", err)
		} else {
			log.InfoContext(ctx, "account deleted")
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	requester, err := s.requireAdmin(ctx, token)
	if err != nil {
		return err
	}

	log = log.With(logging.Group("requester", "username", requester.Username))

	i := s.index(username)
	if i < 0 {
		return domain.ErrAccountNotFound
	}

	if err := s.commit(ctx, slices.Delete(slices.Clone(s.accounts), i, i+1)); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Update implements AccountService.Update.
func (s *FileAccountService) Update(ctx context.Context, token, username, email, password string) (err error) {
	log := s.Log.With(logging.Group("account", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "update account failed", "error", err)
		} else {
			log.InfoContext(ctx, "account updated")
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	requester, err := s.requireAdmin(ctx, token)
	if err != nil {
		return err
	}

	log = log.With(logging.Group("requester", "username", requester.Username))

	i := s.index(username)
	if i < 0 {
		return domain.ErrAccountNotFound
	}

	account := s.accounts[i]

	if email != "" {
		if !domain.ValidateEmail(email) {
			return domain.ErrInvalidEmail
		}

		account.Email = email
	}

	if password != "" {
		if !domain.ValidatePassword(password) {
			return domain.ErrWeakPassword
		}

		if account.Credential, err = domain.NewCredential(password); err != nil {
			return fmt.Errorf("new credential: %w", err)
		}
	}

	if email == "" && password == "" {
		return nil
	}

	return s.replace(ctx, i, account)
}

// ChangeRole implements AccountService.ChangeRole.
func (s *FileAccountService) ChangeRole(ctx context.Context, token, username, role string) (err error) {
	log := s.Log.With(logging.Group("account", "username", username, "role", role))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "change role failed", "error", err)
		} else {
			log.InfoContext(ctx, "role changed")
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	requester, err := s.requireAdmin(ctx, token)
	if err != nil {
		return err
	}

	log = log.With(logging.Group("requester", "username", requester.Username))

	newRole, err := domain.ParseRole(strings.ToLower(strings.TrimSpace(role)))
	if err != nil {
		return err
	}

	i := s.index(username)
	if i < 0 {
		return domain.ErrAccountNotFound
	}

	account := s.accounts[i]
	account.Role = newRole

	return s.replace(ctx, i, account)
}

// ChangePassword implements AccountService.ChangePassword.
func (s *FileAccountService) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) (err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "change password failed", "error", err)
		} else {
			log.InfoContext(ctx, "password changed")
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.resolve(ctx, token)
	if err != nil {
		return err
	}

	log = log.With(logging.Group("account", "username", account.Username))

	if !domain.ValidatePassword(newPassword) {
		return domain.ErrWeakPassword
	}

	if !account.Credential.Verify(oldPassword) {
		return domain.ErrInvalidCredentials
	}

	if account.Credential, err = domain.NewCredential(newPassword); err != nil {
		return fmt.Errorf("new credential: %w", err)
	}

	return s.replace(ctx, s.index(account.Username), account)
}

// Authenticate implements AccountService.Authenticate.
func (s *FileAccountService) Authenticate(ctx context.Context, username, password string) (_ string, err error) {
	log := s.Log.With(logging.Group("account", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "login failed", "error", err)
		} else {
			log.InfoContext(ctx, "login successful")
		}
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(username)
	if i < 0 || !s.accounts[i].Credential.Verify(password) {
		return "", domain.ErrInvalidCredentials
	}

	return s.issue(ctx, username)
}

// List implements AccountService.List.
func (s *FileAccountService) List(_ context.Context, filter string) []domain.AccountView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.list(filter)
}

// ListAll implements AccountService.ListAll.
func (s *FileAccountService) ListAll(ctx context.Context, token, filter string) ([]domain.AccountView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.requireAdmin(ctx, token); err != nil {
		s.Log.WarnContext(ctx, "list accounts denied", "error", err)

		return nil, err
	}

	return s.list(filter), nil
}

// Close implements AccountService.Close.
func (s *FileAccountService) Close() error {
	if err := s.sessions.Close(); err != nil {
		return fmt.Errorf("close session repo: %w", err)
	}

	return nil
}

func (s *FileAccountService) list(filter string) []domain.AccountView {
	filter = strings.ToLower(filter)
	views := make([]domain.AccountView, 0, len(s.accounts))

	for _, account := range s.accounts {
		if strings.Contains(strings.ToLower(account.Username), filter) {
			views = append(views, account.View())
		}
	}

	return views
}

// index must be called with s.mu held.
func (s *FileAccountService) index(username string) int {
	return slices.IndexFunc(s.accounts, func(a domain.Account) bool {
		return a.Username == username
	})
}

// replace swaps the account at index i. Called with the write lock held.
func (s *FileAccountService) replace(ctx context.Context, i int, account domain.Account) error {
	next := slices.Clone(s.accounts)
	next[i] = account

	if err := s.commit(ctx, next); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// commit persists next and makes it the current collection. Called with the write lock held.
func (s *FileAccountService) commit(ctx context.Context, next []domain.Account) error {
	if err := s.save(ctx, next); err != nil {
		return err
	}

	s.accounts = next

	return nil
}

// save is the only path that writes the accounts file after startup.
func (s *FileAccountService) save(ctx context.Context, accounts []domain.Account) error {
	records := make([]domain.AccountRecord, 0, len(accounts))
	for _, account := range accounts {
		records = append(records, account.Record())
	}

	if err := s.store.Write(ctx, records); err != nil {
		return fmt.Errorf("write accounts: %w", errors.Join(domain.ErrStorage, err))
	}

	s.Log.DebugContext(ctx, "accounts saved", "accounts", len(records))

	return nil
}
