package accountsvc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/repo/accountfile"
	"github.com/mkrupp/homecase-accounts/internal/repo/session"
	"github.com/mkrupp/homecase-accounts/internal/svc/accountsvc"
)

var errDiskFull = errors.New("disk full")

// mockStore implements accountfile.Repository in memory.
// A target without an entry in files is missing.
type mockStore struct {
	files    map[accountfile.Target][]byte
	writeErr error
	writes   int
	m        sync.Mutex
}

var _ accountfile.Repository = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{files: make(map[accountfile.Target][]byte)}
}

func (s *mockStore) State(_ context.Context, target accountfile.Target) (accountfile.FileState, error) {
	s.m.Lock()
	defer s.m.Unlock()

	data, ok := s.files[target]

	switch {
	case !ok:
		return accountfile.FileMissing, nil
	case len(bytes.TrimSpace(data)) == 0:
		return accountfile.FileEmpty, nil
	default:
		return accountfile.FilePresent, nil
	}
}

func (s *mockStore) Read(_ context.Context, target accountfile.Target) ([]domain.AccountRecord, error) {
	s.m.Lock()
	defer s.m.Unlock()

	data, ok := s.files[target]
	if !ok {
		return nil, errors.Join(domain.ErrStorage, os.ErrNotExist)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []domain.AccountRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Join(domain.ErrStorage, err)
	}

	return records, nil
}

func (s *mockStore) Write(_ context.Context, records []domain.AccountRecord) error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}

	if records == nil {
		records = []domain.AccountRecord{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return errors.Join(domain.ErrStorage, err)
	}

	s.files[accountfile.Primary] = data
	s.writes++

	return nil
}

func (s *mockStore) MovePrimaryToBackup(_ context.Context) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.files[accountfile.Backup] = s.files[accountfile.Primary]
	delete(s.files, accountfile.Primary)

	return nil
}

func (s *mockStore) CopyBackupToPrimary(_ context.Context) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.files[accountfile.Primary] = bytes.Clone(s.files[accountfile.Backup])

	return nil
}

func (s *mockStore) CopyPrimaryToBackup(_ context.Context) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.files[accountfile.Backup] = bytes.Clone(s.files[accountfile.Primary])

	return nil
}

func (s *mockStore) set(target accountfile.Target, data string) {
	s.m.Lock()
	defer s.m.Unlock()

	s.files[target] = []byte(data)
}

func (s *mockStore) get(target accountfile.Target) ([]byte, bool) {
	s.m.Lock()
	defer s.m.Unlock()

	data, ok := s.files[target]

	return data, ok
}

func (s *mockStore) records(t *testing.T, target accountfile.Target) []domain.AccountRecord {
	t.Helper()

	records, err := s.Read(context.TODO(), target)
	require.NoError(t, err)

	return records
}

func (s *mockStore) writeCount() int {
	s.m.Lock()
	defer s.m.Unlock()

	return s.writes
}

func (s *mockStore) failWrites(err error) {
	s.m.Lock()
	defer s.m.Unlock()

	s.writeErr = err
}

func testAccountConfig() accountsvc.AccountConfig {
	return accountsvc.AccountConfig{
		SessionTTL: 30 * time.Minute,
		DefaultAdmin: accountsvc.DefaultAdminConfig{
			Username: "admin",
			Password: "Admin123!",
			Email:    "admin@example.com",
		},
	}
}

// setupTestService starts a service on store, seeding the default admin if store is empty.
func setupTestService(t *testing.T, store *mockStore) *accountsvc.FileAccountService {
	t.Helper()

	svc, err := accountsvc.NewFileAccountService(
		context.TODO(),
		func(context.Context) (accountfile.Repository, error) { return store, nil },
		func() (session.Repository, error) { return session.NewMemorySessionRepository(), nil },
		testAccountConfig(),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = svc.Close() })

	return svc
}

func login(t *testing.T, svc accountsvc.AccountService, username, password string) string {
	t.Helper()

	token, err := svc.Authenticate(context.TODO(), username, password)
	require.NoError(t, err)

	return token
}

func legacyJSON(t *testing.T, records ...map[string]any) string {
	t.Helper()

	data, err := json.Marshal(records)
	require.NoError(t, err)

	return string(data)
}
