package accountsvc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/repo/accountfile"
)

func testCredential(t *testing.T, password string) string {
	t.Helper()

	credential, err := domain.NewCredential(password)
	require.NoError(t, err)

	return string(credential)
}

func usernames(t *testing.T, records []domain.AccountRecord) []string {
	t.Helper()

	names := make([]string, 0, len(records))
	for _, record := range records {
		names = append(names, record.Username)
	}

	return names
}

func TestMigration_LegacyPrimary(t *testing.T) {
	t.Parallel()

	bobHash := testCredential(t, "Passw0rd")
	legacy := legacyJSON(t,
		map[string]any{
			"username":   "alice",
			"password":   "Secret123",
			"email":      "alice@example.com",
			"role":       "admin",
			"created_at": "2023-01-02T03:04:05.123456",
		},
		map[string]any{
			"username":      "bob",
			"password_hash": bobHash,
			"email":         "bob@example.com",
		},
	)

	store := newMockStore()
	store.set(accountfile.Primary, legacy)

	svc := setupTestService(t, store)

	backup, ok := store.get(accountfile.Backup)
	require.True(t, ok, "original file is backed up")
	assert.Equal(t, legacy, string(backup))

	records := store.records(t, accountfile.Primary)
	assert.Equal(t, []string{"alice", "bob"}, usernames(t, records))

	for _, record := range records {
		assert.False(t, record.IsLegacy(), record.Username)
		assert.Nil(t, record.Password, record.Username)
	}

	assert.Equal(t, bobHash, *records[1].PasswordHash, "stored hashes are kept")

	alice, ok := svc.Get(context.TODO(), "alice")
	require.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, alice.Role)
	assert.True(t, time.Date(2023, 1, 2, 3, 4, 5, 123456000, time.Local).Equal(alice.CreatedAt), alice.CreatedAt)

	login(t, svc, "alice", "Secret123")
	login(t, svc, "bob", "Passw0rd")

	_, ok = svc.Get(context.TODO(), "admin")
	assert.False(t, ok, "no default admin when a file exists")
}

func TestMigration_SkipsBrokenLegacyRecords(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.set(accountfile.Primary, legacyJSON(t,
		map[string]any{"username": "", "password": "Secret123", "email": "x@example.com"},
		map[string]any{"username": "carol", "password": "Secret123", "email": "carol@example.com", "role": "superuser"},
		map[string]any{"username": "dave", "password": "Secret123", "email": "dave@example.com"},
	))

	svc := setupTestService(t, store)

	assert.Equal(t, []string{"dave"}, usernames(t, store.records(t, accountfile.Primary)))

	dave, ok := svc.Get(context.TODO(), "dave")
	require.True(t, ok)
	assert.Equal(t, domain.RoleUser, dave.Role)
}

func TestMigration_NothingMigratable(t *testing.T) {
	t.Parallel()

	legacy := legacyJSON(t, map[string]any{"username": "", "password": "Secret123"})

	store := newMockStore()
	store.set(accountfile.Primary, legacy)

	svc := setupTestService(t, store)

	primary, _ := store.get(accountfile.Primary)
	assert.Equal(t, legacy, string(primary))
	assert.Zero(t, store.writeCount())

	_, ok := store.get(accountfile.Backup)
	assert.False(t, ok)
	assert.Empty(t, svc.List(context.TODO(), ""))
}

func TestMigration_ExistingBackupIsKept(t *testing.T) {
	t.Parallel()

	older := legacyJSON(t, map[string]any{"username": "old", "password": "Secret123", "email": "old@example.com"})

	store := newMockStore()
	store.set(accountfile.Backup, older)
	store.set(accountfile.Primary, legacyJSON(t,
		map[string]any{"username": "new", "password": "Secret123", "email": "new@example.com"},
	))

	svc := setupTestService(t, store)

	backup, _ := store.get(accountfile.Backup)
	assert.Equal(t, older, string(backup))
	assert.Equal(t, []string{"new"}, usernames(t, store.records(t, accountfile.Primary)))

	login(t, svc, "new", "Secret123")
}

func TestMigration_FromBackup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		primary *string
	}{
		{name: "primary missing"},
		{name: "primary empty", primary: new(string)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			legacy := legacyJSON(t, map[string]any{
				"username": "alice", "password": "Secret123", "email": "alice@example.com", "role": "admin",
			})

			store := newMockStore()
			store.set(accountfile.Backup, legacy)

			if tt.primary != nil {
				store.set(accountfile.Primary, *tt.primary)
			}

			svc := setupTestService(t, store)

			backup, _ := store.get(accountfile.Backup)
			assert.Equal(t, legacy, string(backup), "backup is not touched")

			records := store.records(t, accountfile.Primary)
			require.Len(t, records, 1)
			assert.False(t, records[0].IsLegacy())
			assert.Equal(t, "admin", records[0].Role)

			token := login(t, svc, "alice", "Secret123")
			assert.True(t, svc.IsAdmin(context.TODO(), token))
		})
	}
}

func TestMigration_RestoresCurrentBackup(t *testing.T) {
	t.Parallel()

	current := legacyJSON(t, map[string]any{
		"username":      "alice",
		"password_hash": testCredential(t, "Secret123"),
		"email":         "alice@example.com",
		"role":          "user",
		"created_at":    "2024-01-01T00:00:00Z",
	})

	store := newMockStore()
	store.set(accountfile.Backup, current)

	svc := setupTestService(t, store)

	primary, ok := store.get(accountfile.Primary)
	require.True(t, ok)
	assert.Equal(t, current, string(primary), "primary restored verbatim")
	assert.Zero(t, store.writeCount())

	login(t, svc, "alice", "Secret123")
}

func TestMigration_WriteFailureRestoresPrimary(t *testing.T) {
	t.Parallel()

	legacy := legacyJSON(t, map[string]any{"username": "alice", "password": "Secret123", "email": "alice@example.com"})

	store := newMockStore()
	store.set(accountfile.Primary, legacy)
	store.failWrites(errDiskFull)

	svc := setupTestService(t, store)

	primary, ok := store.get(accountfile.Primary)
	require.True(t, ok)
	assert.Equal(t, legacy, string(primary))

	backup, ok := store.get(accountfile.Backup)
	require.True(t, ok)
	assert.Equal(t, legacy, string(backup))

	// the legacy record is still usable from memory
	login(t, svc, "alice", "Secret123")
}

func TestLoad_EmptyPrimary(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.set(accountfile.Primary, "  \n")

	svc := setupTestService(t, store)

	assert.Empty(t, svc.List(context.TODO(), ""))
	assert.Zero(t, store.writeCount(), "no default admin for an existing empty file")
}

func TestLoad_UnparsablePrimary(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.set(accountfile.Primary, "{not json")

	svc := setupTestService(t, store)

	assert.Empty(t, svc.List(context.TODO(), ""))

	backup, ok := store.get(accountfile.Backup)
	require.True(t, ok, "unreadable file is preserved")
	assert.Equal(t, "{not json", string(backup))

	primary, _ := store.get(accountfile.Primary)
	assert.Equal(t, "{not json", string(primary))
}

func TestLoad_SkipsBadAndDuplicateRecords(t *testing.T) {
	t.Parallel()

	hash := testCredential(t, "Passw0rd")

	store := newMockStore()
	store.set(accountfile.Primary, legacyJSON(t,
		map[string]any{"username": "bob", "password_hash": hash, "email": "bob@example.com", "role": "user"},
		map[string]any{"username": "", "password_hash": hash, "email": "anon@example.com"},
		map[string]any{"username": "mal", "password_hash": "nocolon", "email": "mal@example.com"},
		map[string]any{"username": "root", "password_hash": hash, "email": "root@example.com", "role": "root"},
		map[string]any{"username": "old", "password_hash": hash, "email": "old@example.com", "created_at": "yesterday"},
		map[string]any{"username": "bob", "password_hash": hash, "email": "bob2@example.com", "role": "admin"},
		map[string]any{"username": "eve", "password_hash": hash, "email": "eve@example.com", "role": "ADMIN"},
	))

	svc := setupTestService(t, store)

	views := svc.List(context.TODO(), "")
	require.Len(t, views, 2)
	assert.Equal(t, "bob", views[0].Username)
	assert.Equal(t, "bob@example.com", views[0].Email, "first record wins")
	assert.Equal(t, domain.RoleUser, views[0].Role)
	assert.Equal(t, "eve", views[1].Username)
	assert.Equal(t, domain.RoleAdmin, views[1].Role)
	assert.Zero(t, store.writeCount())
}
