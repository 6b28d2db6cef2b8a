//go:build integration || all

package accountfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/homecase-accounts/internal/domain"

	. "github.com/mkrupp/homecase-accounts/internal/repo/accountfile"
)

func setupFileAccountTestRepo(t *testing.T) *FileAccountRepository {
	t.Helper()

	cfg := FileAccountRepositoryConfig{
		Path:         filepath.Join(t.TempDir(), "nested", "users.json"),
		BackupSuffix: ".backup",
	}

	repo, err := NewFileAccountRepository(context.TODO(), cfg)
	require.NoError(t, err)

	return repo
}

func testRecord(t *testing.T, username string) domain.AccountRecord {
	t.Helper()

	account, err := domain.NewAccount(username, "Passw0rd", username+"@example.com", domain.RoleUser)
	require.NoError(t, err)

	return account.Record()
}

func TestFileAccountRepository_State(t *testing.T) {
	t.Parallel()

	ctx := context.TODO()
	repo := setupFileAccountTestRepo(t)

	state, err := repo.State(ctx, Primary)
	require.NoError(t, err)
	assert.Equal(t, FileMissing, state)

	require.NoError(t, os.WriteFile(repo.Filename(Primary), []byte("  \n"), 0o600))

	state, err = repo.State(ctx, Primary)
	require.NoError(t, err)
	assert.Equal(t, FileEmpty, state)

	require.NoError(t, repo.Write(ctx, nil))

	state, err = repo.State(ctx, Primary)
	require.NoError(t, err)
	assert.Equal(t, FilePresent, state)

	data, err := os.ReadFile(repo.Filename(Primary))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestFileAccountRepository_WriteRead(t *testing.T) {
	t.Parallel()

	ctx := context.TODO()
	repo := setupFileAccountTestRepo(t)

	records := []domain.AccountRecord{testRecord(t, "alice"), testRecord(t, "bob")}
	require.NoError(t, repo.Write(ctx, records))

	got, err := repo.Read(ctx, Primary)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	_, err = os.Stat(repo.Filename(Primary) + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not survive a write")
}

func TestFileAccountRepository_ReadEmptyAndInvalid(t *testing.T) {
	t.Parallel()

	ctx := context.TODO()
	repo := setupFileAccountTestRepo(t)

	_, err := repo.Read(ctx, Primary)
	require.ErrorIs(t, err, domain.ErrStorage)

	require.NoError(t, os.WriteFile(repo.Filename(Primary), []byte(""), 0o600))

	records, err := repo.Read(ctx, Primary)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, os.WriteFile(repo.Filename(Primary), []byte("{not json"), 0o600))

	_, err = repo.Read(ctx, Primary)
	require.ErrorIs(t, err, domain.ErrStorage)
}

func TestFileAccountRepository_ReadLegacy(t *testing.T) {
	t.Parallel()

	ctx := context.TODO()
	repo := setupFileAccountTestRepo(t)

	legacy := `[{"username": "carol", "password": "Legacy123", "email": "carol@example.com", "role": "admin"}]`
	require.NoError(t, os.WriteFile(repo.Filename(Primary), []byte(legacy), 0o600))

	records, err := repo.Read(ctx, Primary)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsLegacy())
	require.NotNil(t, records[0].Password)
	assert.Equal(t, "Legacy123", *records[0].Password)
}

func TestFileAccountRepository_BackupAndRestore(t *testing.T) {
	t.Parallel()

	ctx := context.TODO()
	repo := setupFileAccountTestRepo(t)

	original := []byte(`[{"username": "dave", "password": "Legacy123", "email": "dave@example.com"}]`)
	require.NoError(t, os.WriteFile(repo.Filename(Primary), original, 0o600))

	require.NoError(t, repo.MovePrimaryToBackup(ctx))

	state, err := repo.State(ctx, Primary)
	require.NoError(t, err)
	assert.Equal(t, FileMissing, state)

	backup, err := os.ReadFile(repo.Filename(Backup))
	require.NoError(t, err)
	assert.Equal(t, original, backup)

	require.NoError(t, repo.CopyBackupToPrimary(ctx))

	restored, err := os.ReadFile(repo.Filename(Primary))
	require.NoError(t, err)
	assert.Equal(t, original, restored, "restore must be verbatim")

	require.NoError(t, repo.Write(ctx, []domain.AccountRecord{testRecord(t, "erin")}))
	require.NoError(t, repo.CopyPrimaryToBackup(ctx))

	records, err := repo.Read(ctx, Backup)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "erin", records[0].Username)
}

func TestFileAccountRepository_MoveWithoutPrimary(t *testing.T) {
	t.Parallel()

	repo := setupFileAccountTestRepo(t)

	require.ErrorIs(t, repo.MovePrimaryToBackup(context.TODO()), domain.ErrStorage)
	require.ErrorIs(t, repo.CopyBackupToPrimary(context.TODO()), domain.ErrStorage)
}

func TestNewFileAccountRepository_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewFileAccountRepository(context.TODO(), FileAccountRepositoryConfig{})
	require.ErrorIs(t, err, domain.ErrStorage)
}
