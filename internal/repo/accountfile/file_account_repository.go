package accountfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
)

// FileAccountRepositoryConfig holds configuration for the flat-file account store.
type FileAccountRepositoryConfig struct {
	// Path is the accounts file
	Path string `env:"PATH" default:"var/storage/users.json"`

	// BackupSuffix is appended to Path to form the backup file name
	BackupSuffix string `env:"BACKUP_SUFFIX" default:".backup"`
}

// FileAccountRepository implements Repository on the local filesystem.
// Writes go to a temp file that is synced and renamed over the target, and
// every operation holds an advisory flock on "<path>.lock" so processes that
// share the file do not interleave.
type FileAccountRepository struct {
	cfg FileAccountRepositoryConfig
	log logging.Logger
	m   *sync.Mutex
}

var _ Repository = (*FileAccountRepository)(nil)

// FileAccountRepositoryFactory creates a factory function that returns a new FileAccountRepository.
// The factory function implements the RepositoryFactory type.
func FileAccountRepositoryFactory(cfg FileAccountRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewFileAccountRepository(ctx, cfg)
	}
}

// NewFileAccountRepository creates the parent directory of the accounts file
// if needed. It does not create the file itself.
func NewFileAccountRepository(ctx context.Context, cfg FileAccountRepositoryConfig) (_ *FileAccountRepository, err error) {
	log := logging.GetLogger("repo.accountfile.file_account_repository").With(
		logging.Group("store", "path", cfg.Path, "backupSuffix", cfg.BackupSuffix),
	)

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "init storage failed", "error", err)
		} else {
			log.DebugContext(ctx, "init storage")
		}
	}()

	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: empty accounts path", domain.ErrStorage)
	}

	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir all: %w", errors.Join(domain.ErrStorage, err))
		}
	}

	return &FileAccountRepository{
		cfg: cfg,
		log: log,
		m:   new(sync.Mutex),
	}, nil
}

// Filename returns the path of the given target.
func (r *FileAccountRepository) Filename(target Target) string {
	if target == Backup {
		return r.cfg.Path + r.cfg.BackupSuffix
	}

	return r.cfg.Path
}

// State implements Repository.State.
func (r *FileAccountRepository) State(ctx context.Context, target Target) (FileState, error) {
	release, err := r.lock(ctx, syscall.LOCK_SH)
	if err != nil {
		return FileMissing, err
	}
	defer release()

	return r.state(target)
}

func (r *FileAccountRepository) state(target Target) (FileState, error) {
	data, err := os.ReadFile(r.Filename(target))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileMissing, nil
		}

		return FileMissing, fmt.Errorf("read file: %w", errors.Join(domain.ErrStorage, err))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return FileEmpty, nil
	}

	return FilePresent, nil
}

// Read implements Repository.Read.
func (r *FileAccountRepository) Read(ctx context.Context, target Target) (records []domain.AccountRecord, err error) {
	filename := r.Filename(target)

	defer func() {
		log := r.log.With(logging.Group("file", "target", target.String(), "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "read accounts failed", "error", err)
		} else {
			log.DebugContext(ctx, "accounts read", "records", len(records))
		}
	}()

	release, err := r.lock(ctx, syscall.LOCK_SH)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", errors.Join(domain.ErrStorage, err))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshal accounts: %w", errors.Join(domain.ErrStorage, err))
	}

	return records, nil
}

// Write implements Repository.Write.
func (r *FileAccountRepository) Write(ctx context.Context, records []domain.AccountRecord) (err error) {
	filename := r.Filename(Primary)

	defer func() {
		log := r.log.With(logging.Group("file", "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "write accounts failed", "error", err)
		} else {
			log.DebugContext(ctx, "accounts written", "records", len(records))
		}
	}()

	if records == nil {
		records = []domain.AccountRecord{}
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", errors.Join(domain.ErrStorage, err))
	}

	release, err := r.lock(ctx, syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer release()

	return r.writeFile(filename, data)
}

// MovePrimaryToBackup implements Repository.MovePrimaryToBackup.
func (r *FileAccountRepository) MovePrimaryToBackup(ctx context.Context) (err error) {
	from, to := r.Filename(Primary), r.Filename(Backup)

	defer func() {
		log := r.log.With(logging.Group("file", "from", from, "to", to))
		if err != nil {
			log.ErrorContext(ctx, "move to backup failed", "error", err)
		} else {
			log.InfoContext(ctx, "original file backed up")
		}
	}()

	release, err := r.lock(ctx, syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer release()

	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename: %w", errors.Join(domain.ErrStorage, err))
	}

	return nil
}

// CopyBackupToPrimary implements Repository.CopyBackupToPrimary.
func (r *FileAccountRepository) CopyBackupToPrimary(ctx context.Context) error {
	return r.copyFile(ctx, Backup, Primary)
}

// CopyPrimaryToBackup implements Repository.CopyPrimaryToBackup.
func (r *FileAccountRepository) CopyPrimaryToBackup(ctx context.Context) error {
	return r.copyFile(ctx, Primary, Backup)
}

func (r *FileAccountRepository) copyFile(ctx context.Context, from, to Target) (err error) {
	src, dst := r.Filename(from), r.Filename(to)

	defer func() {
		log := r.log.With(logging.Group("file", "from", src, "to", dst))
		if err != nil {
			log.ErrorContext(ctx, "copy failed", "error", err)
		} else {
			log.InfoContext(ctx, "file copied")
		}
	}()

	release, err := r.lock(ctx, syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer release()

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read file: %w", errors.Join(domain.ErrStorage, err))
	}

	return r.writeFile(dst, data)
}

// writeFile must be called with the exclusive lock held.
func (r *FileAccountRepository) writeFile(filename string, data []byte) error {
	r.m.Lock()
	defer r.m.Unlock()

	tmp := filename + ".tmp"

	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open: %w", errors.Join(domain.ErrStorage, err))
	}

	if n, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)

		return fmt.Errorf("write: %w", errors.Join(domain.ErrStorage, err))
	} else if n != len(data) {
		_ = file.Close()
		_ = os.Remove(tmp)

		return fmt.Errorf("%w: short write: expected %d, got %d", domain.ErrStorage, len(data), n)
	}

	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)

		return fmt.Errorf("sync: %w", errors.Join(domain.ErrStorage, err))
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("close: %w", errors.Join(domain.ErrStorage, err))
	}

	if err := os.Rename(tmp, filename); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("rename: %w", errors.Join(domain.ErrStorage, err))
	}

	return nil
}

func (r *FileAccountRepository) lock(ctx context.Context, mode int) (release func(), err error) {
	lockfile := r.cfg.Path + ".lock"

	file, err := os.OpenFile(lockfile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lockfile: %w", errors.Join(domain.ErrStorage, err))
	}

	if err := syscall.Flock(int(file.Fd()), mode); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("flock: %w", errors.Join(domain.ErrStorage, err))
	}

	return func() {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
	}, nil
}
