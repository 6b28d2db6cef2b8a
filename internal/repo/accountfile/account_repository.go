package accountfile

import (
	"context"

	"github.com/mkrupp/homecase-accounts/internal/domain"
)

// Target selects one of the two files a Repository manages.
type Target int

const (
	// Primary is the accounts file that is read at startup and rewritten on every mutation.
	Primary Target = iota
	// Backup holds the pre-migration copy and serves as the recovery source.
	Backup
)

func (t Target) String() string {
	if t == Backup {
		return "backup"
	}

	return "primary"
}

// FileState describes what is on disk for a Target.
type FileState int

const (
	// FileMissing means the file does not exist.
	FileMissing FileState = iota
	// FileEmpty means the file exists but holds only whitespace.
	FileEmpty
	// FilePresent means the file has content.
	FilePresent
)

// Repository defines the flat-file backing store for accounts.
type Repository interface {
	// State reports whether the target file is missing, empty or present.
	State(ctx context.Context, target Target) (FileState, error)

	// Read parses the target file. An empty file yields no records and no error.
	// Returns an error wrapping domain.ErrStorage if the file cannot be read or parsed.
	Read(ctx context.Context, target Target) ([]domain.AccountRecord, error)

	// Write replaces the primary file with records.
	Write(ctx context.Context, records []domain.AccountRecord) error

	// MovePrimaryToBackup renames the primary file to the backup path.
	MovePrimaryToBackup(ctx context.Context) error

	// CopyBackupToPrimary restores the primary file verbatim from the backup.
	CopyBackupToPrimary(ctx context.Context) error

	// CopyPrimaryToBackup preserves the primary file verbatim at the backup path.
	CopyPrimaryToBackup(ctx context.Context) error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func(ctx context.Context) (Repository, error)
