package accountsvc

import (
	"context"
	"fmt"
	"slices"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	"github.com/mkrupp/homecase-accounts/internal/repo/accountfile"
)

// ErrMigrationEmpty is returned when the migrated accounts file reads back empty.
var ErrMigrationEmpty = fmt.Errorf("%w: migrated accounts file is empty", domain.ErrStorage)

// migrate rewrites a legacy accounts file in the current format.
//
// The source is the primary file, or the backup when the primary is missing
// or empty. A source with at least one record lacking password_hash is
// migrated: legacy passwords are hashed, stored hashes are kept. The original
// primary is renamed to the backup path first unless a backup already exists.
// A current-format backup standing in for a missing primary is copied back
// verbatim.
//
// On failure the primary is restored from the backup if it ended up missing
// or empty.
func (s *FileAccountService) migrate(ctx context.Context) (err error) {
	log := s.Log.With(logging.Group("migration", "step", "migrate"))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "migration failed", "error", err)
			s.restorePrimary(ctx)
		}
	}()

	primary, err := s.store.State(ctx, accountfile.Primary)
	if err != nil {
		return fmt.Errorf("stat primary: %w", err)
	}

	backup, err := s.store.State(ctx, accountfile.Backup)
	if err != nil {
		return fmt.Errorf("stat backup: %w", err)
	}

	source, sourceState := accountfile.Primary, primary
	if primary != accountfile.FilePresent && backup == accountfile.FilePresent {
		source, sourceState = accountfile.Backup, backup
	}

	log = log.With("source", source.String())

	if sourceState != accountfile.FilePresent {
		log.DebugContext(ctx, "nothing to migrate")

		return nil
	}

	records, err := s.store.Read(ctx, source)
	if err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}

	if !slices.ContainsFunc(records, domain.AccountRecord.IsLegacy) {
		if source == accountfile.Backup {
			if err := s.store.CopyBackupToPrimary(ctx); err != nil {
				return fmt.Errorf("restore primary: %w", err)
			}

			log.InfoContext(ctx, "primary restored from backup")
		}

		log.DebugContext(ctx, "accounts already in current format")

		return nil
	}

	log.InfoContext(ctx, "migration started", "records", len(records))

	migrated := make([]domain.AccountRecord, 0, len(records))

	for _, record := range records {
		if !record.IsLegacy() {
			migrated = append(migrated, record)

			continue
		}

		account, err := domain.AccountFromRecord(record, s.Now().UTC())
		if err != nil {
			log.WarnContext(ctx, "skipping account", logging.Group("account", "username", record.Username), "error", err)

			continue
		}

		migrated = append(migrated, account.Record())

		log.DebugContext(ctx, "account migrated", logging.Group("account",
			"username", account.Username,
			"role", account.Role.String(),
		))
	}

	if len(migrated) == 0 {
		log.WarnContext(ctx, "no accounts could be migrated")

		return nil
	}

	if source == accountfile.Primary && backup == accountfile.FileMissing {
		if err := s.store.MovePrimaryToBackup(ctx); err != nil {
			return fmt.Errorf("back up primary: %w", err)
		}
	}

	if err := s.store.Write(ctx, migrated); err != nil {
		return fmt.Errorf("write migrated: %w", err)
	}

	if state, err := s.store.State(ctx, accountfile.Primary); err != nil {
		return fmt.Errorf("verify migrated: %w", err)
	} else if state != accountfile.FilePresent {
		return ErrMigrationEmpty
	}

	log.InfoContext(ctx, "migration completed", "records", len(migrated))

	return nil
}

// restorePrimary copies the backup over a missing or empty primary.
func (s *FileAccountService) restorePrimary(ctx context.Context) {
	log := s.Log.With(logging.Group("migration", "step", "restore"))

	primary, err := s.store.State(ctx, accountfile.Primary)
	if err != nil {
		log.ErrorContext(ctx, "stat primary failed", "error", err)

		return
	}

	backup, err := s.store.State(ctx, accountfile.Backup)
	if err != nil {
		log.ErrorContext(ctx, "stat backup failed", "error", err)

		return
	}

	if primary == accountfile.FilePresent || backup != accountfile.FilePresent {
		return
	}

	if err := s.store.CopyBackupToPrimary(ctx); err != nil {
		log.ErrorContext(ctx, "restore from backup failed", "error", err)

		return
	}

	log.InfoContext(ctx, "primary restored from backup")
}

// load reads the primary file into memory.
//
// A missing file is created and seeded with the default admin. An empty file
// yields no accounts. Records that cannot be rebuilt and duplicate usernames
// are skipped. A file that cannot be parsed at all is preserved at the backup
// path, if that is free, and the service starts empty.
func (s *FileAccountService) load(ctx context.Context) (err error) {
	var skipped int

	log := s.Log.With(logging.Group("migration", "step", "load"))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "load accounts failed", "error", err, "accounts", len(s.accounts))
		} else {
			log.InfoContext(ctx, "accounts loaded", "accounts", len(s.accounts), "skipped", skipped)
		}
	}()

	state, err := s.store.State(ctx, accountfile.Primary)
	if err != nil {
		return fmt.Errorf("stat primary: %w", err)
	}

	switch state {
	case accountfile.FileMissing:
		log.InfoContext(ctx, "no accounts file, creating one")

		if err := s.store.Write(ctx, nil); err != nil {
			return fmt.Errorf("create accounts file: %w", err)
		}

		return s.seed(ctx)
	case accountfile.FileEmpty:
		log.InfoContext(ctx, "accounts file is empty")

		return nil
	case accountfile.FilePresent:
	}

	records, err := s.store.Read(ctx, accountfile.Primary)
	if err != nil {
		s.preservePrimary(ctx)

		return fmt.Errorf("read primary: %w", err)
	}

	accounts := make([]domain.Account, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for i, record := range records {
		recordLog := log.With("index", i, logging.Group("account", "username", record.Username))

		account, err := domain.AccountFromRecord(record, s.Now().UTC())
		if err != nil {
			skipped++

			recordLog.WarnContext(ctx, "skipping account record", "error", err)

			continue
		}

		if _, ok := seen[account.Username]; ok {
			skipped++

			recordLog.WarnContext(ctx, "skipping duplicate account record")

			continue
		}

		seen[account.Username] = struct{}{}
		accounts = append(accounts, account)
	}

	s.accounts = accounts

	return nil
}

func (s *FileAccountService) seed(ctx context.Context) error {
	admin := s.Config.DefaultAdmin

	account, err := domain.NewAccount(admin.Username, admin.Password, admin.Email, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("new default admin: %w", err)
	}

	if err := s.Register(ctx, account); err != nil {
		return fmt.Errorf("register default admin: %w", err)
	}

	s.Log.WarnContext(ctx, "default admin created, change its password", "username", admin.Username)

	return nil
}

// preservePrimary keeps an unreadable primary at the backup path so the next
// save does not destroy it.
func (s *FileAccountService) preservePrimary(ctx context.Context) {
	backup, err := s.store.State(ctx, accountfile.Backup)
	if err != nil {
		s.Log.ErrorContext(ctx, "stat backup failed", "error", err)

		return
	} else if backup != accountfile.FileMissing {
		s.Log.WarnContext(ctx, "unreadable accounts file not preserved, backup exists")

		return
	}

	if err := s.store.CopyPrimaryToBackup(ctx); err != nil {
		s.Log.ErrorContext(ctx, "preserve unreadable accounts file failed", "error", err)

		return
	}

	s.Log.WarnContext(ctx, "unreadable accounts file preserved as backup")
}
