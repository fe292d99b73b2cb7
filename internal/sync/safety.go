package sync

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// backupTimestampLayout names backup folders to the second.
const backupTimestampLayout = "20060102_150405"

// databaseV2FileName is Serato's cached index file inside the Serato root.
// Deleting it forces Serato to rebuild from the .crate files on next launch.
const databaseV2FileName = "database V2"

// librarySQLiteFiles are the library store files moved or copied together
// during backup: each main database plus its WAL and shared-memory side
// files.
var librarySQLiteFiles = []string{
	"master.sqlite", "master.sqlite-shm", "master.sqlite-wal",
	"root.sqlite", "root.sqlite-shm", "root.sqlite-wal",
}

// Safety snapshots existing destination state before destructive operations
// and purges stale entries. Callers are responsible for invoking a backup
// before any clear/clean method; Safety does not enforce that ordering.
type Safety struct {
	logger *slog.Logger

	// now is injectable so tests get deterministic backup names.
	now func() time.Time
}

// NewSafety creates a Safety manager.
func NewSafety(logger *slog.Logger) *Safety {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Safety{logger: logger, now: time.Now}
}

// BackupSubcrates copies the Subcrates folder to a timestamped sibling
// (Subcrates.BACKUP.<ts>). A missing source folder means there is nothing
// to protect: no backup is made and no error returned.
func (s *Safety) BackupSubcrates(seratoRoot string) (string, error) {
	src := SubcratesDir(seratoRoot)

	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		s.logger.Info("no existing Subcrates folder to backup")
		return "", nil
	}

	dst := filepath.Join(seratoRoot, fmt.Sprintf("%s.BACKUP.%s", SubcratesDirName, s.timestamp()))

	s.logger.Info("creating backup", "path", dst)

	if err := copyTree(src, dst); err != nil {
		return "", fmt.Errorf("sync: backing up Subcrates: %w", err)
	}

	return dst, nil
}

// CleanCrateFiles deletes every .crate file in the Subcrates folder,
// returning the number removed. Per-file failures are logged, not raised.
// Precondition: BackupSubcrates has already run.
func (s *Safety) CleanCrateFiles(seratoRoot string) int {
	dir := SubcratesDir(seratoRoot)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	deleted := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), crateFileExt) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("could not delete crate file", "path", path, "error", err)
			continue
		}

		s.logger.Info("deleted old crate", "name", entry.Name())
		deleted++
	}

	return deleted
}

// ClearDatabaseFile backs up then deletes Serato's "database V2" index file,
// forcing a rebuild from .crate files on next launch. Returns whether the
// file was cleared; failures are logged, not raised.
func (s *Safety) ClearDatabaseFile(seratoRoot string) bool {
	dbFile := filepath.Join(seratoRoot, databaseV2FileName)

	if _, err := os.Stat(dbFile); errors.Is(err, os.ErrNotExist) {
		s.logger.Info("no database V2 file to clear")
		return false
	}

	backup := filepath.Join(seratoRoot, "database_V2.BACKUP."+s.timestamp())

	if err := copyFile(dbFile, backup); err != nil {
		s.logger.Warn("could not back up database V2", "error", err)
		return false
	}

	s.logger.Info("backed up database V2", "path", backup)

	if err := os.Remove(dbFile); err != nil {
		s.logger.Warn("could not delete database V2", "error", err)
		return false
	}

	s.logger.Info("deleted database V2, Serato will rebuild on next launch")

	return true
}

// BackupLibraryDatabases copies the library SQLite files into one
// timestamped backup folder without touching the originals. Used before
// database-backend writes. Returns the backup path, or "" when no library
// files exist.
func (s *Safety) BackupLibraryDatabases(libraryDir string) (string, error) {
	backupDir := filepath.Join(libraryDir, "backup_"+s.timestamp())
	copied := 0

	for _, name := range librarySQLiteFiles {
		src := filepath.Join(libraryDir, name)
		if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			return "", fmt.Errorf("sync: creating library backup folder: %w", err)
		}

		if err := copyFile(src, filepath.Join(backupDir, name)); err != nil {
			return "", fmt.Errorf("sync: backing up %s: %w", name, err)
		}

		copied++
	}

	if copied == 0 {
		return "", nil
	}

	s.logger.Info("backed up library databases", "path", backupDir, "files", copied)

	return backupDir, nil
}

// ClearLibraryDatabases moves the library SQLite files (main stores plus
// WAL/shared-memory side files) into one timestamped backup folder, forcing
// Serato to rebuild its library. Each file's outcome is independent:
// failures are logged and the remaining files are still processed. Returns
// the number of files cleared.
func (s *Safety) ClearLibraryDatabases(libraryDir string) int {
	if _, err := os.Stat(libraryDir); errors.Is(err, os.ErrNotExist) {
		s.logger.Info("no Serato Library folder found", "path", libraryDir)
		return 0
	}

	backupDir := filepath.Join(libraryDir, "backup_"+s.timestamp())
	cleared := 0

	for _, name := range librarySQLiteFiles {
		src := filepath.Join(libraryDir, name)
		if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			s.logger.Warn("could not create library backup folder", "error", err)
			return cleared
		}

		if err := os.Rename(src, filepath.Join(backupDir, name)); err != nil {
			s.logger.Warn("could not clear library file", "file", name, "error", err)
			continue
		}

		s.logger.Info("backed up and removed library file", "file", name)
		cleared++
	}

	if cleared > 0 {
		s.logger.Info("cleared library databases", "files", cleared, "backup", backupDir)
	}

	return cleared
}

// timestamp returns the backup folder suffix, second precision.
func (s *Safety) timestamp() string {
	return s.now().Format(backupTimestampLayout)
}

// copyTree recursively copies a directory.
func copyTree(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}

			continue
		}

		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}

	return nil
}

// copyFile copies a single regular file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
