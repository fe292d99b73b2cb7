package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cratesync/cratesync/internal/crate"
	"github.com/cratesync/cratesync/internal/library"
)

// Backend selects the destination storage mode for a sync.
type Backend string

// Supported backends.
const (
	// BackendFile writes binary .crate files under <serato root>/Subcrates.
	BackendFile Backend = "file"

	// BackendDatabase upserts container rows into the library SQLite store.
	BackendDatabase Backend = "database"
)

// libraryDBFileName is the library store the database backend writes to.
const libraryDBFileName = "root.sqlite"

// ErrBackupFailed aborts a sync: the engine never proceeds to destructive
// operations when the safety copy could not be made.
var ErrBackupFailed = errors.New("backup failed")

// ParseBackend validates a backend string.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendFile, BackendDatabase:
		return Backend(s), nil
	default:
		return "", fmt.Errorf("sync: unknown backend %q", s)
	}
}

// Options configures one sync execution.
type Options struct {
	// Overwrite replaces entries that already exist at the destination.
	Overwrite bool

	// Clean deletes all existing crates (files or rows) after the backup
	// step, then forces overwrite semantics for the write step.
	Clean bool

	// ClearIndex deletes Serato's "database V2" index file after a file
	// backend write so Serato rebuilds it from the crates on next launch.
	ClearIndex bool

	// Delimiter joins ancestor names for hierarchical crate names.
	Delimiter string

	// PathMode selects the stored track path representation.
	PathMode crate.PathMode

	// Backend selects file or database writes.
	Backend Backend

	// LibraryDir is the Serato cache Library folder holding the SQLite
	// store; used by the database backend.
	LibraryDir string

	// Progress, when set, is invoked once per crate during the write step.
	Progress func(name string)
}

// Result reports what one sync execution did.
type Result struct {
	Created    int
	Skipped    int
	Deleted    int
	BackupPath string
}

// Engine sequences one sync: backup, optional clean, write, report. All
// steps run sequentially on the calling goroutine; the destination is
// treated as a single-writer resource.
type Engine struct {
	safety *Safety
	logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(safety *Safety, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if safety == nil {
		safety = NewSafety(logger)
	}

	return &Engine{safety: safety, logger: logger}
}

// Execute runs the sync plan against the selected backend. The backup step
// always runs first, even when the write step ends up creating nothing, and
// its failure aborts the whole operation (wrapped in ErrBackupFailed).
func (e *Engine) Execute(ctx context.Context, plan *Plan, opts Options) (Result, error) {
	if opts.Backend == BackendDatabase {
		return e.executeDatabase(ctx, plan, opts)
	}

	return e.executeFiles(plan, opts)
}

// executeFiles runs the .crate file backend.
func (e *Engine) executeFiles(plan *Plan, opts Options) (Result, error) {
	var res Result

	backupPath, err := e.safety.BackupSubcrates(plan.SeratoRoot)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}

	res.BackupPath = backupPath

	subcrates := SubcratesDir(plan.SeratoRoot)
	if err := os.MkdirAll(subcrates, 0o755); err != nil {
		return res, fmt.Errorf("sync: creating Subcrates folder: %w", err)
	}

	if opts.Clean {
		res.Deleted = e.safety.CleanCrateFiles(plan.SeratoRoot)
		e.logger.Info("cleaned existing crates", "deleted", res.Deleted)
	}

	writer := NewFileWriter(
		subcrates,
		opts.Delimiter,
		opts.Overwrite || opts.Clean, // cleaning implies overwrite
		crate.Resolver{MusicRoot: plan.MusicRoot, Mode: opts.PathMode},
		e.logger,
	)
	writer.Progress = opts.Progress

	res.Created, res.Skipped = writer.WriteAll(plan.Crates)

	if opts.ClearIndex {
		e.safety.ClearDatabaseFile(plan.SeratoRoot)
	}

	e.logger.Info("sync complete", "created", res.Created, "skipped", res.Skipped)

	return res, nil
}

// executeDatabase runs the library SQLite backend.
func (e *Engine) executeDatabase(ctx context.Context, plan *Plan, opts Options) (Result, error) {
	var res Result

	backupPath, err := e.safety.BackupLibraryDatabases(opts.LibraryDir)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}

	res.BackupPath = backupPath

	store, err := library.Open(filepath.Join(opts.LibraryDir, libraryDBFileName), e.logger)
	if err != nil {
		return res, fmt.Errorf("sync: opening library database: %w", err)
	}
	defer store.Close()

	if opts.Clean {
		deleted, err := store.PurgeUserCrates(ctx)
		if err != nil {
			return res, fmt.Errorf("sync: cleaning library crates: %w", err)
		}

		res.Deleted = deleted
		e.logger.Info("cleaned existing crates", "deleted", deleted)
	}

	res.Created, res.Skipped, err = store.UpsertPlan(ctx, plan.Crates, opts.Delimiter)
	if err != nil {
		return res, fmt.Errorf("sync: writing library crates: %w", err)
	}

	e.logger.Info("sync complete", "created", res.Created, "skipped", res.Skipped)

	return res, nil
}
