// Package library writes crate trees into Serato's library SQLite database.
// It only ever touches two tables: `container` (one row per crate) and the
// singleton `serato` table whose `revision` column is the global monotonic
// change counter Serato uses to detect library updates.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".

	"github.com/cratesync/cratesync/internal/crate"
)

// containerTypeCrate marks user crates in the container table, as opposed
// to smart crates, iTunes playlists, and other container kinds this tool
// never touches.
const containerTypeCrate = 1

// rootContainerID is the parent_id of top-level crates.
const rootContainerID = 0

// ErrDatabaseMissing is returned by Open when the library database file does
// not exist. The writer expects Serato's own database; it never creates one
// implicitly.
var ErrDatabaseMissing = errors.New("library database not found")

// Queries, grouped by concern.
const (
	sqlGetRevision = `SELECT revision FROM serato LIMIT 1`
	sqlSetRevision = `UPDATE serato SET revision = ?`

	sqlNextTopOrder = `SELECT COALESCE(MAX(list_order), 0) + 1
		FROM container WHERE parent_id = ?`

	sqlFindCrate = `SELECT id FROM container
		WHERE parent_id = ? AND name = ? AND type = ?`

	sqlInsertCrate = `INSERT INTO container
		(revision, parent_id, name, type, list_order, time_added, expanded, portable_id)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)`

	sqlPurgeCrates = `DELETE FROM container WHERE type = ? AND parent_id = ?`

	sqlListCrateNames = `SELECT name FROM container
		WHERE parent_id = ? AND type = ? ORDER BY list_order`
)

// Store wraps the library database connection.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// now is injectable for deterministic time_added values in tests.
	now func() time.Time
}

// Open connects to an existing library database. It returns
// ErrDatabaseMissing when the file is absent: creating a library database
// behind Serato's back would leave the application with a bare, unusable
// schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseMissing, path)
		}

		return nil, fmt.Errorf("library: stat %s: %w", path, err)
	}

	return open(path, logger)
}

// Create bootstraps a fresh library database with the crate schema applied.
// Used for fixture libraries and tests.
func Create(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s, err := open(path, logger)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		s.Close()
		return nil, fmt.Errorf("library: set WAL mode: %w", err)
	}

	if err := runMigrations(ctx, s.db, logger); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// open dials the database with foreign keys enabled so container deletions
// cascade to descendants. The pragma goes in the DSN because it is
// per-connection and database/sql pools connections.
func open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("library: open sqlite: %w", err)
	}

	logger.Debug("library database opened", "path", path)

	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertPlan writes the crate trees under rootNodes into the container
// table inside a single transaction: either every new row commits together
// or, on any failure, nothing does and both counts are zero.
//
// Existing crates (matched exactly on parent_id, name, type) are left
// untouched and counted as skipped; their id is reused as the parent for
// descendants. New rows carry a monotonically incremented revision read
// once from the serato table and written back once at the end.
func (s *Store) UpsertPlan(ctx context.Context, rootNodes []*crate.Node, delimiter string) (created, skipped int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("library: begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn("library: rollback failed", "error", rbErr)
			}
		}
	}()

	w := &upsertWalk{tx: tx, store: s, delimiter: delimiter}

	if err = tx.QueryRowContext(ctx, sqlGetRevision).Scan(&w.revision); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, 0, fmt.Errorf("library: read revision: %w", err)
		}

		w.revision = 1
		err = nil
	}

	var nextOrder int
	if err = tx.QueryRowContext(ctx, sqlNextTopOrder, rootContainerID).Scan(&nextOrder); err != nil {
		return 0, 0, fmt.Errorf("library: next list order: %w", err)
	}

	for _, node := range rootNodes {
		if err = w.visit(ctx, node, rootContainerID, "", nextOrder); err != nil {
			return 0, 0, err
		}

		nextOrder++
	}

	if _, err = tx.ExecContext(ctx, sqlSetRevision, w.revision); err != nil {
		return 0, 0, fmt.Errorf("library: update revision: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("library: commit: %w", err)
	}

	s.logger.Info("library write complete", "created", w.created, "skipped", w.skipped)

	return w.created, w.skipped, nil
}

// upsertWalk carries the mutable traversal state through one UpsertPlan
// call, keeping the counters explicit instead of hiding them in closures.
type upsertWalk struct {
	tx        *sql.Tx
	store     *Store
	delimiter string
	revision  int64
	created   int
	skipped   int
}

// visit resolves one node to a container row, then recurses into children
// with the resolved id as their parent. Siblings before descent: the parent
// row is fully processed first.
func (w *upsertWalk) visit(ctx context.Context, node *crate.Node, parentID int64, parentPrefix string, listOrder int) error {
	displayName := node.Name
	if parentPrefix != "" {
		displayName = parentPrefix + w.delimiter + node.Name
	}

	crateID, err := w.resolve(ctx, node, parentID, displayName, listOrder)
	if err != nil {
		return err
	}

	for i, child := range node.Children {
		// Nested siblings get 1-based positional order.
		if err := w.visit(ctx, child, crateID, displayName, i+1); err != nil {
			return err
		}
	}

	return nil
}

// resolve finds an existing container row for the node or inserts a new one,
// returning its id.
func (w *upsertWalk) resolve(ctx context.Context, node *crate.Node, parentID int64, displayName string, listOrder int) (int64, error) {
	var existingID int64

	err := w.tx.QueryRowContext(ctx, sqlFindCrate, parentID, node.Name, containerTypeCrate).Scan(&existingID)
	if err == nil {
		w.store.logger.Info("crate already exists", "name", displayName)
		w.skipped++

		return existingID, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("library: lookup crate %q: %w", displayName, err)
	}

	w.revision++

	res, err := w.tx.ExecContext(ctx, sqlInsertCrate,
		w.revision, parentID, node.Name, containerTypeCrate,
		listOrder, w.store.now().Unix(), "crate://"+displayName)
	if err != nil {
		return 0, fmt.Errorf("library: insert crate %q: %w", displayName, err)
	}

	crateID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("library: last insert id for %q: %w", displayName, err)
	}

	w.store.logger.Info("created crate", "name", displayName)
	w.created++

	return crateID, nil
}

// PurgeUserCrates deletes all top-level user crates. Descendants go with
// them through the schema's ON DELETE CASCADE relationship; built-in
// containers (other types) are untouched. Bumps the library revision.
func (s *Store) PurgeUserCrates(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, sqlPurgeCrates, containerTypeCrate, rootContainerID)
	if err != nil {
		return 0, fmt.Errorf("library: purge crates: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("library: purge rows affected: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE serato SET revision = revision + 1"); err != nil {
		return 0, fmt.Errorf("library: bump revision: %w", err)
	}

	s.logger.Info("purged user crates", "deleted", deleted)

	return int(deleted), nil
}

// ListUserCrateNames returns the names of top-level user crates in list
// order, for plan display and collision warnings.
func (s *Store) ListUserCrateNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, sqlListCrateNames, rootContainerID, containerTypeCrate)
	if err != nil {
		return nil, fmt.Errorf("library: list crates: %w", err)
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("library: scan crate name: %w", err)
		}

		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("library: iterate crates: %w", err)
	}

	return names, nil
}
