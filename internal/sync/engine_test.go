package sync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cratesync/cratesync/internal/library"
)

func newTestEngine() *Engine {
	return NewEngine(newTestSafety(), nil)
}

func TestExecuteFileBackendEndToEnd(t *testing.T) {
	musicRoot := makeMusicRoot(t)
	seratoRoot := t.TempDir()

	plan := CreatePlan(musicRoot, seratoRoot, PlanOptions{Extensions: testExts}, nil)

	res, err := newTestEngine().Execute(context.Background(), plan, Options{
		Delimiter: "%%",
		PathMode:  "absolute",
		Backend:   BackendFile,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Zero(t, res.Skipped)
	assert.Empty(t, res.BackupPath, "nothing existed to back up")

	data, err := os.ReadFile(filepath.Join(SubcratesDir(seratoRoot), "M%%A.crate"))
	require.NoError(t, err)
	assert.Equal(t, "vrsn", string(data[:4]))
}

func TestExecuteSecondRunSkipsEverything(t *testing.T) {
	musicRoot := makeMusicRoot(t)
	seratoRoot := t.TempDir()
	plan := CreatePlan(musicRoot, seratoRoot, PlanOptions{Extensions: testExts}, nil)

	engine := newTestEngine()
	opts := Options{Delimiter: "%%", PathMode: "absolute", Backend: BackendFile}

	_, err := engine.Execute(context.Background(), plan, opts)
	require.NoError(t, err)

	res, err := engine.Execute(context.Background(), plan, opts)
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 2, res.Skipped)
}

func TestExecuteCleanBacksUpThenRemovesOldCrates(t *testing.T) {
	musicRoot := makeMusicRoot(t)
	seratoRoot := t.TempDir()

	// Pre-existing destination state with one stale crate.
	subcrates := SubcratesDir(seratoRoot)
	require.NoError(t, os.MkdirAll(subcrates, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(subcrates, "Stale.crate"), []byte("old"), 0o644))

	plan := CreatePlan(musicRoot, seratoRoot, PlanOptions{Extensions: testExts}, nil)

	res, err := newTestEngine().Execute(context.Background(), plan, Options{
		Clean:     true,
		Delimiter: "%%",
		PathMode:  "absolute",
		Backend:   BackendFile,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	require.NotEmpty(t, res.BackupPath)

	// Exactly one timestamped backup folder with a faithful pre-clean copy.
	backups := 0
	entries, err := os.ReadDir(seratoRoot)
	require.NoError(t, err)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "Subcrates.BACKUP.") {
			backups++
		}
	}
	assert.Equal(t, 1, backups)

	data, err := os.ReadFile(filepath.Join(res.BackupPath, "Stale.crate"))
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), data)

	// The stale crate is gone; the new tree is in place.
	_, err = os.Stat(filepath.Join(subcrates, "Stale.crate"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(subcrates, "M.crate"))
	assert.NoError(t, err)
}

func TestExecuteClearIndexRemovesDatabaseV2(t *testing.T) {
	musicRoot := makeMusicRoot(t)
	seratoRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(seratoRoot, "database V2"), []byte("index"), 0o644))

	plan := CreatePlan(musicRoot, seratoRoot, PlanOptions{Extensions: testExts}, nil)

	_, err := newTestEngine().Execute(context.Background(), plan, Options{
		ClearIndex: true,
		Delimiter:  "%%",
		PathMode:   "absolute",
		Backend:    BackendFile,
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(seratoRoot, "database V2"))
	assert.True(t, os.IsNotExist(err), "index file is deleted after the write step")

	data, err := os.ReadFile(filepath.Join(seratoRoot, "database_V2.BACKUP.20240301_123045"))
	require.NoError(t, err)
	assert.Equal(t, []byte("index"), data)
}

func TestExecuteDatabaseBackendUpserts(t *testing.T) {
	musicRoot := makeMusicRoot(t)
	libraryDir := t.TempDir()

	// Bootstrap a fresh library store the way `library init` would.
	store, err := library.Create(context.Background(), filepath.Join(libraryDir, "root.sqlite"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	plan := CreatePlan(musicRoot, t.TempDir(), PlanOptions{Extensions: testExts}, nil)

	engine := newTestEngine()
	opts := Options{Delimiter: "%%", Backend: BackendDatabase, LibraryDir: libraryDir}

	res, err := engine.Execute(context.Background(), plan, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.NotEmpty(t, res.BackupPath, "library files are snapshotted before writes")

	// Idempotent re-sync: all rows matched, nothing new.
	res, err = engine.Execute(context.Background(), plan, opts)
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 2, res.Skipped)
}

func TestExecuteDatabaseBackendMissingStore(t *testing.T) {
	musicRoot := makeMusicRoot(t)
	plan := CreatePlan(musicRoot, t.TempDir(), PlanOptions{Extensions: testExts}, nil)

	res, err := newTestEngine().Execute(context.Background(), plan, Options{
		Backend:    BackendDatabase,
		LibraryDir: t.TempDir(),
	})
	require.ErrorIs(t, err, library.ErrDatabaseMissing)
	assert.Zero(t, res.Created)
	assert.Zero(t, res.Skipped)
}

func TestParseBackend(t *testing.T) {
	for _, valid := range []string{"file", "database"} {
		b, err := ParseBackend(valid)
		require.NoError(t, err)
		assert.Equal(t, Backend(valid), b)
	}

	_, err := ParseBackend("cloud")
	assert.Error(t, err)
}
