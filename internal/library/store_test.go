package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cratesync/cratesync/internal/crate"
)

// newTestStore creates a fresh library database in a temp dir.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Create(context.Background(), filepath.Join(t.TempDir(), "root.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	return s
}

// testTree builds House > {Deep, Tech} with one loose node alongside.
func testTree() []*crate.Node {
	return []*crate.Node{
		{
			Name: "House",
			Children: []*crate.Node{
				{Name: "Deep", ParentDisplayName: "House", Tracks: []string{"/m/a.mp3"}},
				{Name: "Tech", ParentDisplayName: "House"},
			},
		},
		{Name: "Disco", Tracks: []string{"/m/b.mp3"}},
	}
}

func TestOpenMissingDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "root.sqlite"), nil)
	require.ErrorIs(t, err, ErrDatabaseMissing)
}

func TestUpsertPlanCreatesHierarchy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, skipped, err := s.UpsertPlan(ctx, testTree(), "%%")
	require.NoError(t, err)
	assert.Equal(t, 4, created)
	assert.Equal(t, 0, skipped)

	names, err := s.ListUserCrateNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"House", "Disco"}, names, "top-level crates in list order")

	// Nested rows link to their parent and carry hierarchical portable ids.
	var parentID, order int64
	var portableID string
	row := s.db.QueryRow(
		`SELECT parent_id, list_order, portable_id FROM container WHERE name = 'Tech'`)
	require.NoError(t, row.Scan(&parentID, &order, &portableID))

	var houseID int64
	require.NoError(t, s.db.QueryRow(`SELECT id FROM container WHERE name = 'House'`).Scan(&houseID))
	assert.Equal(t, houseID, parentID)
	assert.EqualValues(t, 2, order, "second child gets positional order 2")
	assert.Equal(t, "crate://House%%Tech", portableID)
}

func TestUpsertPlanIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, _, err := s.UpsertPlan(ctx, testTree(), "%%")
	require.NoError(t, err)
	require.Equal(t, 4, created)

	var rowsBefore int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM container WHERE type = 1`).Scan(&rowsBefore))

	created, skipped, err := s.UpsertPlan(ctx, testTree(), "%%")
	require.NoError(t, err)
	assert.Equal(t, 0, created, "second run creates nothing")
	assert.Equal(t, 4, skipped, "every crate matched an existing row")

	var rowsAfter int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM container WHERE type = 1`).Scan(&rowsAfter))
	assert.Equal(t, rowsBefore, rowsAfter)
}

func TestUpsertPlanBumpsRevisionPerInsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var before int64
	require.NoError(t, s.db.QueryRow(sqlGetRevision).Scan(&before))

	_, _, err := s.UpsertPlan(ctx, testTree(), "%%")
	require.NoError(t, err)

	var after int64
	require.NoError(t, s.db.QueryRow(sqlGetRevision).Scan(&after))
	assert.Equal(t, before+4, after, "one revision increment per inserted row")
}

func TestUpsertPlanAppendsAfterExistingTopLevelOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.UpsertPlan(ctx, []*crate.Node{{Name: "First", Tracks: []string{"/m/x.mp3"}}}, "%%")
	require.NoError(t, err)

	_, _, err = s.UpsertPlan(ctx, []*crate.Node{{Name: "Second", Tracks: []string{"/m/y.mp3"}}}, "%%")
	require.NoError(t, err)

	var firstOrder, secondOrder int
	require.NoError(t, s.db.QueryRow(`SELECT list_order FROM container WHERE name = 'First'`).Scan(&firstOrder))
	require.NoError(t, s.db.QueryRow(`SELECT list_order FROM container WHERE name = 'Second'`).Scan(&secondOrder))
	assert.Greater(t, secondOrder, firstOrder)
}

func TestPurgeUserCratesCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.UpsertPlan(ctx, testTree(), "%%")
	require.NoError(t, err)

	deleted, err := s.PurgeUserCrates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted, "delete counts top-level rows only")

	var remaining int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM container WHERE type = 1`).Scan(&remaining))
	assert.Zero(t, remaining, "cascade removed nested crates too")

	// The anchor root container survives a purge.
	var rootCount int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM container WHERE id = 0`).Scan(&rootCount))
	assert.Equal(t, 1, rootCount)
}
