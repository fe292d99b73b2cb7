package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testExts = map[string]bool{".mp3": true, ".flac": true}

// makeMusicRoot builds M/A with two tracks and an empty M/B.
func makeMusicRoot(t *testing.T) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "M")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "A"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "B"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "A", "one.mp3"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "A", "two.mp3"), []byte("x"), 0o644))

	return root
}

func TestCreatePlanCountsOnlyIncludedNodes(t *testing.T) {
	musicRoot := makeMusicRoot(t)
	seratoRoot := t.TempDir()

	plan := CreatePlan(musicRoot, seratoRoot, PlanOptions{Extensions: testExts}, nil)

	require.Len(t, plan.Crates, 1)
	root := plan.Crates[0]
	assert.Equal(t, "M", root.Name)
	require.Len(t, root.Children, 1, "empty folder B is absent from the plan")
	assert.Equal(t, "A", root.Children[0].Name)
	assert.Len(t, root.Children[0].Tracks, 2)

	assert.Equal(t, 2, plan.TotalCrates)
	assert.Equal(t, 2, plan.TotalTracks)
}

func TestCreatePlanEmptyRoot(t *testing.T) {
	plan := CreatePlan(t.TempDir(), t.TempDir(), PlanOptions{Extensions: testExts}, nil)

	assert.Empty(t, plan.Crates)
	assert.Zero(t, plan.TotalCrates)
	assert.Zero(t, plan.TotalTracks)
}

func TestCreatePlanReportsExistingCrates(t *testing.T) {
	musicRoot := makeMusicRoot(t)
	seratoRoot := t.TempDir()

	subcrates := SubcratesDir(seratoRoot)
	require.NoError(t, os.MkdirAll(subcrates, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(subcrates, "Old.crate"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(subcrates, "notes.txt"), []byte("x"), 0o644))

	plan := CreatePlan(musicRoot, seratoRoot, PlanOptions{Extensions: testExts}, nil)

	assert.Equal(t, []string{"Old"}, plan.ExistingCrates)
}

func TestCreatePlanMissingSubcratesFolder(t *testing.T) {
	plan := CreatePlan(makeMusicRoot(t), filepath.Join(t.TempDir(), "none"), PlanOptions{Extensions: testExts}, nil)

	assert.Empty(t, plan.ExistingCrates)
}
