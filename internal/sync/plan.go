// Package sync plans and executes crate synchronization: folder scan to
// plan, then backup-gated writes through either the binary .crate file
// backend or the library database backend.
package sync

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cratesync/cratesync/internal/crate"
)

// SubcratesDirName is the folder inside the Serato root holding .crate files.
const SubcratesDirName = "Subcrates"

// crateFileExt is the binary crate file suffix.
const crateFileExt = ".crate"

// Plan is the immutable, request-scoped result of scanning the music root.
// It is built once per invocation and never persisted; all persistence goes
// through the writer backends.
type Plan struct {
	MusicRoot  string
	SeratoRoot string

	// Crates holds the top-level crate nodes (in practice one: the music
	// root itself, absent only when it yields nothing).
	Crates []*crate.Node

	// Totals from a full tree traversal.
	TotalCrates int
	TotalTracks int

	// ExistingCrates names crates already present at the destination.
	// Display and collision warnings only; writing is gated by the
	// explicit overwrite flag, not by this set.
	ExistingCrates []string
}

// PlanOptions configures plan creation.
type PlanOptions struct {
	Extensions   map[string]bool
	IncludeEmpty bool
	Delimiter    string
}

// SubcratesDir returns the Subcrates folder within a Serato root.
func SubcratesDir(seratoRoot string) string {
	return filepath.Join(seratoRoot, SubcratesDirName)
}

// CreatePlan scans musicRoot and assembles the sync plan. The root folder
// itself becomes the single top-level crate; subfolders become subcrates.
func CreatePlan(musicRoot, seratoRoot string, opts PlanOptions, logger *slog.Logger) *Plan {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	builder := crate.NewBuilder(opts.Extensions, opts.IncludeEmpty, opts.Delimiter, logger)

	plan := &Plan{
		MusicRoot:      musicRoot,
		SeratoRoot:     seratoRoot,
		ExistingCrates: existingCrateNames(seratoRoot),
	}

	if root := builder.Build(musicRoot); root != nil {
		plan.Crates = append(plan.Crates, root)
	}

	for _, node := range plan.Crates {
		crates, tracks := node.Count()
		plan.TotalCrates += crates
		plan.TotalTracks += tracks
	}

	return plan
}

// existingCrateNames lists the stems of .crate files already at the
// destination. A missing Subcrates folder means no existing crates.
func existingCrateNames(seratoRoot string) []string {
	entries, err := os.ReadDir(SubcratesDir(seratoRoot))
	if err != nil {
		return nil
	}

	var names []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), crateFileExt) {
			continue
		}

		names = append(names, strings.TrimSuffix(entry.Name(), crateFileExt))
	}

	return names
}
