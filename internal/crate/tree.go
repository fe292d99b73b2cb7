package crate

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Builder constructs crate trees from folder hierarchies.
type Builder struct {
	// Extensions is the set of recognized audio file suffixes, lowercase
	// and dot-prefixed (".mp3"). Matching is case-insensitive.
	Extensions map[string]bool

	// IncludeEmpty keeps folders with no tracks and no qualifying
	// subfolders in the tree.
	IncludeEmpty bool

	// Delimiter joins ancestor names in ParentDisplayName chains.
	// Defaults to DefaultDelimiter when empty.
	Delimiter string

	logger *slog.Logger
}

// NewBuilder creates a Builder with the given extension set and options.
func NewBuilder(extensions map[string]bool, includeEmpty bool, delimiter string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	return &Builder{
		Extensions:   extensions,
		IncludeEmpty: includeEmpty,
		Delimiter:    delimiter,
		logger:       logger,
	}
}

// Build recursively constructs the crate tree rooted at folder. It returns
// nil when the folder yields no tracks, no children, and IncludeEmpty is
// unset. Permission errors enumerating a folder are logged and treated as
// "no further entries"; traversal continues with what was collected.
func (b *Builder) Build(folder string) *Node {
	return b.build(folder, "")
}

// build walks one folder. parentName is the delimiter-joined ancestor chain
// threaded down explicitly so no hidden mutable state is shared between
// sibling subtrees.
func (b *Builder) build(folder, parentName string) *Node {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return nil
	}

	name := filepath.Base(folder)

	// os.ReadDir returns the entries read before a failure; keep them so
	// traversal continues with what was collected.
	entries, err := os.ReadDir(folder)
	if err != nil {
		b.logger.Warn("crate: cannot read folder", "path", folder, "error", err)
	}

	tracks := b.scanTracks(folder, entries)

	childPrefix := name
	if parentName != "" {
		childPrefix = parentName + b.Delimiter + name
	}

	var children []*Node

	// os.ReadDir returns entries sorted by name, so traversal order is
	// deterministic without extra sorting.
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		child := b.build(filepath.Join(folder, entry.Name()), childPrefix)
		if child != nil {
			children = append(children, child)
		}
	}

	if len(tracks) == 0 && len(children) == 0 && !b.IncludeEmpty {
		return nil
	}

	return &Node{
		Name:              name,
		SourcePath:        folder,
		ParentDisplayName: parentName,
		Tracks:            tracks,
		Children:          children,
	}
}

// scanTracks collects matching audio files directly inside folder,
// non-recursively, in name order.
func (b *Builder) scanTracks(folder string, entries []os.DirEntry) []string {
	var tracks []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if b.IsAudioFile(entry.Name()) {
			tracks = append(tracks, filepath.Join(folder, entry.Name()))
		}
	}

	return tracks
}

// IsAudioFile reports whether name carries one of the recognized audio
// extensions (case-insensitive suffix match).
func (b *Builder) IsAudioFile(name string) bool {
	return b.Extensions[strings.ToLower(filepath.Ext(name))]
}
