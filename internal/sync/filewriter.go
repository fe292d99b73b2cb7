package sync

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cratesync/cratesync/internal/crate"
)

// FileWriter emits one binary .crate file per plan node into the Subcrates
// folder. Per-entry failures are isolated: a crate that fails to encode or
// write is logged and excluded from both counts, and its siblings still
// proceed.
type FileWriter struct {
	// Dir is the Subcrates folder. Must exist before WriteAll runs.
	Dir string

	// Overwrite replaces existing .crate files; otherwise files with the
	// same sanitized name are skipped.
	Overwrite bool

	// Delimiter joins ancestor names into the hierarchical filename.
	Delimiter string

	// Resolver maps absolute track paths to their stored form.
	Resolver crate.Resolver

	// Encoders is the ordered strategy list: the first encoder that
	// succeeds wins, later ones are fallbacks for that single entry.
	Encoders []crate.Encoder

	// Progress, when set, is called once per crate processed.
	Progress func(name string)

	Logger *slog.Logger
}

// NewFileWriter builds a FileWriter with the standard encoder order:
// validating chunk encoder first, raw encoder as the one fallback.
func NewFileWriter(dir, delimiter string, overwrite bool, resolver crate.Resolver, logger *slog.Logger) *FileWriter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &FileWriter{
		Dir:       dir,
		Overwrite: overwrite,
		Delimiter: delimiter,
		Resolver:  resolver,
		Encoders:  []crate.Encoder{crate.ChunkEncoder{}, crate.RawEncoder{}},
		Logger:    logger,
	}
}

// WriteAll writes every node of the plan depth-first, parents before
// children, returning created and skipped counts.
func (fw *FileWriter) WriteAll(nodes []*crate.Node) (created, skipped int) {
	for _, node := range nodes {
		c, s := fw.writeNode(node, "")
		created += c
		skipped += s
	}

	return created, skipped
}

// writeNode writes one crate file and recurses into children. parentPrefix
// is the sanitized hierarchical filename of the parent, threaded down so
// grandchildren compose their names from it.
func (fw *FileWriter) writeNode(node *crate.Node, parentPrefix string) (created, skipped int) {
	name := node.Name
	if parentPrefix != "" {
		name = parentPrefix + fw.Delimiter + node.Name
	}

	name = crate.Sanitize(name, crate.MaxNameBytes)
	path := filepath.Join(fw.Dir, name+crateFileExt)

	if fw.Progress != nil {
		fw.Progress(name)
	}

	switch fw.writeFile(node, name, path) {
	case writeCreated:
		created++
	case writeSkipped:
		skipped++
	case writeFailed:
		// Logged in writeFile; excluded from both counts.
	}

	for _, child := range node.Children {
		c, s := fw.writeNode(child, name)
		created += c
		skipped += s
	}

	return created, skipped
}

// writeFile outcomes.
type writeOutcome int

const (
	writeCreated writeOutcome = iota
	writeSkipped
	writeFailed
)

// writeFile encodes and writes a single crate file, honoring the overwrite
// flag and the encoder fallback order.
func (fw *FileWriter) writeFile(node *crate.Node, name, path string) writeOutcome {
	if !fw.Overwrite {
		if _, err := os.Stat(path); err == nil {
			fw.Logger.Warn("skipping existing crate", "name", name)
			return writeSkipped
		} else if !errors.Is(err, os.ErrNotExist) {
			fw.Logger.Error("cannot stat crate file", "path", path, "error", err)
			return writeFailed
		}
	}

	data, err := fw.encode(node, name)
	if err != nil {
		fw.Logger.Error("all encoders failed for crate", "name", name, "error", err)
		return writeFailed
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		fw.Logger.Error("failed to write crate file", "path", path, "error", err)
		return writeFailed
	}

	fw.Logger.Info("created crate", "name", name, "tracks", len(node.Tracks))

	return writeCreated
}

// encode tries each encoder in order, returning the first success. A
// failed primary strategy is logged before the fallback is attempted.
func (fw *FileWriter) encode(node *crate.Node, name string) ([]byte, error) {
	var lastErr error

	for i, enc := range fw.Encoders {
		data, err := enc.Encode(node, fw.Resolver.Resolve)
		if err == nil {
			if i > 0 {
				fw.Logger.Info("created crate via fallback encoder", "name", name)
			}

			return data, nil
		}

		fw.Logger.Warn("encoder failed", "name", name, "strategy", i, "error", err)
		lastErr = err
	}

	return nil, lastErr
}
