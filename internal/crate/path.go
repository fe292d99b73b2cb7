package crate

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathMode selects how track locations are stored inside a crate.
type PathMode string

// Supported path modes.
const (
	// PathAbsolute stores the canonical path without its leading slash.
	// Serato keeps "absolute" paths with the leading separator omitted
	// (e.g. "Users/dj/track.mp3"); storing the slash makes Serato treat
	// the track as a new, unmatched file instead of reconciling it with
	// the existing library entry.
	PathAbsolute PathMode = "absolute"

	// PathRelativeToRoot stores paths relative to the music root.
	PathRelativeToRoot PathMode = "relative-to-music-root"

	// PathRelativeToVolume strips a removable-volume mount prefix
	// (/Volumes/<name>/ on macOS).
	PathRelativeToVolume PathMode = "relative-to-volume-root"
)

// volumeMarker is the mount-point directory identifying removable volumes.
const volumeMarker = "Volumes"

// ParsePathMode validates a path mode string.
func ParsePathMode(s string) (PathMode, error) {
	switch PathMode(s) {
	case PathAbsolute, PathRelativeToRoot, PathRelativeToVolume:
		return PathMode(s), nil
	default:
		return "", fmt.Errorf("crate: unknown path mode %q", s)
	}
}

// Resolver converts absolute track locations into the storage-format path
// representation for one sync.
type Resolver struct {
	MusicRoot string
	Mode      PathMode
}

// Resolve maps an absolute track path to its stored form. No failure
// escapes: any resolution problem degrades to the absolute-without-slash
// fallback.
func (r Resolver) Resolve(track string) string {
	switch r.Mode {
	case PathRelativeToRoot:
		rel, err := filepath.Rel(r.MusicRoot, track)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, "../") {
			return rel
		}

		return stripLeadingSlash(track)
	case PathRelativeToVolume:
		return resolveVolumeRelative(track)
	default:
		return stripLeadingSlash(track)
	}
}

// resolveVolumeRelative drops a leading /Volumes/<name>/ prefix. Paths not
// under a removable volume (network shares, plain Linux mounts) fall back
// to the absolute form.
func resolveVolumeRelative(track string) string {
	parts := strings.Split(filepath.Clean(track), string(filepath.Separator))
	if len(parts) > 3 && parts[0] == "" && parts[1] == volumeMarker {
		return strings.Join(parts[3:], string(filepath.Separator))
	}

	return stripLeadingSlash(track)
}

// stripLeadingSlash canonicalizes the path and removes exactly one leading
// separator, matching Serato's internal convention for absolute paths.
func stripLeadingSlash(track string) string {
	return strings.TrimPrefix(filepath.Clean(track), string(filepath.Separator))
}
