// Package config loads and resolves cratesync configuration from the
// four-layer override chain: defaults, TOML config file, environment
// variables, CLI flags.
package config

import "strings"

// DefaultExtensions is the comma-separated audio extension list Serato
// recognizes out of the box.
const DefaultExtensions = "mp3,m4a,aiff,aif,wav,flac"

// Config mirrors the TOML config file.
type Config struct {
	// MusicRoot is the folder hierarchy to mirror into crates.
	MusicRoot string `toml:"music_root"`

	// SeratoRoot is the _Serato_ folder; empty means the platform default.
	SeratoRoot string `toml:"serato_root"`

	// Extensions is a comma-separated audio extension list.
	Extensions string `toml:"extensions"`

	// Delimiter joins ancestor names for subcrate filenames.
	Delimiter string `toml:"subcrate_delimiter"`

	// PathMode selects how track paths are stored in crates.
	PathMode string `toml:"path_mode"`

	// Backend selects the destination storage mode ("file" or "database").
	Backend string `toml:"backend"`

	// IncludeEmpty keeps folders without audio files as crates.
	IncludeEmpty bool `toml:"include_empty"`

	// LogLevel is the baseline slog level (debug/info/warn/error);
	// --verbose and --quiet override it.
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		SeratoRoot: DefaultSeratoRoot(),
		Extensions: DefaultExtensions,
		Delimiter:  "%%",
		PathMode:   "absolute",
		Backend:    "file",
		LogLevel:   "info",
	}
}

// ParseExtensions normalizes a comma-separated extension list into a
// lowercase, dot-prefixed set.
func ParseExtensions(csv string) map[string]bool {
	exts := make(map[string]bool)

	for _, ext := range strings.Split(csv, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}

		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		exts[ext] = true
	}

	return exts
}
