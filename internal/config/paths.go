package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformDarwin  = "darwin"
	platformWindows = "windows"
)

// Application directory name for cratesync's own config.
const appName = "cratesync"

// Config file name.
const configFileName = "config.toml"

// DefaultSeratoRoot returns the default _Serato_ folder (~/Music/_Serato_).
func DefaultSeratoRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, "Music", "_Serato_")
}

// SeratoCacheDir returns Serato's application cache folder: the macOS
// Application Support directory, %LOCALAPPDATA%\Serato on Windows, and a
// dotfolder fallback elsewhere.
func SeratoCacheDir() string {
	switch runtime.GOOS {
	case platformDarwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}

		return filepath.Join(home, "Library", "Application Support", "Serato")
	case platformWindows:
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "Serato")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}

		return filepath.Join(home, ".serato")
	}
}

// SeratoLibraryDir returns the folder holding Serato's library SQLite
// store files.
func SeratoLibraryDir() string {
	cache := SeratoCacheDir()
	if cache == "" {
		return ""
	}

	return filepath.Join(cache, "Library")
}

// DefaultConfigDir returns the platform-specific directory for cratesync's
// config file. On Linux it respects XDG_CONFIG_HOME.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	if runtime.GOOS == platformDarwin {
		return filepath.Join(home, "Library", "Application Support", appName)
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".config", appName)
}

// DefaultConfigPath returns the full path of the default config file.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}
