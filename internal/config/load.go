package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Environment variable names for overrides.
const (
	EnvConfig     = "CRATESYNC_CONFIG"
	EnvSeratoRoot = "CRATESYNC_SERATO_ROOT"
	EnvMusicRoot  = "CRATESYNC_MUSIC_ROOT"
)

// EnvOverrides holds values read from the environment.
type EnvOverrides struct {
	ConfigPath string
	SeratoRoot string
	MusicRoot  string
}

// ReadEnvOverrides reads the CRATESYNC_* environment variables.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		SeratoRoot: os.Getenv(EnvSeratoRoot),
		MusicRoot:  os.Getenv(EnvMusicRoot),
	}
}

// Load reads and parses a TOML config file. Unknown keys are fatal errors:
// silently ignoring a typo in a config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads the config file if it exists, otherwise returns all
// defaults. Supports the zero-config first run.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve applies the override chain: defaults -> config file -> environment.
// CLI flags are applied last by the command layer, which knows whether each
// flag was explicitly set.
func Resolve(env EnvOverrides, flagConfigPath string) (*Config, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if flagConfigPath != "" {
		cfgPath = flagConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.SeratoRoot != "" {
		cfg.SeratoRoot = env.SeratoRoot
	}

	if env.MusicRoot != "" {
		cfg.MusicRoot = env.MusicRoot
	}

	return cfg, nil
}

// validate rejects values no component could act on.
func validate(cfg *Config) error {
	switch cfg.PathMode {
	case "absolute", "relative-to-music-root", "relative-to-volume-root":
	default:
		return fmt.Errorf("invalid path_mode %q", cfg.PathMode)
	}

	switch cfg.Backend {
	case "file", "database":
	default:
		return fmt.Errorf("invalid backend %q", cfg.Backend)
	}

	if len(cfg.Delimiter) != 2 {
		return fmt.Errorf("subcrate_delimiter must be exactly two characters, got %q", cfg.Delimiter)
	}

	return nil
}
