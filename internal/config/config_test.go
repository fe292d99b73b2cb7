package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtensions(t *testing.T) {
	exts := ParseExtensions("mp3, M4A,.flac , ,wav")

	assert.Equal(t, map[string]bool{
		".mp3": true, ".m4a": true, ".flac": true, ".wav": true,
	}, exts)
}

func TestLoadAppliesDefaultsUnderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("music_root = \"/music\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/music", cfg.MusicRoot)
	assert.Equal(t, "%%", cfg.Delimiter, "unset keys keep their defaults")
	assert.Equal(t, "file", cfg.Backend)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("musik_root = \"/music\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "musik_root")
}

func TestLoadValidatesEnums(t *testing.T) {
	cases := map[string]string{
		"bad path mode": "path_mode = \"relative\"\n",
		"bad backend":   "backend = \"cloud\"\n",
		"bad delimiter": "subcrate_delimiter = \"%\"\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultExtensions, cfg.Extensions)
}

func TestResolveEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("serato_root = \"/from-file\"\n"), 0o644))

	cfg, err := Resolve(EnvOverrides{SeratoRoot: "/from-env"}, path)
	require.NoError(t, err)
	assert.Equal(t, "/from-env", cfg.SeratoRoot)
}
