package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "prepkit", cfg.Name)
	assert.Equal(t, []string{"."}, cfg.Docs.Roots)
	assert.Equal(t, "README.md", cfg.Docs.Readme)
	assert.Equal(t, "error", cfg.Lint.FailOn)
	assert.Equal(t, ".prepkit/index.db", cfg.Store.DatabasePath)
	assert.Equal(t, 20, cfg.Search.Limit)
	assert.False(t, cfg.Links.Online)
}

func TestConfigSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".prepkit.yaml")

	cfg := DefaultConfig()
	cfg.Docs.Roots = []string{"notes", "guides"}
	cfg.Lint.FailOn = "warning"
	cfg.Links.Online = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"notes", "guides"}, loaded.Docs.Roots)
	assert.Equal(t, "warning", loaded.Lint.FailOn)
	assert.True(t, loaded.Links.Online)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "prepkit", cfg.Name)
	assert.Equal(t, "error", cfg.Lint.FailOn)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".prepkit.yaml")
	partial := "lint:\n  fail_on: warning\n  rules:\n    snippet-language:\n      severity: info\n    roadmap-overlap:\n      disabled: true\n"
	require.NoError(t, os.WriteFile(path, []byte(partial), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warning", cfg.Lint.FailOn)
	assert.Equal(t, "info", cfg.Lint.Rules["snippet-language"].Severity)
	assert.True(t, cfg.Lint.Rules["roadmap-overlap"].Disabled)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, "README.md", cfg.Docs.Readme)
	assert.Equal(t, ".prepkit/index.db", cfg.Store.DatabasePath)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".prepkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("docs: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestEnvOverrides(t *testing.T) {
	t.Run("docs roots", func(t *testing.T) {
		roots := strings.Join([]string{"notes", "extra"}, string(os.PathListSeparator))
		t.Setenv("PREPKIT_DOCS", roots)

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, []string{"notes", "extra"}, cfg.Docs.Roots)
	})

	t.Run("database path", func(t *testing.T) {
		t.Setenv("PREPKIT_DB", "/tmp/other.db")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "/tmp/other.db", cfg.Store.DatabasePath)
	})

	t.Run("log level", func(t *testing.T) {
		t.Setenv("PREPKIT_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("online flag", func(t *testing.T) {
		t.Setenv("PREPKIT_ONLINE", "true")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.True(t, cfg.Links.Online)
	})

	t.Run("online flag off beats file", func(t *testing.T) {
		t.Setenv("PREPKIT_ONLINE", "0")

		cfg := DefaultConfig()
		cfg.Links.Online = true
		cfg.applyEnvOverrides()
		assert.False(t, cfg.Links.Online)
	})

	t.Run("applied on load", func(t *testing.T) {
		t.Setenv("PREPKIT_README", "INDEX.md")

		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "INDEX.md", cfg.Docs.Readme)
	})
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Lint.FailOn = "fatal"
	assert.Error(t, cfg.Validate())
	cfg.Lint.FailOn = "warn"
	require.NoError(t, cfg.Validate())

	cfg.Logging.Level = "loud"
	assert.Error(t, cfg.Validate())
	cfg.Logging.Level = "debug"
	require.NoError(t, cfg.Validate())

	cfg.Links.Concurrency = -1
	assert.Error(t, cfg.Validate())
	cfg.Links.Concurrency = 0
	require.NoError(t, cfg.Validate())

	cfg.Docs.Roots = nil
	assert.Error(t, cfg.Validate())
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5*time.Second, cfg.GetPluginTimeout())
	assert.Equal(t, 10*time.Second, cfg.GetLinkTimeout())
	assert.Equal(t, 5*time.Minute, cfg.GetCacheTTL())
	assert.Equal(t, 500*time.Millisecond, cfg.GetDebounce())

	cfg.Watch.Debounce = "soon"
	assert.Equal(t, 500*time.Millisecond, cfg.GetDebounce())

	cfg.Links.Timeout = "2s"
	assert.Equal(t, 2*time.Second, cfg.GetLinkTimeout())
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("docs", ".prepkit.yaml"), Resolve("docs"))
	assert.Equal(t, ".prepkit.yaml", Resolve(""))
}
