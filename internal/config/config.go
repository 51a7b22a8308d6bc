// Package config loads and saves .prepkit.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file prepkit looks for in the corpus root.
const DefaultPath = ".prepkit.yaml"

// Config holds all prepkit configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Where the notes live
	Docs DocsConfig `yaml:"docs"`

	// Lint rules and custom plugins
	Lint LintConfig `yaml:"lint"`

	// External link checking
	Links LinksConfig `yaml:"links"`

	// SQLite index
	Store StoreConfig `yaml:"store"`

	// Section and symbol search
	Search SearchConfig `yaml:"search"`

	// Watch mode
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DocsConfig tells the scanner where the corpus lives.
type DocsConfig struct {
	Roots  []string `yaml:"roots"`
	Ignore []string `yaml:"ignore"`
	Readme string   `yaml:"readme"`
}

// LintConfig configures the rule set.
type LintConfig struct {
	FailOn        string                  `yaml:"fail_on"` // error, warning, info
	AllowedLangs  []string                `yaml:"allowed_langs"`
	Rules         map[string]RuleOverride `yaml:"rules"`
	PluginsDir    string                  `yaml:"plugins_dir"`
	PluginTimeout string                  `yaml:"plugin_timeout"`
}

// RuleOverride remaps or disables a single rule.
type RuleOverride struct {
	Severity string `yaml:"severity,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// LinksConfig configures the external link checker.
type LinksConfig struct {
	Online       bool     `yaml:"online"`
	Timeout      string   `yaml:"timeout"`
	Concurrency  int      `yaml:"concurrency"`
	ExcludeHosts []string `yaml:"exclude_hosts"`
}

// StoreConfig configures the SQLite index.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	CacheDir     string `yaml:"cache_dir"`
}

// SearchConfig configures search ranking and caching.
type SearchConfig struct {
	Limit     int    `yaml:"limit"`
	CacheSize int    `yaml:"cache_size"`
	CacheTTL  string `yaml:"cache_ttl"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "prepkit",
		Version: "0.4.0",

		Docs: DocsConfig{
			Roots:  []string{"."},
			Readme: "README.md",
		},

		Lint: LintConfig{
			FailOn:        "error",
			PluginsDir:    ".prepkit/rules",
			PluginTimeout: "5s",
		},

		Links: LinksConfig{
			Online:      false,
			Timeout:     "10s",
			Concurrency: 8,
		},

		Store: StoreConfig{
			DatabasePath: ".prepkit/index.db",
			CacheDir:     ".prepkit",
		},

		Search: SearchConfig{
			Limit:     20,
			CacheSize: 256,
			CacheTTL:  "5m",
		},

		Watch: WatchConfig{
			Debounce: "500ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file is not an
// error, the defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if roots := os.Getenv("PREPKIT_DOCS"); roots != "" {
		c.Docs.Roots = filepath.SplitList(roots)
	}
	if readme := os.Getenv("PREPKIT_README"); readme != "" {
		c.Docs.Readme = readme
	}
	if db := os.Getenv("PREPKIT_DB"); db != "" {
		c.Store.DatabasePath = db
	}
	if level := os.Getenv("PREPKIT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if online := os.Getenv("PREPKIT_ONLINE"); online != "" {
		switch strings.ToLower(online) {
		case "1", "true", "yes":
			c.Links.Online = true
		case "0", "false", "no":
			c.Links.Online = false
		}
	}
}

// GetPluginTimeout returns the custom rule timeout as a duration.
func (c *Config) GetPluginTimeout() time.Duration {
	d, err := time.ParseDuration(c.Lint.PluginTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetLinkTimeout returns the external link timeout as a duration.
func (c *Config) GetLinkTimeout() time.Duration {
	d, err := time.ParseDuration(c.Links.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetCacheTTL returns the search cache TTL as a duration.
func (c *Config) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Search.CacheTTL)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// GetDebounce returns the watch settle window as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// ValidFailOn lists the accepted fail_on thresholds.
var ValidFailOn = []string{"error", "warning", "warn", "info"}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Docs.Roots) == 0 {
		return fmt.Errorf("docs.roots must name at least one directory")
	}

	validFailOn := false
	for _, f := range ValidFailOn {
		if c.Lint.FailOn == f {
			validFailOn = true
			break
		}
	}
	if !validFailOn {
		return fmt.Errorf("invalid lint.fail_on: %s (valid: %v)", c.Lint.FailOn, ValidFailOn)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}

	if c.Links.Concurrency < 0 {
		return fmt.Errorf("links.concurrency must not be negative")
	}

	return nil
}

// Resolve returns the path to the config file for the given corpus root,
// or the default when root is empty.
func Resolve(root string) string {
	if root == "" {
		root = "."
	}
	return filepath.Join(root, DefaultPath)
}
