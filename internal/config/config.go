package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectConfigName is the per-library override file looked up in the
// working directory.
const ProjectConfigName = ".songbook.yaml"

// Config represents the complete songbook configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Import  ImportConfig  `yaml:"import" json:"import"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PathsConfig locates the library on disk.
type PathsConfig struct {
	// DataDir holds the record store, the search index and the lock file.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	// Backend is "sqlite" (default), "bolt" or "memory".
	Backend string `yaml:"backend" json:"backend"`
	// SQLiteDriver is "purego" (modernc, default) or "cgo" (mattn).
	SQLiteDriver string `yaml:"sqlite_driver" json:"sqlite_driver"`
	// LockTimeout bounds how long startup waits for another process to
	// release the library.
	LockTimeout string `yaml:"lock_timeout" json:"lock_timeout"`
}

// IndexConfig selects the search index backend.
type IndexConfig struct {
	// Backend is "sqlite" (FTS5, default) or "bleve".
	Backend string `yaml:"backend" json:"backend"`
	// QueryCacheSize is the number of search results kept in the LRU.
	// Zero disables the query cache.
	QueryCacheSize int `yaml:"query_cache_size" json:"query_cache_size"`
}

// CacheConfig selects the snapshot eviction policy.
type CacheConfig struct {
	// Policy is "explicit" (default) or "memory".
	Policy string `yaml:"policy" json:"policy"`
	// MemoryLimitMB is the heap size above which the "memory" policy
	// drops the snapshot.
	MemoryLimitMB int `yaml:"memory_limit_mb" json:"memory_limit_mb"`
}

// ImportConfig configures song file import and folder watching.
type ImportConfig struct {
	Extensions    []string `yaml:"extensions" json:"extensions"`
	Workers       int      `yaml:"workers" json:"workers"`
	WatchDebounce string   `yaml:"watch_debounce" json:"watch_debounce"`
}

// LoggingConfig configures the structured log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir: defaultDataDir(),
		},
		Store: StoreConfig{
			Backend:      "sqlite",
			SQLiteDriver: "purego",
			LockTimeout:  "5s",
		},
		Index: IndexConfig{
			Backend:        "sqlite",
			QueryCacheSize: 256,
		},
		Cache: CacheConfig{
			Policy:        "explicit",
			MemoryLimitMB: 512,
		},
		Import: ImportConfig{
			Extensions:    []string{".txt", ".song"},
			Workers:       runtime.NumCPU(),
			WatchDebounce: "300ms",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".songbook", "library")
	}
	return filepath.Join(home, ".songbook", "library")
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/songbook/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/songbook/config.yaml
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "songbook", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "songbook", "config.yaml")
	}
	return filepath.Join(home, ".config", "songbook", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the library rooted at dir.
// Precedence, lowest first:
//  1. Hardcoded defaults
//  2. User config (~/.config/songbook/config.yaml)
//  3. Project config (.songbook.yaml in dir)
//  4. Environment variables (SONGBOOK_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
		}
	}

	if path := filepath.Join(dir, ProjectConfigName); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Paths.DataDir != "" {
		c.Paths.DataDir = expandHome(other.Paths.DataDir)
	}

	if other.Store.Backend != "" {
		c.Store.Backend = other.Store.Backend
	}
	if other.Store.SQLiteDriver != "" {
		c.Store.SQLiteDriver = other.Store.SQLiteDriver
	}
	if other.Store.LockTimeout != "" {
		c.Store.LockTimeout = other.Store.LockTimeout
	}

	if other.Index.Backend != "" {
		c.Index.Backend = other.Index.Backend
	}
	if other.Index.QueryCacheSize != 0 {
		c.Index.QueryCacheSize = other.Index.QueryCacheSize
	}

	if other.Cache.Policy != "" {
		c.Cache.Policy = other.Cache.Policy
	}
	if other.Cache.MemoryLimitMB != 0 {
		c.Cache.MemoryLimitMB = other.Cache.MemoryLimitMB
	}

	if len(other.Import.Extensions) > 0 {
		c.Import.Extensions = other.Import.Extensions
	}
	if other.Import.Workers != 0 {
		c.Import.Workers = other.Import.Workers
	}
	if other.Import.WatchDebounce != "" {
		c.Import.WatchDebounce = other.Import.WatchDebounce
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = expandHome(other.Logging.File)
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies SONGBOOK_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SONGBOOK_DATA_DIR"); v != "" {
		c.Paths.DataDir = expandHome(v)
	}
	if v := os.Getenv("SONGBOOK_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("SONGBOOK_SQLITE_DRIVER"); v != "" {
		c.Store.SQLiteDriver = v
	}
	if v := os.Getenv("SONGBOOK_INDEX_BACKEND"); v != "" {
		c.Index.Backend = v
	}
	// Zero is meaningful here: it disables the query cache.
	if v := os.Getenv("SONGBOOK_QUERY_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Index.QueryCacheSize = n
		}
	}
	if v := os.Getenv("SONGBOOK_CACHE_POLICY"); v != "" {
		c.Cache.Policy = v
	}
	if v := os.Getenv("SONGBOOK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}

	if !oneOf(c.Store.Backend, "sqlite", "bolt", "memory") {
		return fmt.Errorf("store.backend must be 'sqlite', 'bolt', or 'memory', got %s", c.Store.Backend)
	}
	if !oneOf(c.Store.SQLiteDriver, "purego", "cgo") {
		return fmt.Errorf("store.sqlite_driver must be 'purego' or 'cgo', got %s", c.Store.SQLiteDriver)
	}
	if _, err := time.ParseDuration(c.Store.LockTimeout); err != nil {
		return fmt.Errorf("store.lock_timeout: %w", err)
	}

	if !oneOf(c.Index.Backend, "sqlite", "bleve") {
		return fmt.Errorf("index.backend must be 'sqlite' or 'bleve', got %s", c.Index.Backend)
	}
	if c.Index.QueryCacheSize < 0 {
		return fmt.Errorf("index.query_cache_size must be non-negative, got %d", c.Index.QueryCacheSize)
	}

	if !oneOf(c.Cache.Policy, "explicit", "memory") {
		return fmt.Errorf("cache.policy must be 'explicit' or 'memory', got %s", c.Cache.Policy)
	}
	if c.Cache.Policy == "memory" && c.Cache.MemoryLimitMB <= 0 {
		return fmt.Errorf("cache.memory_limit_mb must be positive with the memory policy, got %d", c.Cache.MemoryLimitMB)
	}

	if c.Import.Workers < 0 {
		return fmt.Errorf("import.workers must be non-negative, got %d", c.Import.Workers)
	}
	if _, err := time.ParseDuration(c.Import.WatchDebounce); err != nil {
		return fmt.Errorf("import.watch_debounce: %w", err)
	}

	if !oneOf(c.Logging.Level, "debug", "info", "warn", "error") {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// LockTimeoutDuration returns Store.LockTimeout parsed. Validate guarantees it parses.
func (c *Config) LockTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Store.LockTimeout)
	return d
}

// WatchDebounceDuration returns Import.WatchDebounce parsed.
func (c *Config) WatchDebounceDuration() time.Duration {
	d, _ := time.ParseDuration(c.Import.WatchDebounce)
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeNewDefaults fills fields missing from an older config file with
// current defaults. Returns the dotted names of the fields it added.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Index.QueryCacheSize == 0 {
		c.Index.QueryCacheSize = defaults.Index.QueryCacheSize
		added = append(added, "index.query_cache_size")
	}
	if c.Cache.Policy == "" {
		c.Cache.Policy = defaults.Cache.Policy
		added = append(added, "cache.policy")
	}
	if c.Cache.MemoryLimitMB == 0 {
		c.Cache.MemoryLimitMB = defaults.Cache.MemoryLimitMB
		added = append(added, "cache.memory_limit_mb")
	}
	if c.Store.LockTimeout == "" {
		c.Store.LockTimeout = defaults.Store.LockTimeout
		added = append(added, "store.lock_timeout")
	}

	return added
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
