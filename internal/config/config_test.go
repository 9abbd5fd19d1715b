package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config lookup at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	return xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// Defaults
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, 1, cfg.Version)
	assert.Contains(t, cfg.Paths.DataDir, ".songbook")
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "purego", cfg.Store.SQLiteDriver)
	assert.Equal(t, 5*time.Second, cfg.LockTimeoutDuration())
	assert.Equal(t, "sqlite", cfg.Index.Backend)
	assert.Equal(t, 256, cfg.Index.QueryCacheSize)
	assert.Equal(t, "explicit", cfg.Cache.Policy)
	assert.Equal(t, []string{".txt", ".song"}, cfg.Import.Extensions)
	assert.Equal(t, runtime.NumCPU(), cfg.Import.Workers)
	assert.Equal(t, 300*time.Millisecond, cfg.WatchDebounceDuration())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// Layered loading
// =============================================================================

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Store, cfg.Store)
}

func TestLoad_ProjectFile_OverridesDefaults(t *testing.T) {
	// Given: a project config selecting bolt and bleve
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), `
version: 1
store:
  backend: bolt
index:
  backend: bleve
  query_cache_size: 32
cache:
  policy: memory
  memory_limit_mb: 64
`)

	// When: loading configuration
	cfg, err := Load(dir)

	// Then: the overrides are applied and untouched fields keep defaults
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Store.Backend)
	assert.Equal(t, "purego", cfg.Store.SQLiteDriver)
	assert.Equal(t, "bleve", cfg.Index.Backend)
	assert.Equal(t, 32, cfg.Index.QueryCacheSize)
	assert.Equal(t, "memory", cfg.Cache.Policy)
	assert.Equal(t, 64, cfg.Cache.MemoryLimitMB)
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	// Given: both user and project configs set the log level
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "songbook", "config.yaml"), `
logging:
  level: debug
store:
  backend: memory
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), `
logging:
  level: warn
`)

	cfg, err := Load(dir)

	// Then: project wins where set, user fills the rest
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), "index:\n  backend: bleve\n")
	t.Setenv("SONGBOOK_INDEX_BACKEND", "sqlite")
	t.Setenv("SONGBOOK_QUERY_CACHE_SIZE", "0")
	t.Setenv("SONGBOOK_DATA_DIR", "/srv/songs")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Index.Backend)
	assert.Equal(t, 0, cfg.Index.QueryCacheSize)
	assert.Equal(t, "/srv/songs", cfg.Paths.DataDir)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), "store:\n  backend: [broken\n")

	cfg, err := Load(dir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoad_InvalidValue_FailsValidation(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), "store:\n  backend: postgres\n")

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
}

func TestLoad_ExpandsHomeInDataDir(t *testing.T) {
	isolate(t)
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), "paths:\n  data_dir: ~/church/songs\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "church", "songs"), cfg.Paths.DataDir)
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty data dir", func(c *Config) { c.Paths.DataDir = "" }, "paths.data_dir"},
		{"driver", func(c *Config) { c.Store.SQLiteDriver = "odbc" }, "store.sqlite_driver"},
		{"lock timeout", func(c *Config) { c.Store.LockTimeout = "soon" }, "store.lock_timeout"},
		{"index backend", func(c *Config) { c.Index.Backend = "lucene" }, "index.backend"},
		{"negative cache", func(c *Config) { c.Index.QueryCacheSize = -1 }, "query_cache_size"},
		{"policy", func(c *Config) { c.Cache.Policy = "lru" }, "cache.policy"},
		{"memory limit", func(c *Config) { c.Cache.Policy = "memory"; c.Cache.MemoryLimitMB = 0 }, "memory_limit_mb"},
		{"debounce", func(c *Config) { c.Import.WatchDebounce = "x" }, "watch_debounce"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// =============================================================================
// Persistence
// =============================================================================

func TestWriteYAML_RoundTrips(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Store.Backend = "bolt"

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectConfigName)))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "bolt", loaded.Store.Backend)
}

func TestMergeNewDefaults_AddsMissingFields(t *testing.T) {
	cfg := &Config{}

	added := cfg.MergeNewDefaults()

	assert.ElementsMatch(t, []string{
		"index.query_cache_size", "cache.policy", "cache.memory_limit_mb", "store.lock_timeout",
	}, added)
	assert.Equal(t, "explicit", cfg.Cache.Policy)
	assert.Empty(t, NewConfig().MergeNewDefaults())
}

func TestBackupFile_KeepsNewest(t *testing.T) {
	// Given: an existing config file
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "version: 1\n")

	// When: backing it up more times than MaxBackups
	for i := 0; i < MaxBackups+2; i++ {
		b, err := BackupFile(path)
		require.NoError(t, err)
		require.FileExists(t, b)
		time.Sleep(2 * time.Millisecond)
	}

	// Then: only MaxBackups remain
	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
}

func TestBackupFile_MissingFileIsNoop(t *testing.T) {
	b, err := BackupFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, b)
}
