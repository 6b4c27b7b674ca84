package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// =============================================================================
// Load
// =============================================================================

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "store:\n  path: /tmp/data.db\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/data.db", cfg.Store.Path)
	assert.Equal(t, KindBTree, cfg.Store.Kind)
	assert.Equal(t, DefaultPageSize, cfg.Store.PageSize)
	assert.Equal(t, DefaultCacheSize, cfg.Store.CacheSize)
	assert.Equal(t, DefaultMinItems, cfg.Store.MinItems)
	assert.Equal(t, DefaultLogLevel, cfg.Logger.LogLevel)
}

func TestLoad_Full(t *testing.T) {
	path := writeConfig(t, `
store:
  path: data.db
  create: true
  kind: hash
  page_size: 8192
  cache_size: 64
  min_items: 8
logger:
  log_level: debug
  file_log_name: pagekv.log
  max_size: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Store.Create)
	assert.Equal(t, KindHash, cfg.Store.Kind)
	assert.Equal(t, 8192, cfg.Store.PageSize)
	assert.Equal(t, 64, cfg.Store.CacheSize)
	assert.Equal(t, 8, cfg.Store.MinItems)
	assert.Equal(t, "debug", cfg.Logger.LogLevel)
	assert.Equal(t, "pagekv.log", cfg.Logger.FileLogName)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing_path", "store:\n  kind: btree\n"},
		{"bad_kind", "store:\n  path: a\n  kind: lsm\n"},
		{"page_not_pow2", "store:\n  path: a\n  page_size: 5000\n"},
		{"page_too_small", "store:\n  path: a\n  page_size: 256\n"},
		{"cache_too_small", "store:\n  path: a\n  cache_size: 2\n"},
		{"min_items_too_small", "store:\n  path: a\n  min_items: 2\n"},
		{"bad_level", "store:\n  path: a\nlogger:\n  log_level: loud\n"},
		{"bad_yaml", "store: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestRead_SkipsValidation(t *testing.T) {
	cfg, err := Read(writeConfig(t, "store:\n  kind: hash\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, KindHash, cfg.Store.Kind)
	assert.Error(t, cfg.Validate())

	cfg.Store.Path = "data.db"
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// Default
// =============================================================================

func TestDefault(t *testing.T) {
	s := Default("x.db")
	require.NoError(t, s.Validate())
	assert.Equal(t, "x.db", s.Path)
	assert.False(t, s.Create)
}
