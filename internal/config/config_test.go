package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/horago"
	"github.com/hupe1980/horago/hnsw"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hora.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
server:
  host: "127.0.0.1"
  port: 9000
hnsw:
  m: 32
  heuristic: false
  seed: 7
storage:
  backend: sqlite
  sqlite:
    path: data/blobs.db
compression: zstd
resources:
  memory_limit_bytes: 1048576
cache:
  search_cache_size: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, 32, cfg.HNSW.M)
	assert.Equal(t, hnsw.DefaultEFConstruction, cfg.HNSW.EFConstruction)
	require.NotNil(t, cfg.HNSW.Heuristic)
	assert.False(t, *cfg.HNSW.Heuristic)
	require.NotNil(t, cfg.HNSW.Seed)
	assert.Equal(t, int64(7), *cfg.HNSW.Seed)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data", "blobs.db"), cfg.Storage.SQLite.Path)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, int64(1<<20), cfg.Resources.MemoryLimitBytes)
	require.NotNil(t, cfg.Cache.SearchCacheSize)
	assert.Zero(t, *cfg.Cache.SearchCacheSize)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, BackendLocal, cfg.Storage.Backend)
	assert.Equal(t, "none", cfg.Compression)
	assert.Equal(t, hnsw.DefaultM, cfg.HNSW.M)
	assert.True(t, *cfg.HNSW.Heuristic)
	assert.Nil(t, cfg.HNSW.Seed)
	assert.Equal(t, horago.DefaultSearchCacheSize, *cfg.Cache.SearchCacheSize)
	assert.Empty(t, cfg.Storage.Local.Root)
	require.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [unterminated"))
		assert.ErrorContains(t, err, "failed to parse config")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"LogLevel", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"LogFormat", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"Port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"HNSW", func(c *Config) { c.HNSW.M = -1 }, "hnsw"},
		{"Compression", func(c *Config) { c.Compression = "brotli" }, "compression"},
		{"Resources", func(c *Config) { c.Resources.MaxWorkers = -2 }, "resources"},
		{"Backend", func(c *Config) { c.Storage.Backend = "floppy" }, "storage.backend"},
		{"S3Bucket", func(c *Config) { c.Storage.Backend = BackendS3 }, "storage.s3.bucket"},
		{"MinIO", func(c *Config) { c.Storage.Backend = BackendMinIO }, "storage.minio"},
		{"SQLite", func(c *Config) { c.Storage.Backend = BackendSQLite }, "storage.sqlite.path"},
		{"Badger", func(c *Config) { c.Storage.Backend = BackendBadger }, "storage.badger.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}

	t.Run("BadgerInMemory", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Backend = BackendBadger
		cfg.Storage.Badger.InMemory = true
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Joined", func(t *testing.T) {
		cfg := Default()
		cfg.Log.Format = "xml"
		cfg.Compression = "brotli"
		err := cfg.Validate()
		assert.ErrorContains(t, err, "log.format")
		assert.ErrorContains(t, err, "compression")
	})
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, "", expandPath("", "/etc/hora"))
	assert.Equal(t, "/abs/x", expandPath("/abs/x", "/etc/hora"))
	assert.Equal(t, ":memory:", expandPath(":memory:", "/etc/hora"))
	assert.Equal(t, filepath.Join("/etc/hora", "data"), expandPath("data", "/etc/hora"))
	assert.Equal(t, filepath.Join("/etc/hora", "data"), expandPath("./data", "/etc/hora"))
}
