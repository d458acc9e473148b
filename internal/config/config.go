// Package config provides configuration loading and structs for the hora
// binaries.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/horago/persistence"
)

// Config holds all configuration for the application.
type Config struct {
	Log         LogConfig      `yaml:"log"`
	Server      ServerConfig   `yaml:"server"`
	HNSW        HNSWConfig     `yaml:"hnsw"`
	Storage     StorageConfig  `yaml:"storage"`
	Compression string         `yaml:"compression"`
	Resources   ResourceConfig `yaml:"resources"`
	Cache       CacheConfig    `yaml:"cache"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// HNSWConfig holds graph parameters for new indexes.
type HNSWConfig struct {
	M              int    `yaml:"m"`
	EFConstruction int    `yaml:"ef_construction"`
	EFSearch       int    `yaml:"ef_search"`
	Heuristic      *bool  `yaml:"heuristic"`
	Seed           *int64 `yaml:"seed"`
}

// StorageConfig selects the blob store used for dumps.
type StorageConfig struct {
	Backend string       `yaml:"backend"`
	Local   LocalConfig  `yaml:"local"`
	S3      S3Config     `yaml:"s3"`
	MinIO   MinIOConfig  `yaml:"minio"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
	Badger  BadgerConfig `yaml:"badger"`
}

// LocalConfig holds local filesystem settings. An empty root means dump
// paths are plain file paths.
type LocalConfig struct {
	Root string `yaml:"root"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// MinIOConfig holds MinIO settings.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Secure    bool   `yaml:"secure"`
}

// SQLiteConfig holds SQLite blob store settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// BadgerConfig holds Badger blob store settings.
type BadgerConfig struct {
	Dir      string `yaml:"dir"`
	InMemory bool   `yaml:"in_memory"`
}

// ResourceConfig holds process-wide limits. Zero means unlimited.
type ResourceConfig struct {
	MemoryLimitBytes   int64 `yaml:"memory_limit_bytes"`
	MaxWorkers         int64 `yaml:"max_workers"`
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec"`
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	SearchCacheSize *int `yaml:"search_cache_size"`
}

// Storage backends.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendS3     = "s3"
	BackendMinIO  = "minio"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Default returns a configuration with all defaults applied.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Load reads and parses the config file at path, applies defaults, resolves
// relative storage paths against the config directory and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.Local.Root = expandPath(cfg.Storage.Local.Root, configDir)
	cfg.Storage.SQLite.Path = expandPath(cfg.Storage.SQLite.Path, configDir)
	cfg.Storage.Badger.Dir = expandPath(cfg.Storage.Badger.Dir, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	if c.HNSW.M < 0 || c.HNSW.EFConstruction < 0 || c.HNSW.EFSearch < 0 {
		errs = append(errs, errors.New("hnsw: parameters must not be negative"))
	}
	if _, err := persistence.ParseCompression(c.Compression); err != nil {
		errs = append(errs, fmt.Errorf("compression: %w", err))
	}
	if c.Resources.MemoryLimitBytes < 0 || c.Resources.MaxWorkers < 0 || c.Resources.IOLimitBytesPerSec < 0 {
		errs = append(errs, errors.New("resources: limits must not be negative"))
	}

	switch c.Storage.Backend {
	case BackendLocal, BackendMemory:
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required"))
		}
	case BackendMinIO:
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			errs = append(errs, errors.New("storage.minio.endpoint and storage.minio.bucket are required"))
		}
	case BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			errs = append(errs, errors.New("storage.sqlite.path is required"))
		}
	case BackendBadger:
		if c.Storage.Badger.Dir == "" && !c.Storage.Badger.InMemory {
			errs = append(errs, errors.New("storage.badger.dir is required unless in_memory is set"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend))
	}

	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// expandPath resolves relative paths against configDir. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}
