package config

import (
	"github.com/hupe1980/horago"
	"github.com/hupe1980/horago/hnsw"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.HNSW.M == 0 {
		cfg.HNSW.M = hnsw.DefaultM
	}
	if cfg.HNSW.EFConstruction == 0 {
		cfg.HNSW.EFConstruction = hnsw.DefaultEFConstruction
	}
	if cfg.HNSW.EFSearch == 0 {
		cfg.HNSW.EFSearch = hnsw.DefaultEFSearch
	}
	if cfg.HNSW.Heuristic == nil {
		t := true
		cfg.HNSW.Heuristic = &t
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendLocal
	}
	if cfg.Compression == "" {
		cfg.Compression = "none"
	}
	if cfg.Cache.SearchCacheSize == nil {
		n := horago.DefaultSearchCacheSize
		cfg.Cache.SearchCacheSize = &n
	}
}
