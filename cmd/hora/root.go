package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"

	"github.com/hupe1980/horago"
	"github.com/hupe1980/horago/blobstore"
	"github.com/hupe1980/horago/blobstore/badger"
	miniostore "github.com/hupe1980/horago/blobstore/minio"
	s3store "github.com/hupe1980/horago/blobstore/s3"
	"github.com/hupe1980/horago/blobstore/sqlite"
	"github.com/hupe1980/horago/hnsw"
	"github.com/hupe1980/horago/internal/config"
	"github.com/hupe1980/horago/persistence"
	"github.com/hupe1980/horago/resource"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "hora",
		Short: "hora - approximate nearest-neighbor indexes over HNSW graphs",
		Long: `hora builds, searches and serves HNSW indexes of float64 vectors
with string labels. Index dumps can live on local disk or in any configured
blob store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(
		newServeCmd(opts),
		newBuildCmd(opts),
		newSearchCmd(opts),
		newInspectCmd(opts),
	)
	return cmd
}

// loadConfig reads the config file if one was given, otherwise defaults.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}

func newLogger(cfg config.LogConfig, w io.Writer) (*horago.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return horago.NewLogger(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return horago.NewLogger(slog.NewTextHandler(w, handlerOpts)), nil
}

// openStore opens the configured blob store. The returned close function
// releases backends that hold resources and is never nil.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (blobstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		return blobstore.NewMemoryStore(), noop, nil
	case config.BackendS3:
		s, err := s3store.New(ctx, cfg.S3.Bucket,
			s3store.WithPrefix(cfg.S3.Prefix),
			s3store.WithRegion(cfg.S3.Region),
			s3store.WithEndpoint(cfg.S3.Endpoint, cfg.S3.UsePathStyle),
		)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case config.BackendMinIO:
		client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.Secure,
		})
		if err != nil {
			return nil, nil, err
		}
		return miniostore.NewStore(client, cfg.MinIO.Bucket, cfg.MinIO.Prefix), noop, nil
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BackendBadger:
		s, err := badger.Open(badger.Options{
			Dir:      cfg.Badger.Dir,
			InMemory: cfg.Badger.InMemory,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return blobstore.NewLocalStore(cfg.Local.Root), noop, nil
	}
}

// registryOptions translates cfg into registry options.
func registryOptions(cfg *config.Config, store blobstore.Store, logger *horago.Logger, metrics horago.MetricsCollector) ([]func(o *horago.Options), error) {
	compression, err := persistence.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	h := cfg.HNSW
	indexOpts := func(o *hnsw.Options) {
		o.M = h.M
		o.EFConstruction = h.EFConstruction
		o.EFSearch = h.EFSearch
		if h.Heuristic != nil {
			o.Heuristic = *h.Heuristic
		}
		if h.Seed != nil {
			seed := *h.Seed
			o.RandomSeed = &seed
		}
	}

	opts := []func(o *horago.Options){
		horago.WithLogger(logger),
		horago.WithStore(store),
		horago.WithCompression(compression),
		horago.WithIndexOptions(indexOpts),
		horago.WithMetricsCollector(metrics),
	}

	if cfg.Cache.SearchCacheSize != nil {
		opts = append(opts, horago.WithSearchCacheSize(*cfg.Cache.SearchCacheSize))
	}

	r := cfg.Resources
	if r.MemoryLimitBytes > 0 || r.MaxWorkers > 0 || r.IOLimitBytesPerSec > 0 {
		opts = append(opts, horago.WithResources(resource.NewController(resource.Config{
			MemoryLimitBytes:   r.MemoryLimitBytes,
			MaxWorkers:         r.MaxWorkers,
			IOLimitBytesPerSec: r.IOLimitBytesPerSec,
		})))
	}

	return opts, nil
}

// env bundles what every subcommand needs.
type env struct {
	cfg      *config.Config
	logger   *horago.Logger
	metrics  *horago.BasicMetricsCollector
	registry *horago.Registry
	close    func() error
}

func (o *rootOptions) setup(ctx context.Context, logOut io.Writer) (*env, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(ctx, cfg.Storage, logger.Logger)
	if err != nil {
		return nil, err
	}

	metrics := &horago.BasicMetricsCollector{}
	regOpts, err := registryOptions(cfg, store, logger, metrics)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	return &env{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		registry: horago.New(regOpts...),
		close:    closeStore,
	}, nil
}
