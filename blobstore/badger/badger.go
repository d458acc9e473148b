// Package badger provides a blobstore.Store backed by an embedded BadgerDB.
//
// Each blob is stored as a single value, so blob size is bounded by Badger's
// transaction limits (see badger.Options.ValueLogFileSize).
//
//	store, err := badger.Open(badger.Options{Dir: "/var/lib/hora"})
//	if err != nil { ... }
//	defer store.Close()
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/hupe1980/horago/blobstore"
)

// Options configures the BadgerDB store.
type Options struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB in memory-only mode (no disk persistence).
	InMemory bool

	// Logger receives badger's log output. Nil discards it.
	Logger *slog.Logger
}

// Store implements blobstore.Store on top of BadgerDB.
type Store struct {
	db *badgerdb.DB
}

// Open opens (or creates) a BadgerDB-backed store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger: Options.Dir is required for on-disk mode")
	}

	dbOpts := badgerdb.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(slogAdapter{l: opts.Logger})

	db, err := badgerdb.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Open reads a blob into memory.
func (s *Store) Open(_ context.Context, name string) (blobstore.Blob, error) {
	if err := blobstore.ValidateName(name); err != nil {
		return nil, err
	}

	var val []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, blobstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return blobstore.NewBytesBlob(val), nil
}

// Create buffers writes and stores them in one transaction on Close.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if err := blobstore.ValidateName(name); err != nil {
		return nil, err
	}

	return blobstore.NewBufferedBlob(func(data []byte) error {
		return s.Put(ctx, name, data)
	}), nil
}

// Put writes a blob atomically.
func (s *Store) Put(_ context.Context, name string, data []byte) error {
	if err := blobstore.ValidateName(name); err != nil {
		return err
	}

	if name == "" {
		return errors.New("badger: empty blob name")
	}
	val := make([]byte, len(data))
	copy(val, data)
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(name), val)
	})
}

// Delete removes a blob.
func (s *Store) Delete(_ context.Context, name string) error {
	if err := blobstore.ValidateName(name); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(name))
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil
	}
	return err
}

// List returns all blob names with the given prefix.
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badgerdb.Txn) error {
		iterOpts := badgerdb.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = []byte(prefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(iterOpts.Prefix); it.ValidForPrefix(iterOpts.Prefix); it.Next() {
			names = append(names, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// slogAdapter routes badger's printf-style logging to slog.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) log(level slog.Level, format string, args ...any) {
	if a.l == nil {
		return
	}
	a.l.Log(context.Background(), level, fmt.Sprintf(format, args...), "component", "badger")
}

func (a slogAdapter) Errorf(format string, args ...any) { a.log(slog.LevelError, format, args...) }

func (a slogAdapter) Warningf(format string, args ...any) { a.log(slog.LevelWarn, format, args...) }

func (a slogAdapter) Infof(format string, args ...any) { a.log(slog.LevelInfo, format, args...) }

func (a slogAdapter) Debugf(format string, args ...any) { a.log(slog.LevelDebug, format, args...) }
