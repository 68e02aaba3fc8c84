package cached

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/recall/blobstore"
)

// Store wraps an inner blob store with a BadgerDB read-through cache.
//
// Corpus records are immutable and append-only, so a cached Get never goes
// stale and no invalidation is required. Put writes through to the inner
// store first and populates the cache only after the write succeeds. List
// always passes through: the key set is the one thing that does change.
type Store struct {
	inner  blobstore.BlobStore
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open creates a cache at dir wrapping inner.
// If dir is empty the cache lives in memory and is lost on close.
func Open(dir string, inner blobstore.BlobStore) (*Store, error) {
	if inner == nil {
		return nil, errors.New("inner blob store required")
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		inner:  inner,
		db:     db,
		logger: slog.Default().With("component", "blob-cache"),
	}, nil
}

var _ blobstore.BlobStore = (*Store)(nil)

// Put writes through to the inner store, then caches the bytes.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	if err := s.inner.Put(ctx, key, data, contentType, metadata); err != nil {
		return err
	}
	s.cacheSet(key, data)
	return nil
}

// Get serves from the cache when possible, otherwise fetches from the inner
// store and caches the result. Cache failures degrade to inner fetches.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		s.logger.Warn("cache read failed", "key", key, "err", err)
	}

	data, err = s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cacheSet(key, data)
	return data, nil
}

// List passes through to the inner store.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Close closes the underlying cache database.
func (s *Store) Close() error {
	return s.db.Close()
}

// cacheSet stores bytes in the cache, best-effort.
func (s *Store) cacheSet(key string, data []byte) {
	err := s.db.Update(func(tx *badger.Txn) error {
		return tx.Set([]byte(key), data)
	})
	if err != nil {
		s.logger.Warn("cache write failed", "key", key, "err", err)
	}
}
