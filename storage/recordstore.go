package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/poiesic/recall/blobstore"
	"github.com/poiesic/recall/core"
)

// DefaultNamespace is the blob key prefix under which records live.
const DefaultNamespace = "vectors/"

const recordSuffix = ".json"

// RecordStore persists vector records in a blob store namespace.
// Implementations must be thread-safe.
type RecordStore interface {
	// Put serializes and persists a record, returning the storage key it
	// was written under. Every call derives a fresh key, so re-ingesting a
	// document appends a new record rather than replacing the old one.
	// The same applies to a caller retry after an ambiguous failure: it
	// appends a duplicate record instead of overwriting. Key uniqueness
	// under concurrent same-instant writes was chosen over retry
	// idempotency; a duplicate only costs one redundant scan entry, which
	// the retention process can reap via content fingerprints.
	Put(ctx context.Context, record *core.VectorRecord) (string, error)

	// ListKeys enumerates every record key currently in the namespace.
	// Ordering is unspecified; callers must not depend on it.
	ListKeys(ctx context.Context) ([]string, error)

	// Get fetches and deserializes a single record.
	// Returns an error satisfying errors.Is(err, ErrNotFound) if the key no
	// longer exists, or ErrSerializationFailed if the blob cannot be decoded.
	Get(ctx context.Context, key string) (*core.VectorRecord, error)

	// Namespace returns the key prefix this store operates under.
	Namespace() string
}

// Option configures a RecordStore.
type Option func(*blobRecordStore) error

// WithNamespace sets the blob key prefix. A trailing slash is added if
// missing. Default is DefaultNamespace.
func WithNamespace(namespace string) Option {
	return func(s *blobRecordStore) error {
		if namespace == "" {
			namespace = DefaultNamespace
		}
		if !strings.HasSuffix(namespace, "/") {
			namespace += "/"
		}
		s.namespace = namespace
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *blobRecordStore) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// blobRecordStore implements RecordStore over a blobstore.BlobStore.
type blobRecordStore struct {
	blobs     blobstore.BlobStore
	namespace string
	logger    *slog.Logger
	seq       atomic.Uint64
}

// NewRecordStore creates a record store over the given blob store.
//
// Returns the RecordStore interface to enforce abstraction.
func NewRecordStore(blobs blobstore.BlobStore, opts ...Option) (RecordStore, error) {
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}

	s := &blobRecordStore{
		blobs:     blobs,
		namespace: DefaultNamespace,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *blobRecordStore) Put(ctx context.Context, record *core.VectorRecord) (string, error) {
	if err := core.ValidateRecord(record); err != nil {
		return "", err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	key := s.deriveKey(record.DocumentID, record.CreatedAt)
	err = s.blobs.Put(ctx, key, data, "application/json", map[string]string{
		"document_id": record.DocumentID,
		"timestamp":   record.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %q: %w", ErrStoreUnavailable, key, err)
	}

	s.logger.Debug("stored vector record", "key", key, "document", record.DocumentID, "dimensions", len(record.Embedding))
	return key, nil
}

func (s *blobRecordStore) ListKeys(ctx context.Context) ([]string, error) {
	all, err := s.blobs.List(ctx, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: list %q: %w", ErrStoreUnavailable, s.namespace, err)
	}

	keys := make([]string, 0, len(all))
	for _, key := range all {
		if strings.HasSuffix(key, recordSuffix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *blobRecordStore) Get(ctx context.Context, key string) (*core.VectorRecord, error) {
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: get %q: %w", ErrStoreUnavailable, key, err)
	}

	var record core.VectorRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSerializationFailed, key, err)
	}
	return &record, nil
}

func (s *blobRecordStore) Namespace() string {
	return s.namespace
}

// deriveKey builds a collision-free storage key from the document id and the
// record timestamp. The nanosecond fraction plus a process-local sequence
// token keeps same-instant re-ingestions of the same document distinct.
func (s *blobRecordStore) deriveKey(documentID string, createdAt time.Time) string {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	ts := createdAt.UTC().Format("20060102-150405.000000000")
	seq := s.seq.Add(1) % 10000
	return fmt.Sprintf("%s%s_%s-%04d%s", s.namespace, SanitizeDocumentID(documentID), ts, seq, recordSuffix)
}

// SanitizeDocumentID makes a document id safe for use inside a flat blob key:
// path separators and whitespace collapse to single dashes.
func SanitizeDocumentID(documentID string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '\t', '\n':
			return '-'
		default:
			return r
		}
	}, documentID)

	for strings.Contains(mapped, "--") {
		mapped = strings.ReplaceAll(mapped, "--", "-")
	}
	mapped = strings.Trim(mapped, "-")
	if mapped == "" {
		return "document"
	}
	return mapped
}

// DocumentIDFromKey recovers the sanitized document id embedded in a storage
// key, for operational tooling that reports per-document counts without
// downloading records. Returns "" if the key does not look like a record key.
func DocumentIDFromKey(key, namespace string) string {
	name := strings.TrimPrefix(key, namespace)
	if !strings.HasSuffix(name, recordSuffix) {
		return ""
	}
	name = strings.TrimSuffix(name, recordSuffix)

	idx := strings.LastIndex(name, "_")
	if idx <= 0 {
		return ""
	}
	return name[:idx]
}
