package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

const (
	// MaxInputChars is the embedding service's input ceiling. Text beyond it
	// is cut and marked before the embedding call.
	MaxInputChars = 8000

	// MinInputChars is the minimal meaningful document length. Anything
	// shorter is rejected without spending an embedding call.
	MinInputChars = 10

	truncationMarker = "... (truncated)"
)

// Pipeline turns raw document text into persisted vector records.
// Ingestion is all-or-nothing per document: an embedding failure persists
// nothing, and a successful run appends exactly one record to the corpus.
type Pipeline struct {
	store    storage.RecordStore
	embedder ai.Embedder
	pool     *ants.Pool
	maxChars int
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for batch ingestion.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithMaxInputChars overrides the embedding input ceiling, for services with
// a different limit. Values below MinInputChars are ignored.
func WithMaxInputChars(max int) Option {
	return func(p *Pipeline) error {
		if max >= MinInputChars {
			p.maxChars = max
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store storage.RecordStore, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrRecordStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:    store,
		embedder: embedder,
		pool:     pool,
		maxChars: MaxInputChars,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest embeds a single document and appends it to the corpus.
// Returns the storage key of the new record.
//
// metadata is copied, not retained; a content fingerprint is folded in so
// the retention process can spot byte-identical re-ingestions.
func (p *Pipeline) Ingest(ctx context.Context, documentID, text string, metadata map[string]string) (string, error) {
	text = truncateInput(text, p.maxChars)

	if len(text) < MinInputChars {
		return "", fmt.Errorf("%w: %q has %d chars, need %d", ErrDocumentTooShort, documentID, len(text), MinInputChars)
	}

	vector, err := p.embedder.EmbedText(ctx, text)
	if err != nil {
		p.logger.Error("error generating embedding for document", "document", documentID, "err", err)
		return "", err
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["fingerprint"] = core.Fingerprint(text)

	record := &core.VectorRecord{
		DocumentID: documentID,
		Preview:    core.TruncatePreview(text),
		Embedding:  vector,
		Dimensions: len(vector),
		Metadata:   meta,
		CreatedAt:  time.Now().UTC(),
	}

	key, err := p.store.Put(ctx, record)
	if err != nil {
		p.logger.Error("error persisting record", "document", documentID, "err", err)
		return "", err
	}

	p.logger.Info("ingested document", "document", documentID, "key", key, "chars", len(text))
	return key, nil
}

// Document is one unit of work for batch ingestion.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// BatchResult reports the outcome of a batch ingestion.
type BatchResult struct {
	// Stored maps document ids to the storage keys written for them.
	Stored map[string]string

	// Failed maps document ids to the error that stopped them.
	Failed map[string]error
}

// IngestAll fans documents out over the worker pool. Each document is
// all-or-nothing on its own; per-document failures are logged and collected,
// never abort the batch.
func (p *Pipeline) IngestAll(ctx context.Context, docs []Document) (*BatchResult, error) {
	result := &BatchResult{
		Stored: make(map[string]string, len(docs)),
		Failed: make(map[string]error),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, doc := range docs {
		doc := doc
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()

			key, err := p.Ingest(ctx, doc.ID, doc.Text, doc.Metadata)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[doc.ID] = err
				return
			}
			result.Stored[doc.ID] = key
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			result.Failed[doc.ID] = err
			mu.Unlock()
		}
	}

	wg.Wait()
	return result, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// truncateInput caps text at max characters, appending the truncation marker
// when anything was cut. The cap counts runes, not bytes, so the embedding
// service never receives a string cut mid-character.
func truncateInput(text string, max int) string {
	if len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + truncationMarker
}
