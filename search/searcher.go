package search

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/similarity"
	"github.com/poiesic/recall/storage"
)

const (
	// DefaultMaxResults is used when a request leaves MaxResults unset.
	DefaultMaxResults = 5

	// DefaultSimilarityThreshold is the threshold applied by NewSearchRequest.
	DefaultSimilarityThreshold = 0.3
)

// SearchRequest carries the parameters of one search invocation.
type SearchRequest struct {
	// Query is the natural-language search text. Required.
	Query string

	// MaxResults caps the ranked result list. Values <= 0 fall back to
	// DefaultMaxResults.
	MaxResults int

	// SimilarityThreshold is the minimum cosine score a record needs to be
	// returned. The zero value is honored as-is; use NewSearchRequest for
	// the documented default.
	SimilarityThreshold float32
}

// NewSearchRequest builds a request with the documented defaults:
// MaxResults 5, SimilarityThreshold 0.3.
func NewSearchRequest(query string) *SearchRequest {
	return &SearchRequest{
		Query:               query,
		MaxResults:          DefaultMaxResults,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// Searcher answers queries by brute-force similarity scan over the corpus.
type Searcher struct {
	store    storage.RecordStore
	embedder ai.Embedder
	pool     *ants.Pool
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithPoolSize sets the worker pool size for the parallel fetch-and-score
// fan-out. Default is 2x runtime.NumCPU(); the scan is I/O bound.
func WithPoolSize(size int) Option {
	return func(s *Searcher) error {
		if size < 1 {
			size = 1
		}

		if s.pool != nil {
			s.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher over the given store and embedder.
func NewSearcher(store storage.RecordStore, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrRecordStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	pool, err := ants.NewPool(2 * runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	s := &Searcher{
		store:    store,
		embedder: embedder,
		pool:     pool,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}

	return s, nil
}

// Search embeds the query, scans the full corpus, and returns matches at or
// above the request threshold, ranked by descending similarity.
//
// An empty corpus or zero qualifying matches is a valid empty result, not an
// error. Records that fail to fetch, fail to parse, or carry an embedding of
// the wrong dimensionality are skipped; a single bad record never aborts the
// search. If ctx expires mid-scan, the ranking is computed from whatever was
// scored before the deadline.
func (s *Searcher) Search(ctx context.Context, req *SearchRequest) ([]*core.ScoredMatch, error) {
	return s.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor is Search with observation hooks for each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, req *SearchRequest, monitor SearchMonitor) ([]*core.ScoredMatch, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if req == nil || req.Query == "" {
		return nil, ErrEmptyQuery
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	monitor.Start(req.Query)

	queryVector, err := s.embedder.EmbedText(ctx, req.Query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", req.Query, "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(len(queryVector))

	keys, err := s.store.ListKeys(ctx)
	if err != nil {
		s.logger.Error("error listing corpus keys", "err", err)
		return nil, err
	}
	monitor.AfterListing(keys)

	outcomes := s.scanCorpus(ctx, keys, queryVector)

	// Collect in listing order so equal scores rank deterministically.
	matches := make([]*core.ScoredMatch, 0, len(outcomes))
	for i, outcome := range outcomes {
		if outcome.match != nil {
			monitor.RecordScored(keys[i], outcome.match.Score)
			matches = append(matches, outcome.match)
			continue
		}
		monitor.RecordSkipped(keys[i], outcome.skipReason)
	}

	results := similarity.RankAndFilter(matches, req.SimilarityThreshold, maxResults)
	monitor.Finish(results)

	s.logger.Debug("search complete",
		"query", req.Query, "corpus", len(keys), "scored", len(matches), "returned", len(results))
	return results, nil
}

// scanOutcome is the per-record result of the fetch-and-score fan-out:
// either a scored match or a skip with its reason.
type scanOutcome struct {
	match      *core.ScoredMatch
	skipReason string
}

// scanCorpus fetches and scores every key on the worker pool. The returned
// slice is index-aligned with keys. Workers observe ctx: once the deadline
// passes, remaining keys come back as skips rather than failing the scan.
func (s *Searcher) scanCorpus(ctx context.Context, keys []string, queryVector []float32) []scanOutcome {
	outcomes := make([]scanOutcome, len(keys))

	var wg sync.WaitGroup
	for i, key := range keys {
		i, key := i, key
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = s.scoreRecord(ctx, key, queryVector)
		})
		if err != nil {
			wg.Done()
			outcomes[i] = scanOutcome{skipReason: "worker pool: " + err.Error()}
		}
	}
	wg.Wait()

	return outcomes
}

func (s *Searcher) scoreRecord(ctx context.Context, key string, queryVector []float32) scanOutcome {
	if err := ctx.Err(); err != nil {
		return scanOutcome{skipReason: "deadline: " + err.Error()}
	}

	record, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("skipping unreadable record", "key", key, "err", err)
		return scanOutcome{skipReason: err.Error()}
	}

	// Embedding-model versions can drift over the corpus lifetime; records
	// of the wrong width are unscorable, not fatal.
	if len(record.Embedding) != len(queryVector) {
		s.logger.Debug("skipping record with mismatched dimensions",
			"key", key, "got", len(record.Embedding), "want", len(queryVector))
		return scanOutcome{skipReason: "dimension mismatch"}
	}

	return scanOutcome{match: &core.ScoredMatch{
		Record:     record,
		StorageKey: key,
		Score:      similarity.Cosine(queryVector, record.Embedding),
	}}
}

// Release releases the worker pool.
// The searcher should not be used after calling Release.
func (s *Searcher) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}
