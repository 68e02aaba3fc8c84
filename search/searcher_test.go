package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/blobstore"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axisEmbedder maps known texts to fixed 3-dimensional vectors so tests can
// control exact similarity scores.
func axisEmbedder(vectors map[string][]float32) *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		if v, ok := vectors[text]; ok {
			return v, nil
		}
		return []float32{0, 0, 1}, nil
	}
	return embedder
}

func newSearcher(t *testing.T, embedder *mock.MockEmbedder) (*Searcher, *blobstore.Memory, storage.RecordStore) {
	t.Helper()

	blobs := blobstore.NewMemory()
	store, err := storage.NewRecordStore(blobs)
	require.NoError(t, err)

	searcher, err := NewSearcher(store, embedder, WithPoolSize(4))
	require.NoError(t, err)
	t.Cleanup(searcher.Release)

	return searcher, blobs, store
}

func putRecord(t *testing.T, store storage.RecordStore, documentID string, embedding []float32) string {
	t.Helper()
	key, err := store.Put(context.Background(), &core.VectorRecord{
		DocumentID: documentID,
		Preview:    "preview of " + documentID,
		Embedding:  embedding,
		Dimensions: len(embedding),
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	return key
}

func resultIDs(results []*core.ScoredMatch) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Record.DocumentID
	}
	return out
}

func TestNewSearcher(t *testing.T) {
	blobs := blobstore.NewMemory()
	store, err := storage.NewRecordStore(blobs)
	require.NoError(t, err)

	t.Run("nil store", func(t *testing.T) {
		_, err := NewSearcher(nil, mock.NewMockEmbedder())
		assert.Equal(t, ErrRecordStoreRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(store, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(store, mock.NewMockEmbedder(), WithLogger(nil))
		require.NoError(t, err)
		defer searcher.Release()
		assert.NotNil(t, searcher)
	})
}

func TestSearchEmptyCorpus(t *testing.T) {
	searcher, _, _ := newSearcher(t, mock.NewMockEmbedder())

	results, err := searcher.Search(context.Background(), NewSearchRequest("anything"))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyQuery(t *testing.T) {
	searcher, _, _ := newSearcher(t, mock.NewMockEmbedder())

	_, err := searcher.Search(context.Background(), NewSearchRequest(""))
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = searcher.Search(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	embedder := axisEmbedder(map[string][]float32{
		"query": {1, 0, 0},
	})
	searcher, _, store := newSearcher(t, embedder)

	putRecord(t, store, "far", []float32{0, 1, 0})
	putRecord(t, store, "near", []float32{0.9, 0.1, 0})
	putRecord(t, store, "exact", []float32{1, 0, 0})

	results, err := searcher.Search(context.Background(), &SearchRequest{
		Query:               "query",
		MaxResults:          10,
		SimilarityThreshold: 0.3,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"exact", "near"}, resultIDs(results))
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchAppliesLimit(t *testing.T) {
	embedder := axisEmbedder(map[string][]float32{"query": {1, 0, 0}})
	searcher, _, store := newSearcher(t, embedder)

	for i := 0; i < 8; i++ {
		putRecord(t, store, fmt.Sprintf("doc-%d", i), []float32{1, 0, 0})
	}

	results, err := searcher.Search(context.Background(), &SearchRequest{
		Query:               "query",
		MaxResults:          3,
		SimilarityThreshold: 0.0,
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchDefaultsMaxResults(t *testing.T) {
	embedder := axisEmbedder(map[string][]float32{"query": {1, 0, 0}})
	searcher, _, store := newSearcher(t, embedder)

	for i := 0; i < 10; i++ {
		putRecord(t, store, fmt.Sprintf("doc-%d", i), []float32{1, 0, 0})
	}

	results, err := searcher.Search(context.Background(), &SearchRequest{Query: "query"})
	require.NoError(t, err)
	assert.Len(t, results, DefaultMaxResults)
}

func TestSearchThresholdMonotonicity(t *testing.T) {
	embedder := axisEmbedder(map[string][]float32{"query": {1, 0, 0}})
	searcher, _, store := newSearcher(t, embedder)

	putRecord(t, store, "a", []float32{1, 0, 0})
	putRecord(t, store, "b", []float32{0.8, 0.6, 0})
	putRecord(t, store, "c", []float32{0.5, 0.866, 0})
	putRecord(t, store, "d", []float32{0, 1, 0})

	ctx := context.Background()
	loose, err := searcher.Search(ctx, &SearchRequest{Query: "query", MaxResults: 10, SimilarityThreshold: 0.3})
	require.NoError(t, err)
	tight, err := searcher.Search(ctx, &SearchRequest{Query: "query", MaxResults: 10, SimilarityThreshold: 0.7})
	require.NoError(t, err)

	looseIDs := resultIDs(loose)
	for _, id := range resultIDs(tight) {
		assert.Contains(t, looseIDs, id)
	}
	assert.Less(t, len(tight), len(loose))
}

func TestSearchDeterministicTies(t *testing.T) {
	embedder := axisEmbedder(map[string][]float32{"query": {1, 0, 0}})
	searcher, _, store := newSearcher(t, embedder)

	// Identical similarity for every record; enumeration order (sorted keys
	// in the memory store) must decide the ranking.
	putRecord(t, store, "tie-c", []float32{2, 0, 0})
	putRecord(t, store, "tie-a", []float32{1, 0, 0})
	putRecord(t, store, "tie-b", []float32{3, 0, 0})

	ctx := context.Background()
	first, err := searcher.Search(ctx, &SearchRequest{Query: "query", MaxResults: 10, SimilarityThreshold: 0.3})
	require.NoError(t, err)

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	wantOrder := make([]string, len(keys))
	for i, key := range keys {
		wantOrder[i] = storage.DocumentIDFromKey(key, store.Namespace())
	}
	assert.Equal(t, wantOrder, resultIDs(first))

	// Repeated searches return the identical ranking.
	for i := 0; i < 5; i++ {
		again, err := searcher.Search(ctx, &SearchRequest{Query: "query", MaxResults: 10, SimilarityThreshold: 0.3})
		require.NoError(t, err)
		assert.Equal(t, resultIDs(first), resultIDs(again))
	}
}

func TestSearchSkipsCorruptRecord(t *testing.T) {
	embedder := axisEmbedder(map[string][]float32{"query": {1, 0, 0}})
	searcher, blobs, store := newSearcher(t, embedder)

	putRecord(t, store, "good-1", []float32{1, 0, 0})
	putRecord(t, store, "good-2", []float32{0.9, 0.1, 0})
	require.NoError(t, blobs.Put(context.Background(), "vectors/corrupt_x.json", []byte("{truncated"), "", nil))

	results, err := searcher.Search(context.Background(), &SearchRequest{
		Query: "query", MaxResults: 10, SimilarityThreshold: 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"good-1", "good-2"}, resultIDs(results))
}

func TestSearchSkipsDimensionMismatch(t *testing.T) {
	embedder := axisEmbedder(map[string][]float32{"query": {1, 0, 0}})
	searcher, _, store := newSearcher(t, embedder)

	putRecord(t, store, "current-model", []float32{1, 0, 0})
	putRecord(t, store, "old-model", []float32{1, 0, 0, 0, 0})

	results, err := searcher.Search(context.Background(), &SearchRequest{
		Query: "query", MaxResults: 10, SimilarityThreshold: 0.0,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"current-model"}, resultIDs(results))
}

func TestSearchEmbeddingFailureFailsFast(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	wantErr := errors.New("service unavailable")
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, wantErr
	}
	searcher, _, store := newSearcher(t, embedder)
	putRecord(t, store, "doc", []float32{1, 0, 0})

	_, err := searcher.Search(context.Background(), NewSearchRequest("query"))
	assert.ErrorIs(t, err, wantErr)
}

// cancelingStore cancels a context after a fixed number of record fetches,
// simulating a deadline expiring partway through a corpus scan.
type cancelingStore struct {
	storage.RecordStore
	cancel    context.CancelFunc
	remaining atomic.Int32
}

func (s *cancelingStore) Get(ctx context.Context, key string) (*core.VectorRecord, error) {
	record, err := s.RecordStore.Get(ctx, key)
	if s.remaining.Add(-1) == 0 {
		s.cancel()
	}
	return record, err
}

func TestSearchExpiredContextReturnsPartialRanking(t *testing.T) {
	embedder := axisEmbedder(map[string][]float32{"query": {1, 0, 0}})

	blobs := blobstore.NewMemory()
	inner, err := storage.NewRecordStore(blobs)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		key, putErr := inner.Put(context.Background(), &core.VectorRecord{
			DocumentID: fmt.Sprintf("doc-%d", i),
			Preview:    "preview",
			Embedding:  []float32{1, 0, 0},
			Dimensions: 3,
			CreatedAt:  time.Now().UTC(),
		})
		require.NoError(t, putErr)
		require.NotEmpty(t, key)
	}

	// The context expires after the first record is fetched and scored. A
	// single worker scans in listing order, so exactly one record makes it
	// into the ranking and the rest are skipped, without failing the search.
	ctx, cancel := context.WithCancel(context.Background())
	store := &cancelingStore{RecordStore: inner, cancel: cancel}
	store.remaining.Store(1)

	searcher, err := NewSearcher(store, embedder, WithPoolSize(1))
	require.NoError(t, err)
	defer searcher.Release()

	var scored, skipped int
	monitor := &funcMonitor{
		recordScored:  func(string, float32) { scored++ },
		recordSkipped: func(string, string) { skipped++ },
	}

	results, err := searcher.SearchWithMonitor(ctx, &SearchRequest{
		Query: "query", MaxResults: 10, SimilarityThreshold: 0.0,
	}, monitor)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "doc-0", results[0].Record.DocumentID)
	assert.Equal(t, 1, scored)
	assert.Equal(t, 4, skipped)
}

func TestSearchMonitorCallbacks(t *testing.T) {
	embedder := axisEmbedder(map[string][]float32{"query": {1, 0, 0}})
	searcher, blobs, store := newSearcher(t, embedder)

	putRecord(t, store, "good", []float32{1, 0, 0})
	require.NoError(t, blobs.Put(context.Background(), "vectors/bad_x.json", []byte("oops"), "", nil))

	var scored, skipped int
	var finished []*core.ScoredMatch
	monitor := &funcMonitor{
		recordScored:  func(string, float32) { scored++ },
		recordSkipped: func(string, string) { skipped++ },
		finish:        func(results []*core.ScoredMatch) { finished = results },
	}

	results, err := searcher.SearchWithMonitor(context.Background(), &SearchRequest{
		Query: "query", MaxResults: 10, SimilarityThreshold: 0.0,
	}, monitor)
	require.NoError(t, err)

	assert.Equal(t, 1, scored)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, results, finished)
}

func TestIngestThenSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	embedder := mock.NewMockEmbedder()

	blobs := blobstore.NewMemory()
	store, err := storage.NewRecordStore(blobs)
	require.NoError(t, err)

	pipeline, err := ingestion.NewPipeline(store, embedder)
	require.NoError(t, err)
	defer pipeline.Release()

	searcher, err := NewSearcher(store, embedder)
	require.NoError(t, err)
	defer searcher.Release()

	text := "Cloud migration proposal for Acme Corp"
	_, err = pipeline.Ingest(ctx, "doc-1", text, nil)
	require.NoError(t, err)
	_, err = pipeline.Ingest(ctx, "doc-2", "Catering menu for the summer offsite", nil)
	require.NoError(t, err)

	// Searching the exact stored text must return its document at the top
	// with a similarity of 1 against the deterministic mock embedder.
	results, err := searcher.Search(ctx, NewSearchRequest(text))
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc-1", results[0].Record.DocumentID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.GreaterOrEqual(t, results[0].Score, float32(DefaultSimilarityThreshold))
}

// funcMonitor adapts functions to the SearchMonitor interface.
type funcMonitor struct {
	start               func(string)
	afterQueryEmbedding func(int)
	afterListing        func([]string)
	recordScored        func(string, float32)
	recordSkipped       func(string, string)
	finish              func([]*core.ScoredMatch)
}

var _ SearchMonitor = (*funcMonitor)(nil)

func (m *funcMonitor) Start(query string) {
	if m.start != nil {
		m.start(query)
	}
}

func (m *funcMonitor) AfterQueryEmbedding(dims int) {
	if m.afterQueryEmbedding != nil {
		m.afterQueryEmbedding(dims)
	}
}

func (m *funcMonitor) AfterListing(keys []string) {
	if m.afterListing != nil {
		m.afterListing(keys)
	}
}

func (m *funcMonitor) RecordScored(key string, score float32) {
	if m.recordScored != nil {
		m.recordScored(key, score)
	}
}

func (m *funcMonitor) RecordSkipped(key, reason string) {
	if m.recordSkipped != nil {
		m.recordSkipped(key, reason)
	}
}

func (m *funcMonitor) Finish(results []*core.ScoredMatch) {
	if m.finish != nil {
		m.finish(results)
	}
}
