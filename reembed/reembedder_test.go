package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/blobstore"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCorpus(t *testing.T) (storage.RecordStore, *blobstore.Memory) {
	t.Helper()
	blobs := blobstore.NewMemory()
	store, err := storage.NewRecordStore(blobs)
	require.NoError(t, err)
	return store, blobs
}

func seedRecord(t *testing.T, store storage.RecordStore, documentID, preview string, dims int) string {
	t.Helper()
	embedding := make([]float32, dims)
	embedding[0] = 1
	key, err := store.Put(context.Background(), &core.VectorRecord{
		DocumentID: documentID,
		Preview:    preview,
		Embedding:  embedding,
		Dimensions: dims,
		Metadata:   map[string]string{"source": "seed"},
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	return key
}

func quickConfig() *Config {
	return &Config{
		BatchSize:      2,
		ReportInterval: 1,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}
}

func TestNewReembedder(t *testing.T) {
	store, _ := newCorpus(t)

	t.Run("nil store", func(t *testing.T) {
		_, err := NewReembedder(nil, mock.NewMockEmbedder(), nil, nil)
		assert.Equal(t, ErrRecordStoreRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewReembedder(store, nil, nil, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		r, err := NewReembedder(store, mock.NewMockEmbedder(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().BatchSize, r.config.BatchSize)
	})
}

func TestReembedderRun(t *testing.T) {
	ctx := context.Background()

	t.Run("empty corpus", func(t *testing.T) {
		store, _ := newCorpus(t)
		r, err := NewReembedder(store, mock.NewMockEmbedder(), quickConfig(), nil)
		require.NoError(t, err)

		report, err := r.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Total)
		assert.Equal(t, 0, report.Reembedded)
	})

	t.Run("appends a replacement per record", func(t *testing.T) {
		store, _ := newCorpus(t)
		oldKey := seedRecord(t, store, "doc-1", "first document text", 8)
		seedRecord(t, store, "doc-2", "second document text", 8)

		embedder := mock.NewMockEmbedder()
		embedder.Dimensions = 16

		r, err := NewReembedder(store, embedder, quickConfig(), nil)
		require.NoError(t, err)

		report, err := r.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Total)
		assert.Equal(t, 2, report.Reembedded)
		assert.Empty(t, report.Failed)

		keys, err := store.ListKeys(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 4, "old records stay, replacements are appended")

		// Find a replacement for doc-1 and check its provenance.
		var replacement *core.VectorRecord
		for _, key := range keys {
			record, err := store.Get(ctx, key)
			require.NoError(t, err)
			if record.DocumentID == "doc-1" && record.Metadata["reembedded_from"] != "" {
				replacement = record
			}
		}
		require.NotNil(t, replacement)
		assert.Equal(t, oldKey, replacement.Metadata["reembedded_from"])
		assert.Equal(t, "seed", replacement.Metadata["source"], "source metadata carried over")
		assert.Equal(t, "first document text", replacement.Preview)
		assert.Len(t, replacement.Embedding, 16)
	})

	t.Run("skips records already at target width", func(t *testing.T) {
		store, _ := newCorpus(t)
		seedRecord(t, store, "old", "embedded with the previous model", 8)
		seedRecord(t, store, "new", "embedded with the current model", 16)

		embedder := mock.NewMockEmbedder()
		embedder.Dimensions = 16

		config := quickConfig()
		config.TargetDimensions = 16

		r, err := NewReembedder(store, embedder, config, nil)
		require.NoError(t, err)

		report, err := r.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Reembedded)
		assert.Equal(t, 1, report.Skipped)

		keys, err := store.ListKeys(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 3)
	})

	t.Run("unreadable record is reported not fatal", func(t *testing.T) {
		store, blobs := newCorpus(t)
		seedRecord(t, store, "good", "a perfectly fine record", 8)
		require.NoError(t, blobs.Put(ctx, "vectors/bad_x.json", []byte("not json"), "", nil))

		r, err := NewReembedder(store, mock.NewMockEmbedder(), quickConfig(), nil)
		require.NoError(t, err)

		report, err := r.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Total)
		assert.Equal(t, 1, report.Reembedded)
		require.Len(t, report.Failed, 1)
		assert.Contains(t, report.Failed, "vectors/bad_x.json")
	})

	t.Run("embedding failure aborts after retries", func(t *testing.T) {
		store, _ := newCorpus(t)
		seedRecord(t, store, "doc", "some document text", 8)

		attempts := 0
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			attempts++
			return nil, errors.New("service down")
		}

		r, err := NewReembedder(store, embedder, quickConfig(), nil)
		require.NoError(t, err)

		_, err = r.Run(ctx)
		require.Error(t, err)
		assert.Equal(t, 2, attempts, "should retry up to MaxRetries")
	})

	t.Run("progress output", func(t *testing.T) {
		store, _ := newCorpus(t)
		seedRecord(t, store, "doc", "some document text", 8)

		var buf bytes.Buffer
		r, err := NewReembedder(store, mock.NewMockEmbedder(), quickConfig(), &buf)
		require.NoError(t, err)

		_, err = r.Run(ctx)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Starting reembedding of 1 records")
		assert.Contains(t, buf.String(), "Reembedding complete")
	})
}
