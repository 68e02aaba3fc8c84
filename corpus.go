// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package recall

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/blobstore"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/reembed"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/storage"
)

// Corpus is the top-level handle on a document corpus: one blob store
// namespace of vector records plus the embedding service that feeds it.
type Corpus struct {
	blobs    blobstore.BlobStore
	store    storage.RecordStore
	embedder ai.Embedder
	logger   *slog.Logger
}

// CorpusOption configures a Corpus.
type CorpusOption func(*corpusOptions)

type corpusOptions struct {
	aiConfig  *ai.Config
	namespace string
	embedder  ai.Embedder
	logger    *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) CorpusOption {
	return func(o *corpusOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithNamespace sets the blob key prefix records live under.
// Default is storage.DefaultNamespace.
func WithNamespace(namespace string) CorpusOption {
	return func(o *corpusOptions) {
		o.namespace = namespace
	}
}

// WithEmbedder injects a pre-built embedder, bypassing the AI config.
// Used in tests and by callers with their own embedding client.
func WithEmbedder(embedder ai.Embedder) CorpusOption {
	return func(o *corpusOptions) {
		o.embedder = embedder
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) CorpusOption {
	return func(o *corpusOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open wires a corpus over the given blob store.
func Open(blobs blobstore.BlobStore, opts ...CorpusOption) (*Corpus, error) {
	options := &corpusOptions{
		aiConfig:  ai.DefaultConfig(),
		namespace: storage.DefaultNamespace,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	store, err := storage.NewRecordStore(blobs,
		storage.WithNamespace(options.namespace),
		storage.WithLogger(options.logger),
	)
	if err != nil {
		return nil, err
	}

	embedder := options.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	return &Corpus{
		blobs:    blobs,
		store:    store,
		embedder: embedder,
		logger:   options.logger,
	}, nil
}

// RecordStore exposes the underlying record store.
func (c *Corpus) RecordStore() storage.RecordStore {
	return c.store
}

// Embedder exposes the configured embedding client.
func (c *Corpus) Embedder() ai.Embedder {
	return c.embedder
}

// NewIngestionPipeline builds an ingestion pipeline over this corpus.
func (c *Corpus) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(c.logger)}, opts...)
	return ingestion.NewPipeline(c.store, c.embedder, opts...)
}

// NewSearcher builds a searcher over this corpus.
func (c *Corpus) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithLogger(c.logger)}, opts...)
	return search.NewSearcher(c.store, c.embedder, opts...)
}

// NewReembedder builds a reembedder over this corpus.
// progress: where to write progress output (typically os.Stderr)
func (c *Corpus) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(c.store, c.embedder, config, progress)
}

// Stats summarizes the corpus without downloading any records.
type Stats struct {
	// Records is the total number of stored records.
	Records int

	// Documents counts records per document id, recovered from storage keys.
	Documents map[string]int
}

// Stats enumerates the corpus and reports per-document record counts.
func (c *Corpus) Stats(ctx context.Context) (*Stats, error) {
	keys, err := c.store.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Records:   len(keys),
		Documents: make(map[string]int),
	}
	for _, key := range keys {
		if id := storage.DocumentIDFromKey(key, c.store.Namespace()); id != "" {
			stats.Documents[id]++
		}
	}
	return stats, nil
}
