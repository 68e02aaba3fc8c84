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


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of records to embed in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// TargetDimensions, when positive, skips records already at this width.
	// Zero reembeds every record regardless of its current width.
	TargetDimensions int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Report summarizes a completed reembedding run.
type Report struct {
	// Total is the number of record keys enumerated.
	Total int

	// Reembedded is the number of new records appended.
	Reembedded int

	// Skipped is the number of records already at the target width.
	Skipped int

	// Failed maps storage keys to the error that stopped them.
	Failed map[string]error
}

// Reembedder migrates a corpus to a new embedding model by appending a fresh
// record for each existing one, embedded from its stored preview text.
//
// The corpus is append-only, so superseded records are not removed; semantic
// search ignores them once their width no longer matches query embeddings.
type Reembedder struct {
	store    storage.RecordStore
	embedder ai.Embedder
	config   *Config
	progress io.Writer
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(store storage.RecordStore, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if store == nil {
		return nil, ErrRecordStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		store:    store,
		embedder: embedder,
		config:   config,
		progress: progress,
	}, nil
}

// Run executes the reembedding operation over every record in the corpus.
// Per-record read failures are collected in the report, not fatal; an
// embedding-service failure that survives all retries aborts the run.
func (r *Reembedder) Run(ctx context.Context) (*Report, error) {
	keys, err := r.store.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	report := &Report{
		Total:  len(keys),
		Failed: make(map[string]error),
	}

	if len(keys) == 0 {
		fmt.Fprintf(r.progress, "No records found in corpus (0 records)\n")
		return report, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d records (batch size: %d)\n",
		len(keys), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(keys), r.config.ReportInterval)
	tracker.Start()

	processed := 0
	for start := 0; start < len(keys); start += r.config.BatchSize {
		end := start + r.config.BatchSize
		if end > len(keys) {
			end = len(keys)
		}

		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := r.processBatch(ctx, keys[start:end], report); err != nil {
			return report, err
		}

		processed += end - start
		tracker.Update(processed)
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Appended %d records, skipped %d, failed %d in %v\n",
		report.Reembedded, report.Skipped, len(report.Failed), elapsed.Round(time.Second))

	return report, nil
}

// processBatch fetches a batch of records, embeds their previews together, and
// appends the replacement records.
func (r *Reembedder) processBatch(ctx context.Context, keys []string, report *Report) error {
	sources := make([]*core.VectorRecord, 0, len(keys))
	sourceKeys := make([]string, 0, len(keys))

	for _, key := range keys {
		record, err := r.store.Get(ctx, key)
		if err != nil {
			report.Failed[key] = err
			continue
		}

		if r.config.TargetDimensions > 0 && len(record.Embedding) == r.config.TargetDimensions {
			report.Skipped++
			continue
		}

		sources = append(sources, record)
		sourceKeys = append(sourceKeys, key)
	}

	if len(sources) == 0 {
		return nil
	}

	texts := make([]string, len(sources))
	for i, record := range sources {
		texts[i] = record.Preview
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		embeddings, embedErr = r.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.config.MaxRetries, err)
	}

	if len(embeddings) != len(sources) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(sources), len(embeddings))
	}

	for i, source := range sources {
		meta := make(map[string]string, len(source.Metadata)+1)
		for k, v := range source.Metadata {
			meta[k] = v
		}
		meta["reembedded_from"] = sourceKeys[i]

		replacement := &core.VectorRecord{
			DocumentID: source.DocumentID,
			Preview:    source.Preview,
			Embedding:  NormalizeVector(embeddings[i]),
			Dimensions: len(embeddings[i]),
			Metadata:   meta,
			CreatedAt:  time.Now().UTC(),
		}

		if _, err := r.store.Put(ctx, replacement); err != nil {
			report.Failed[sourceKeys[i]] = err
			continue
		}
		report.Reembedded++
	}

	return nil
}
