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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/blobstore"
	"github.com/poiesic/recall/blobstore/cached"
	"github.com/poiesic/recall/blobstore/local"
	"github.com/poiesic/recall/blobstore/minio"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/reembed"
	"github.com/poiesic/recall/search"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "recall",
		Usage: "Semantic document retrieval over object storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Embed documents and add them to the corpus",
				ArgsUsage: "FILE_OR_DIR [FILE_OR_DIR...]",
				Action:    ingestCommand,
				Flags:     append(storeFlags(), embeddingFlags()...),
			},
			{
				Name:      "search",
				Usage:     "Search the corpus for documents similar to a query",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(storeFlags(), append(embeddingFlags(),
					&cli.IntFlag{
						Name:    "max-results",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results to return",
						Value:   search.DefaultMaxResults,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity score for a result",
						Value: search.DefaultSimilarityThreshold,
					},
					&cli.BoolFlag{
						Name:  "keyword",
						Usage: "Use keyword matching instead of embeddings",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Emit results as JSON",
					},
				)...),
			},
			{
				Name:   "stats",
				Usage:  "Report record counts for the corpus",
				Action: statsCommand,
				Flags:  storeFlags(),
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all records with a new embedding model",
				Action: reembedCommand,
				Flags: append(storeFlags(), append(embeddingFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.IntFlag{
						Name:  "target-dimensions",
						Usage: "Skip records already at this vector width (0 reembeds everything)",
					},
				)...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "store",
			Usage: "Blob store backend (local, minio)",
			Value: "local",
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Aliases: []string{"d"},
			Usage:   "Directory for the local blob store",
			Value:   "./recall-data",
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "S3-compatible endpoint for the minio store",
			Value: "localhost:9000",
		},
		&cli.StringFlag{
			Name:    "bucket",
			Usage:   "Bucket name for the minio store",
			Value:   "recall",
			EnvVars: []string{"RECALL_BUCKET"},
		},
		&cli.StringFlag{
			Name:    "access-key",
			Usage:   "Access key for the minio store",
			EnvVars: []string{"RECALL_ACCESS_KEY"},
		},
		&cli.StringFlag{
			Name:    "secret-key",
			Usage:   "Secret key for the minio store",
			EnvVars: []string{"RECALL_SECRET_KEY"},
		},
		&cli.BoolFlag{
			Name:  "use-ssl",
			Usage: "Use TLS when talking to the minio endpoint",
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "Key prefix inside the bucket",
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "Enable a local read cache for fetched records (empty disables)",
		},
	}
}

func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.IntFlag{
			Name:  "dimensions",
			Usage: "Expected embedding vector width",
			Value: 1024,
		},
	}
}

// openBlobStore builds the blob store selected by the shared store flags.
// The returned closer is non-nil only when the store holds resources.
func openBlobStore(c *cli.Context) (blobstore.BlobStore, func() error, error) {
	var store blobstore.BlobStore
	var err error

	switch c.String("store") {
	case "local":
		store, err = local.NewStore(c.String("data-dir"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local store: %w", err)
		}
	case "minio":
		store, err = minio.Connect(minio.Options{
			Endpoint:   c.String("endpoint"),
			AccessKey:  c.String("access-key"),
			SecretKey:  c.String("secret-key"),
			UseSSL:     c.Bool("use-ssl"),
			Bucket:     c.String("bucket"),
			RootPrefix: c.String("prefix"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to minio: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q: must be local or minio", c.String("store"))
	}

	if cacheDir := c.String("cache-dir"); cacheDir != "" {
		cachedStore, err := cached.Open(cacheDir, store)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open record cache: %w", err)
		}
		return cachedStore, cachedStore.Close, nil
	}

	return store, nil, nil
}

func openCorpus(c *cli.Context) (*recall.Corpus, func() error, error) {
	blobs, closer, err := openBlobStore(c)
	if err != nil {
		return nil, nil, err
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithDimensions(c.Int("dimensions")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	corpus, err := recall.Open(blobs, recall.WithAIConfig(aiConfig))
	if err != nil {
		if closer != nil {
			closer()
		}
		return nil, nil, err
	}
	return corpus, closer, nil
}

// textExtensions are file types ingested as full text. Anything else is
// stored as a reference stub so it still turns up in keyword searches.
var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".rst":  true,
	".html": true,
	".csv":  true,
	".json": true,
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file or directory is required")
	}

	corpus, closer, err := openCorpus(c)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	pipeline, err := corpus.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	docs, err := collectDocuments(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(os.Stderr, "No documents found")
		return nil
	}

	result, err := pipeline.IngestAll(context.Background(), docs)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Ingested %d documents, %d failed\n", len(result.Stored), len(result.Failed))
	for id, ingestErr := range result.Failed {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", id, ingestErr)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d documents failed to ingest", len(result.Failed))
	}
	return nil
}

// collectDocuments walks the given paths and turns each regular file into an
// ingestion document. Text files contribute their content; other files get a
// descriptive stub.
func collectDocuments(paths []string) ([]ingestion.Document, error) {
	var docs []ingestion.Document

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			doc, err := buildDocument(root, info.Size())
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				if strings.HasPrefix(entry.Name(), ".") && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(entry.Name(), ".") {
				return nil
			}

			fileInfo, err := entry.Info()
			if err != nil {
				return err
			}
			doc, err := buildDocument(path, fileInfo.Size())
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return docs, nil
}

func buildDocument(path string, size int64) (ingestion.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	name := filepath.Base(path)

	var text string
	if textExtensions[ext] {
		content, err := os.ReadFile(path)
		if err != nil {
			return ingestion.Document{}, err
		}
		text = string(content)
	} else {
		text = fmt.Sprintf("Document file: %s (%s format, %d bytes)", name, strings.TrimPrefix(ext, "."), size)
	}

	return ingestion.Document{
		ID:   strings.TrimSuffix(name, ext),
		Text: text,
		Metadata: map[string]string{
			"source_key": path,
			"file_type":  strings.TrimPrefix(ext, "."),
			"file_size":  fmt.Sprintf("%d", size),
		},
	}, nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	corpus, closer, err := openCorpus(c)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	searcher, err := corpus.NewSearcher()
	if err != nil {
		return err
	}
	defer searcher.Release()

	req := &search.SearchRequest{
		Query:               query,
		MaxResults:          c.Int("max-results"),
		SimilarityThreshold: float32(c.Float64("threshold")),
	}

	ctx := context.Background()
	var results []*core.ScoredMatch
	if c.Bool("keyword") {
		results, err = searcher.KeywordSearch(ctx, req)
	} else {
		results, err = searcher.Search(ctx, req)
	}
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return printJSON(results, query)
	}

	if len(results) == 0 {
		fmt.Println("No matching documents")
		return nil
	}
	for i, match := range results {
		fmt.Printf("%d. %s (%.3f)\n", i+1, match.Record.DocumentID, match.Score)
		preview := match.Record.Preview
		if runes := []rune(preview); len(runes) > 160 {
			preview = string(runes[:160]) + "..."
		}
		fmt.Printf("   %s\n", preview)
	}
	return nil
}

func printJSON(results []*core.ScoredMatch, query string) error {
	type jsonResult struct {
		Document   string            `json:"document"`
		Similarity float64           `json:"similarity"`
		Text       string            `json:"text"`
		Metadata   map[string]string `json:"metadata,omitempty"`
		Timestamp  string            `json:"timestamp"`
		Key        string            `json:"key"`
	}

	out := make([]jsonResult, len(results))
	for i, match := range results {
		out[i] = jsonResult{
			Document:   match.Record.DocumentID,
			Similarity: float64(match.Score),
			Text:       match.Record.Preview,
			Metadata:   match.Record.Metadata,
			Timestamp:  match.Record.CreatedAt.UTC().Format(time.RFC3339),
			Key:        match.StorageKey,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"results":     out,
		"query":       query,
		"num_results": len(out),
	})
}

func statsCommand(c *cli.Context) error {
	corpus, closer, err := openCorpus(c)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	stats, err := corpus.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Records: %d\n", stats.Records)
	fmt.Printf("Documents: %d\n", len(stats.Documents))
	for id, count := range stats.Documents {
		fmt.Printf("  %s: %d\n", id, count)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	corpus, closer, err := openCorpus(c)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	config := &reembed.Config{
		BatchSize:        c.Int("batch-size"),
		ReportInterval:   c.Int("report-interval"),
		MaxRetries:       c.Int("max-retries"),
		RetryDelay:       c.Duration("retry-delay"),
		TargetDimensions: c.Int("target-dimensions"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reembedder, err := corpus.NewReembedder(config, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	report, err := reembedder.Run(context.Background())
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	if len(report.Failed) > 0 {
		fmt.Fprintf(os.Stderr, "%d records could not be reembedded:\n", len(report.Failed))
		for key, reembedErr := range report.Failed {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, reembedErr)
		}
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
