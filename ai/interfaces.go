package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
//
// The embedding service imposes an input-size ceiling; truncation to that
// ceiling is the caller's responsibility, not the Embedder's.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error wrapping ErrEmbeddingService if generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error wrapping ErrEmbeddingService if any generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
