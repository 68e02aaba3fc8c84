// Package reembed migrates an existing corpus to a new or updated embedding
// model.
//
// Replacement records are embedded from each record's stored preview text, so
// documents longer than the preview window are reembedded from a prefix of
// their content. The corpus is append-only: superseded records remain in place
// and fall out of semantic search results once their vector width no longer
// matches query embeddings.
//
// The package supports batch processing, progress tracking, retry logic with
// exponential backoff, and vector normalization for cosine similarity.
package reembed
