package core

import (
	"time"
)

// PreviewMaxChars caps the human-readable excerpt stored with each record.
// The preview is display-only; scoring always uses the embedding.
const PreviewMaxChars = 1000

// DefaultDimensions is the output width of the production embedding model.
const DefaultDimensions = 1024

// VectorRecord is the atomic unit of the corpus: one embedded document,
// persisted as a single JSON object in the blob store.
//
// Records are immutable and append-only. Re-ingesting a document creates a
// new record under a fresh storage key; nothing is ever updated in place.
// The JSON field names are the on-wire corpus format and are shared with
// non-Go tooling, so they must not change.
type VectorRecord struct {
	DocumentID string            `json:"document"`
	Preview    string            `json:"text"`
	Embedding  []float32         `json:"embedding"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  time.Time         `json:"timestamp"`
	Dimensions int               `json:"dimensions"`
}

// ScoredMatch pairs a corpus record with its similarity score for a query.
type ScoredMatch struct {
	Record     *VectorRecord
	StorageKey string
	Score      float32
}

// TruncatePreview returns text capped at PreviewMaxChars characters.
// The cap counts runes, not bytes, so a cut never lands inside a
// multi-byte character.
func TruncatePreview(text string) string {
	if len(text) <= PreviewMaxChars {
		return text
	}
	runes := []rune(text)
	if len(runes) <= PreviewMaxChars {
		return text
	}
	return string(runes[:PreviewMaxChars])
}
