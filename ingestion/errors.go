package ingestion

import "errors"

var (
	// ErrRecordStoreRequired is returned when a record store is not provided.
	ErrRecordStoreRequired = errors.New("record store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrDocumentTooShort indicates the document text is below the minimal
	// meaningful length. The document is rejected before any embedding call
	// so the corpus never accumulates near-empty records.
	ErrDocumentTooShort = errors.New("document text too short")
)
