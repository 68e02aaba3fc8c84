package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrRecordStoreRequired is returned when constructing a reembedder without a store.
	ErrRecordStoreRequired = errors.New("record store is required")

	// ErrEmbedderRequired is returned when constructing a reembedder without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)
