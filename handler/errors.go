package handler

import "errors"

var (
	// ErrSearcherRequired is returned when constructing a handler without a searcher.
	ErrSearcherRequired = errors.New("searcher is required")
)
