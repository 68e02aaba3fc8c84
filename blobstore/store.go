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


package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations must return an error that satisfies
// errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blob not found")

// BlobStore is the corpus persistence boundary: a flat, namespace-prefixed
// key space of immutable blobs.
//
// Implementations must be thread-safe. List must page through the underlying
// store fully so callers always see the complete key set; result ordering is
// implementation-defined and callers must not depend on it.
type BlobStore interface {
	// Put writes a blob under key. Writing the same key twice is allowed;
	// the last write wins. contentType and metadata are passed through to
	// stores that support them and ignored elsewhere.
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error

	// Get returns the blob stored under key.
	// Returns an error satisfying errors.Is(err, ErrNotFound) if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns every key starting with prefix, with no length cap.
	List(ctx context.Context, prefix string) ([]string, error)
}
