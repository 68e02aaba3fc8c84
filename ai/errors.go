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


package ai

import "errors"

var (
	// ErrEmbeddingService indicates the remote embedding call failed or
	// returned malformed data. Fatal for the single ingestion or query in
	// progress; no retries happen inside the Embedder. Retry policy is the
	// caller's concern.
	ErrEmbeddingService = errors.New("embedding service failure")

	// ErrEmptyHost indicates the embedding host URL is missing.
	ErrEmptyHost = errors.New("embedding host cannot be empty")

	// ErrEmptyModel indicates the embedding model identifier is missing.
	ErrEmptyModel = errors.New("embedding model cannot be empty")

	// ErrInvalidDimensions indicates a non-positive dimension count.
	ErrInvalidDimensions = errors.New("dimensions must be positive")
)
