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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidRecord indicates a VectorRecord failed validation.
	ErrInvalidRecord = errors.New("invalid vector record")

	// ErrEmptyDocumentID indicates the DocumentID field is empty.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrEmptyEmbedding indicates the Embedding field is empty.
	ErrEmptyEmbedding = errors.New("embedding cannot be empty")

	// ErrDimensionMismatch indicates Dimensions disagrees with the embedding length.
	ErrDimensionMismatch = errors.New("dimensions do not match embedding length")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")
)
