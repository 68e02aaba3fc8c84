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

import (
	"fmt"
	"time"
)

// ValidateRecord validates a VectorRecord according to domain rules.
//
// Validation rules:
//   - DocumentID must not be empty
//   - Embedding must not be empty
//   - Dimensions must equal the embedding length
//   - CreatedAt must not be in the future
//
// NOT validated:
//   - Preview (may legitimately be empty for reference-only documents)
//   - Metadata (opaque to the engine)
func ValidateRecord(record *VectorRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyDocumentID)
	}

	if len(record.Embedding) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyEmbedding)
	}

	if record.Dimensions != 0 && record.Dimensions != len(record.Embedding) {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrDimensionMismatch)
	}

	if !IsValidTimestamp(record.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrInvalidTimestamp)
	}

	return nil
}

// IsValidTimestamp reports whether ts is usable as a record creation time.
// A small allowance covers clock skew between writers.
func IsValidTimestamp(ts time.Time) bool {
	if ts.IsZero() {
		return true
	}
	return !ts.After(time.Now().Add(5 * time.Minute))
}
