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


// Package storage persists the corpus as JSON blobs in a flat,
// namespace-prefixed key space.
//
// A namespaced key space over object storage, instead of a database, lets the
// corpus grow without schema migration at the cost of an O(n) listing per
// query. Corpus sizes are expected to stay in the thousands of documents, so
// the trade is acceptable.
//
// # Constructor Return Type Pattern
//
// Public constructors return the RecordStore interface rather than the
// concrete type, so callers never couple to the blob-backed implementation
// and tests can substitute fakes:
//
//	store, err := storage.NewRecordStore(blobs)
package storage
