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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record no longer exists.
	// During a query scan this is tolerated as a race against concurrent
	// deletion, not treated as fatal.
	ErrNotFound = errors.New("record not found")

	// ErrSerializationFailed indicates a record could not be encoded or
	// decoded. A single undecodable record is skipped at query time.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrStoreUnavailable indicates the underlying blob store failed a
	// listing or write. Fatal for the operation in progress.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrBlobStoreRequired is returned when a blob store is not provided.
	ErrBlobStoreRequired = errors.New("blob store required")
)
