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


// Package blobstore abstracts the object storage that backs the corpus.
//
// The engine needs only three operations: put a blob, get a blob, and list
// every key under a prefix. Everything else about the corpus (key scheme,
// serialization, namespace) lives one layer up in package storage, so any
// flat key-value blob service can serve as a backend:
//
//   - blobstore.Memory for tests and scratch use
//   - blobstore/local for a development filesystem
//   - blobstore/minio for MinIO and S3-compatible production storage
//   - blobstore/cached to layer a BadgerDB read-through cache over any of them
package blobstore
