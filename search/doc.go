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


// Package search answers queries over the corpus.
//
// The primary path is a brute-force semantic scan: embed the query, list
// every record key, fetch and score each record in parallel, then rank and
// threshold. There is no precomputed index; the corpus is listed fresh on
// every query, so a search running concurrently with an ingestion may or may
// not see the record being added. Partial-failure tolerance is first-class:
// unreadable or mismatched records are skipped with a diagnostic log, and a
// context deadline mid-scan degrades to ranking what was scored so far.
//
// KeywordSearch provides the embedding-free fallback strategy.
package search
