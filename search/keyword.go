package search

import (
	"context"
	"strings"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/similarity"
)

// Stop words to filter out of queries and previews before matching
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// KeywordSearch is the no-embedding fallback strategy: records are scored by
// the fraction of filtered query words found in their preview text or
// document id. It shares the ranking path with semantic search but never
// calls the embedding service, so it keeps working when that service is down.
func (s *Searcher) KeywordSearch(ctx context.Context, req *SearchRequest) ([]*core.ScoredMatch, error) {
	if req == nil || req.Query == "" {
		return nil, ErrEmptyQuery
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	queryWords := tokenizeAndFilter(req.Query)
	if len(queryWords) == 0 {
		return []*core.ScoredMatch{}, nil
	}

	keys, err := s.store.ListKeys(ctx)
	if err != nil {
		s.logger.Error("error listing corpus keys", "err", err)
		return nil, err
	}

	matches := make([]*core.ScoredMatch, 0, len(keys))
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}

		record, err := s.store.Get(ctx, key)
		if err != nil {
			s.logger.Warn("skipping unreadable record", "key", key, "err", err)
			continue
		}

		score := keywordScore(record, queryWords)
		if score > 0 {
			matches = append(matches, &core.ScoredMatch{
				Record:     record,
				StorageKey: key,
				Score:      score,
			})
		}
	}

	return similarity.RankAndFilter(matches, req.SimilarityThreshold, maxResults), nil
}

// keywordScore returns the fraction of query words present in the record's
// preview or document id.
func keywordScore(record *core.VectorRecord, queryWords []string) float32 {
	docWords := tokenizeAndFilter(record.Preview + " " + record.DocumentID)
	docWordSet := make(map[string]bool, len(docWords))
	for _, word := range docWords {
		docWordSet[word] = true
	}

	matched := 0
	for _, word := range queryWords {
		if docWordSet[word] {
			matched++
		}
	}
	return float32(matched) / float32(len(queryWords))
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))

		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}
