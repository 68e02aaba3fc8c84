package similarity

import (
	"sort"

	"github.com/poiesic/recall/core"
)

// RankAndFilter retains candidates scoring at or above threshold, sorts them
// by descending score, and truncates to limit. A negative limit means no cap.
//
// The sort is stable: candidates with equal scores keep the relative order
// they were supplied in, so rankings are deterministic for a fixed corpus
// enumeration order.
func RankAndFilter(candidates []*core.ScoredMatch, threshold float32, limit int) []*core.ScoredMatch {
	kept := make([]*core.ScoredMatch, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate != nil && candidate.Score >= threshold {
			kept = append(kept, candidate)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})

	if limit >= 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
