package search

import "github.com/poiesic/recall/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
// Callbacks run sequentially on the calling goroutine.
type SearchMonitor interface {
	Start(query string)
	AfterQueryEmbedding(dimensions int)
	AfterListing(keys []string)
	RecordScored(key string, score float32)
	RecordSkipped(key string, reason string)
	Finish(results []*core.ScoredMatch)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                         {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)              {}
func (n *noopMonitor) AfterListing(_ []string)                {}
func (n *noopMonitor) RecordScored(_ string, _ float32)       {}
func (n *noopMonitor) RecordSkipped(_ string, _ string)       {}
func (n *noopMonitor) Finish(_ []*core.ScoredMatch)           {}
