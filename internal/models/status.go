package models

import "time"

// RebuildSummary describes one completed rebuild.
type RebuildSummary struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Pages     int           `json:"pages"`
	CacheHits int           `json:"cache_hits"`
	Enriched  int           `json:"enriched"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Error     string        `json:"error,omitempty"`
}

// IndexStatus is a point-in-time view of the index.
type IndexStatus struct {
	Initialized bool            `json:"initialized"`
	Rebuilding  bool            `json:"rebuilding"`
	PageCount   int             `json:"page_count"`
	LastRebuild *RebuildSummary `json:"last_rebuild,omitempty"`
}
