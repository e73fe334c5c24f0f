package model

import (
	"fmt"
	"time"
)

// SourceKey identifies one (profile, source) fetch within a cycle.
type SourceKey struct {
	Profile string
	Source  string
}

func (k SourceKey) String() string {
	return fmt.Sprintf("%s/%s", k.Profile, k.Source)
}

// CycleResult summarizes one discovery cycle. Not persisted.
type CycleResult struct {
	ID           string
	Batch        []Posting
	SourceErrors map[SourceKey]error
	Fetched      int // raw records returned by sources
	Malformed    int
	Irrelevant   int
	Duplicates   int
	Delivered    bool  // batch was sent and committed
	Err          error // cycle-level failure, nil on success
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the cycle took.
func (r CycleResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Links returns the batch links in order.
func (r CycleResult) Links() []string {
	links := make([]string, len(r.Batch))
	for i, p := range r.Batch {
		links[i] = p.Link
	}
	return links
}
