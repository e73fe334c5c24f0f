package model

import (
	"context"
	"time"
)

// Well-known RawRecord keys populated by source adapters.
const (
	FieldTitle          = "title"
	FieldLink           = "link"
	FieldDescription    = "description"
	FieldLocation       = "location"
	FieldEmploymentType = "employment_type"
	FieldBaseURL        = "base_url" // resolves relative links
)

// RawRecord is the source-specific shape returned by a fetch. Adapters map
// whatever they parse onto the Field* keys; anything else is carried along
// and ignored by the pipeline.
type RawRecord map[string]string

// Get returns the value for key, or "" when absent.
func (r RawRecord) Get(key string) string {
	return r[key]
}

// Posting is the canonical, deduplication-ready representation of one job
// opening. Link is the identity key across all sources.
type Posting struct {
	Title          string
	Link           string
	Description    string
	Location       string
	EmploymentType string
	Source         string    // source tag, e.g. "greenhouse" or a site hostname
	Profile        string    // name of the search profile that found it
	DiscoveredAt   time.Time // our clock
}

// SeenLinkRecord is the persisted marker for a link that has been accepted.
type SeenLinkRecord struct {
	Link        string
	FirstSeenAt time.Time
	DeliveredAt *time.Time
}

// SearchProfile is one configured unit of search work.
type SearchProfile struct {
	Name         string
	Query        string
	Location     string
	Keywords     []string          // allow-list, case-insensitive substring
	DenyKeywords []string          // any match rejects the posting
	Filters      map[string]string // passed through to sources
}

// Query is what a source receives for one (profile, source) fetch.
type Query struct {
	Text     string
	Location string
	Filters  map[string]string
}

// QueryFor builds the fetch query for a profile.
func QueryFor(p SearchProfile) Query {
	return Query{Text: p.Query, Location: p.Location, Filters: p.Filters}
}

// Source fetches raw postings for a query (HTML board, ATS, or search API).
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]RawRecord, error)
}

// LinkStore is the durability boundary for delivered links.
type LinkStore interface {
	// Exists reports whether link has been marked delivered.
	Exists(ctx context.Context, link string) (bool, error)
	// MarkDelivered upserts the delivered marker. Re-marking is a no-op.
	MarkDelivered(ctx context.Context, link string, at time.Time) error
	// Cleanup deletes records first seen before now-olderThan.
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
	Close() error
}

// Notifier delivers a batch of postings. The channel owns rendering.
type Notifier interface {
	Notify(ctx context.Context, postings []Posting) error
}
