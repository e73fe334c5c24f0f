package store

import (
	"context"
	"sync"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

var _ model.LinkStore = (*MemoryStore)(nil)

// MemoryStore keeps delivered links in a map. State is lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]model.SeenLinkRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.SeenLinkRecord)}
}

func (s *MemoryStore) Exists(_ context.Context, link string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[link]
	return ok && rec.DeliveredAt != nil, nil
}

func (s *MemoryStore) MarkDelivered(_ context.Context, link string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[link] = upsert(s.records[link], link, at)
	return nil
}

// Record returns the stored record for link, or nil if none exists.
func (s *MemoryStore) Record(_ context.Context, link string) (*model.SeenLinkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[link]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *MemoryStore) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return prune(s.records, time.Now().Add(-olderThan)), nil
}

func (s *MemoryStore) Close() error { return nil }

// upsert applies MarkDelivered semantics to an existing (possibly zero) record:
// first_seen_at and delivered_at are set once and never changed afterwards.
func upsert(rec model.SeenLinkRecord, link string, at time.Time) model.SeenLinkRecord {
	if rec.Link == "" {
		rec = model.SeenLinkRecord{Link: link, FirstSeenAt: at}
	}
	if rec.DeliveredAt == nil {
		t := at
		rec.DeliveredAt = &t
	}
	return rec
}

// prune deletes records first seen before cutoff and returns how many.
func prune(records map[string]model.SeenLinkRecord, cutoff time.Time) int64 {
	var n int64
	for link, rec := range records {
		if rec.FirstSeenAt.Before(cutoff) {
			delete(records, link)
			n++
		}
	}
	return n
}
