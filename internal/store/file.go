package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

var _ model.LinkStore = (*FileStore)(nil)

// FileStore keeps delivered links in a JSON file. The whole set is loaded on
// open and rewritten (temp file + rename) on every change.
type FileStore struct {
	path string

	mu      sync.Mutex
	records map[string]model.SeenLinkRecord
}

type fileRecord struct {
	Link        string     `json:"link"`
	FirstSeenAt time.Time  `json:"first_seen_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// NewFileStore loads path, creating an empty file if it does not exist.
// A legacy file holding a bare JSON array of links is accepted and every
// link in it is treated as delivered.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, records: make(map[string]model.SeenLinkRecord)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading link file %s: %w", path, err)
	}

	if err := s.decode(data); err != nil {
		return nil, fmt.Errorf("parsing link file %s: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) decode(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	var recs []fileRecord
	if err := json.Unmarshal(data, &recs); err == nil {
		for _, r := range recs {
			s.records[r.Link] = model.SeenLinkRecord{Link: r.Link, FirstSeenAt: r.FirstSeenAt, DeliveredAt: r.DeliveredAt}
		}
		return nil
	}

	var links []string
	if err := json.Unmarshal(data, &links); err != nil {
		return err
	}
	now := time.Now()
	for _, l := range links {
		s.records[l] = upsert(model.SeenLinkRecord{}, l, now)
	}
	return nil
}

func (s *FileStore) Exists(_ context.Context, link string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[link]
	return ok && rec.DeliveredAt != nil, nil
}

func (s *FileStore) MarkDelivered(_ context.Context, link string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.records[link]
	if had && prev.DeliveredAt != nil {
		return nil
	}
	s.records[link] = upsert(prev, link, at)
	if err := s.save(); err != nil {
		if had {
			s.records[link] = prev
		} else {
			delete(s.records, link)
		}
		return err
	}
	return nil
}

// Record returns the stored record for link, or nil if none exists.
func (s *FileStore) Record(_ context.Context, link string) (*model.SeenLinkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[link]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *FileStore) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := prune(s.records, time.Now().Add(-olderThan))
	if n == 0 {
		return 0, nil
	}
	if err := s.save(); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *FileStore) Close() error { return nil }

// save writes the full set. Callers hold s.mu.
func (s *FileStore) save() error {
	recs := make([]fileRecord, 0, len(s.records))
	for _, r := range s.records {
		recs = append(recs, fileRecord{Link: r.Link, FirstSeenAt: r.FirstSeenAt, DeliveredAt: r.DeliveredAt})
	}

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal link file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".links-*.json")
	if err != nil {
		return fmt.Errorf("create temp link file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp link file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp link file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace link file: %w", err)
	}
	return nil
}
