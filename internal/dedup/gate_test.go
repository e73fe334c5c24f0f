package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/store"
)

// flakyStore fails Exists or MarkDelivered on demand.
type flakyStore struct {
	*store.MemoryStore
	existsErr error
	failMarks map[string]int // link -> remaining failures
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: store.NewMemoryStore(), failMarks: make(map[string]int)}
}

func (s *flakyStore) Exists(ctx context.Context, link string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.MemoryStore.Exists(ctx, link)
}

func (s *flakyStore) MarkDelivered(ctx context.Context, link string, at time.Time) error {
	if s.failMarks[link] > 0 {
		s.failMarks[link]--
		return errors.New("connection reset")
	}
	return s.MemoryStore.MarkDelivered(ctx, link, at)
}

func TestIsNew_DeliveredLinkIsNotNew(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	s.MarkDelivered(ctx, "https://example.com/old", time.Now())

	g := New(s)
	isNew, err := g.IsNew(ctx, "https://example.com/old")
	if err != nil {
		t.Fatalf("IsNew: %v", err)
	}
	if isNew {
		t.Error("delivered link reported as new")
	}

	isNew, err = g.IsNew(ctx, "https://example.com/fresh")
	if err != nil {
		t.Fatalf("IsNew: %v", err)
	}
	if !isNew {
		t.Error("unknown link reported as not new")
	}
}

func TestIsNew_StagedLinkIsNotNew(t *testing.T) {
	g := New(store.NewMemoryStore())
	g.Stage("https://example.com/1")

	isNew, err := g.IsNew(context.Background(), "https://example.com/1")
	if err != nil {
		t.Fatalf("IsNew: %v", err)
	}
	if isNew {
		t.Error("link staged earlier in the cycle reported as new")
	}
}

func TestIsNew_StoreErrorIsStoreUnavailable(t *testing.T) {
	s := newFlakyStore()
	s.existsErr = errors.New("dial tcp: connection refused")

	_, err := New(s).IsNew(context.Background(), "https://example.com/1")
	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("IsNew error = %v, want ErrStoreUnavailable", err)
	}
}

func TestStage_DoesNotWriteStore(t *testing.T) {
	s := store.NewMemoryStore()
	g := New(s)
	g.Stage("https://example.com/1")
	g.Stage("https://example.com/1")

	if s.Len() != 0 {
		t.Errorf("store has %d records after Stage, want 0", s.Len())
	}
	if got := g.Pending(); len(got) != 1 {
		t.Errorf("Pending() = %v, want one link", got)
	}
}

func TestCommit_MarksOnlyStagedLinks(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	g := New(s)
	g.Stage("https://example.com/1")
	g.Stage("https://example.com/2")

	if err := g.Commit(ctx, []string{"https://example.com/1", "https://example.com/unstaged"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if ok, _ := s.Exists(ctx, "https://example.com/1"); !ok {
		t.Error("committed link not marked delivered")
	}
	if ok, _ := s.Exists(ctx, "https://example.com/2"); ok {
		t.Error("staged but uncommitted link marked delivered")
	}
	if ok, _ := s.Exists(ctx, "https://example.com/unstaged"); ok {
		t.Error("unstaged link marked delivered")
	}
	if got := g.Pending(); len(got) != 1 || got[0] != "https://example.com/2" {
		t.Errorf("Pending() = %v, want [https://example.com/2]", got)
	}
}

func TestCommit_TwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	link := "https://example.com/1"

	g := New(s)
	g.Stage(link)
	if err := g.Commit(ctx, []string{link}); err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	first, _ := s.Record(ctx, link)

	g2 := New(s)
	g2.now = func() time.Time { return time.Now().Add(time.Hour) }
	g2.Stage(link)
	if err := g2.Commit(ctx, []string{link}); err != nil {
		t.Fatalf("second Commit: %v", err)
	}
	second, _ := s.Record(ctx, link)

	if s.Len() != 1 {
		t.Errorf("store has %d records, want 1", s.Len())
	}
	if !first.DeliveredAt.Equal(*second.DeliveredAt) {
		t.Errorf("DeliveredAt changed from %v to %v", first.DeliveredAt, second.DeliveredAt)
	}
}

func TestCommit_PartialFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	s.failMarks["https://example.com/2"] = 1
	links := []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"}

	g := New(s)
	for _, l := range links {
		g.Stage(l)
	}

	err := g.Commit(ctx, links)
	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Fatalf("Commit error = %v, want ErrStoreUnavailable", err)
	}
	if got := g.Pending(); len(got) != 2 {
		t.Fatalf("Pending() after partial commit = %v, want 2 links", got)
	}

	if err := g.Commit(ctx, links); err != nil {
		t.Fatalf("retry Commit: %v", err)
	}
	for _, l := range links {
		if ok, _ := s.Exists(ctx, l); !ok {
			t.Errorf("%s not delivered after retry", l)
		}
	}
	if got := g.Pending(); len(got) != 0 {
		t.Errorf("Pending() after retry = %v, want empty", got)
	}
}

func TestDiscard_DropsStages(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	g := New(s)
	g.Stage("https://example.com/1")
	g.Discard()

	if got := g.Pending(); len(got) != 0 {
		t.Errorf("Pending() after Discard = %v", got)
	}
	if isNew, _ := g.IsNew(ctx, "https://example.com/1"); !isNew {
		t.Error("discarded link should be new again")
	}
	if s.Len() != 0 {
		t.Error("Discard wrote to the store")
	}
}

func TestUnstage_DropsOnlyNamedLinks(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	g := New(s)
	g.Stage("https://example.com/1")
	g.Stage("https://example.com/2")
	g.Stage("https://example.com/3")

	g.Unstage("https://example.com/1", "https://example.com/3", "https://example.com/never")

	got := g.Pending()
	if len(got) != 1 || got[0] != "https://example.com/2" {
		t.Errorf("Pending() = %v, want [https://example.com/2]", got)
	}
	if isNew, _ := g.IsNew(ctx, "https://example.com/1"); !isNew {
		t.Error("unstaged link should be new again")
	}
	if s.Len() != 0 {
		t.Error("Unstage wrote to the store")
	}
}
