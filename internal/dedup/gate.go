// Package dedup decides whether a posting link is new and records delivered
// links once a batch has been confirmed sent.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// Gate is scoped to one cycle. It answers "is this link new?" against the
// store plus the links already staged in the cycle, and commits staged links
// after delivery. Only Commit writes to the store.
type Gate struct {
	store model.LinkStore
	now   func() time.Time

	mu      sync.Mutex
	pending map[string]bool
	order   []string
}

// New returns an empty gate backed by store.
func New(store model.LinkStore) *Gate {
	return &Gate{
		store:   store,
		now:     time.Now,
		pending: make(map[string]bool),
	}
}

// IsNew returns true iff link is not staged in this cycle and the store has
// no delivered record for it. Store failures wrap model.ErrStoreUnavailable.
func (g *Gate) IsNew(ctx context.Context, link string) (bool, error) {
	g.mu.Lock()
	staged := g.pending[link]
	g.mu.Unlock()
	if staged {
		return false, nil
	}

	exists, err := g.store.Exists(ctx, link)
	if err != nil {
		return false, fmt.Errorf("%w: checking %s: %v", model.ErrStoreUnavailable, link, err)
	}
	return !exists, nil
}

// Stage marks link as provisionally accepted for this cycle. Staging is
// in-memory only.
func (g *Gate) Stage(link string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending[link] {
		return
	}
	g.pending[link] = true
	g.order = append(g.order, link)
}

// Pending returns the staged links in staging order.
func (g *Gate) Pending() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.order...)
}

// Commit marks every staged link in links as delivered. Links that were never
// staged are ignored. Committed links leave the pending set, so a Commit that
// fails partway can be retried with the same links; the store upsert makes
// re-marking a no-op.
func (g *Gate) Commit(ctx context.Context, links []string) error {
	at := g.now()
	for _, link := range links {
		g.mu.Lock()
		staged := g.pending[link]
		g.mu.Unlock()
		if !staged {
			continue
		}

		if err := g.store.MarkDelivered(ctx, link, at); err != nil {
			return fmt.Errorf("%w: marking %s delivered: %v", model.ErrStoreUnavailable, link, err)
		}
		g.unstage(link)
	}
	return nil
}

// Discard drops every pending stage without touching the store.
func (g *Gate) Discard() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = make(map[string]bool)
	g.order = nil
}

// Unstage drops links from the pending set without touching the store.
func (g *Gate) Unstage(links ...string) {
	for _, link := range links {
		g.unstage(link)
	}
}

func (g *Gate) unstage(link string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, link)
	for i, l := range g.order {
		if l == link {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}
