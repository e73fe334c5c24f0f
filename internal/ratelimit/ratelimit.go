package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// HostLimiter enforces a minimum delay between requests to the same host.
// Profiles share sources, so one host can be hit several times per cycle.
type HostLimiter struct {
	mu       sync.Mutex
	next     map[string]time.Time // key: host, value: earliest start of the next request
	minDelay time.Duration
}

// NewHostLimiter creates a limiter that spaces requests to the same host by
// at least minDelay.
func NewHostLimiter(minDelay time.Duration) *HostLimiter {
	return &HostLimiter{
		next:     make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until the caller's reserved slot for host arrives. Slots are
// reserved under the lock, so concurrent callers are spaced out rather than
// released together. Returns an error if ctx is cancelled while waiting.
func (r *HostLimiter) Wait(ctx context.Context, host string) error {
	r.mu.Lock()
	now := time.Now()
	slot := r.next[host]
	if slot.Before(now) {
		slot = now
	}
	r.next[host] = slot.Add(r.minDelay)
	r.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", host, ctx.Err())
	case <-timer.C:
		return nil
	}
}

var _ model.Source = (*Source)(nil)

// Source is a decorator that waits on a shared HostLimiter before delegating
// to the wrapped source.
type Source struct {
	inner   model.Source
	limiter *HostLimiter
	host    string
}

// NewSource wraps inner with host-level rate limiting. All sources targeting
// the same host should share the same limiter instance.
func NewSource(inner model.Source, limiter *HostLimiter, host string) *Source {
	return &Source{
		inner:   inner,
		limiter: limiter,
		host:    host,
	}
}

func (s *Source) Name() string { return s.inner.Name() }

// Fetch waits for the limiter to allow a request, then delegates.
func (s *Source) Fetch(ctx context.Context, q model.Query) ([]model.RawRecord, error) {
	if err := s.limiter.Wait(ctx, s.host); err != nil {
		return nil, err
	}
	return s.inner.Fetch(ctx, q)
}
