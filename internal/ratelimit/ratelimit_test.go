package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

func TestWait_SameHost_EnforcesMinDelay(t *testing.T) {
	limiter := NewHostLimiter(100 * time.Millisecond)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "boards.greenhouse.io"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "boards.greenhouse.io"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentHost_NoCrossBlocking(t *testing.T) {
	limiter := NewHostLimiter(200 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "boards.greenhouse.io"); err != nil {
		t.Fatalf("greenhouse wait: %v", err)
	}

	// Immediately call for lever, should NOT block.
	start := time.Now()
	if err := limiter.Wait(ctx, "api.lever.co"); err != nil {
		t.Fatalf("lever wait: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > 50*time.Millisecond {
		t.Errorf("expected lever wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_ConcurrentCallersAreSpaced(t *testing.T) {
	limiter := NewHostLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Wait(ctx, "jobs.example.com"); err != nil {
				t.Errorf("wait: %v", err)
			}
		}()
	}
	wg.Wait()

	// Three callers: 0ms, 50ms, 100ms.
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected >= 90ms for three spaced callers, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewHostLimiter(5 * time.Second)

	// First call to seed the reservation.
	if err := limiter.Wait(context.Background(), "boards.greenhouse.io"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, "boards.greenhouse.io"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

// --- Mock for Source test ---

type recordingSource struct {
	called bool
}

func (s *recordingSource) Name() string { return "recording" }

func (s *recordingSource) Fetch(_ context.Context, _ model.Query) ([]model.RawRecord, error) {
	s.called = true
	return nil, nil
}

func TestSource_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewHostLimiter(100 * time.Millisecond)
	inner := &recordingSource{}
	src := NewSource(inner, limiter, "boards.greenhouse.io")
	ctx := context.Background()

	if _, err := src.Fetch(ctx, model.Query{}); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if !inner.called {
		t.Fatal("inner source was not called on first fetch")
	}

	inner.called = false

	// Second call should wait for the limiter.
	start := time.Now()
	if _, err := src.Fetch(ctx, model.Query{}); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	elapsed := time.Since(start)

	if !inner.called {
		t.Fatal("inner source was not called on second fetch")
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second fetch, got %v", elapsed)
	}
	if src.Name() != "recording" {
		t.Errorf("Name() = %q, want recording", src.Name())
	}
}
