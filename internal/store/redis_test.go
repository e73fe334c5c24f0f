package store

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	s := NewRedisStore(rdb, "")
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStore_MarkDeliveredThenExists(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	if exists, err := s.Exists(ctx, "https://example.com/1"); err != nil || exists {
		t.Fatalf("Exists before mark = %v, %v; want false, nil", exists, err)
	}
	if err := s.MarkDelivered(ctx, "https://example.com/1", time.Now()); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if exists, err := s.Exists(ctx, "https://example.com/1"); err != nil || !exists {
		t.Fatalf("Exists after mark = %v, %v; want true, nil", exists, err)
	}
}

func TestRedisStore_MarkDeliveredIdempotent(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.MarkDelivered(ctx, "https://example.com/1", first); err != nil {
		t.Fatalf("first MarkDelivered: %v", err)
	}
	if err := s.MarkDelivered(ctx, "https://example.com/1", first.Add(time.Hour)); err != nil {
		t.Fatalf("second MarkDelivered: %v", err)
	}

	got := mr.HGet(defaultRedisPrefix+"https://example.com/1", "delivered_at")
	if want := strconv.FormatInt(first.UnixMilli(), 10); got != want {
		t.Errorf("delivered_at = %s, want %s", got, want)
	}
}

func TestRedisStore_Cleanup(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	if err := s.MarkDelivered(ctx, "https://example.com/old", time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkDelivered(ctx, "https://example.com/new", time.Now()); err != nil {
		t.Fatal(err)
	}

	n, err := s.Cleanup(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("Cleanup deleted %d, want 1", n)
	}
	if exists, _ := s.Exists(ctx, "https://example.com/old"); exists {
		t.Error("old link should be gone")
	}
	if exists, _ := s.Exists(ctx, "https://example.com/new"); !exists {
		t.Error("new link should remain")
	}
}

func TestRedisStore_Unavailable(t *testing.T) {
	s, mr := newTestRedisStore(t)
	mr.Close()

	if _, err := s.Exists(context.Background(), "https://example.com/1"); err == nil {
		t.Fatal("expected error when redis is down")
	}
}
