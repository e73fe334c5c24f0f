package store

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestPostgresStore runs against a real database when JOBSCOUT_TEST_POSTGRES_URL
// is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("JOBSCOUT_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("JOBSCOUT_TEST_POSTGRES_URL not set")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer s.Close()

	link := "https://example.com/pg/" + time.Now().Format(time.RFC3339Nano)
	if exists, err := s.Exists(ctx, link); err != nil || exists {
		t.Fatalf("Exists before mark = %v, %v", exists, err)
	}
	for i := 0; i < 2; i++ {
		if err := s.MarkDelivered(ctx, link, time.Now()); err != nil {
			t.Fatalf("MarkDelivered #%d: %v", i+1, err)
		}
	}
	if exists, err := s.Exists(ctx, link); err != nil || !exists {
		t.Fatalf("Exists after mark = %v, %v", exists, err)
	}
}
