package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobscout/internal/model"
)

var _ model.LinkStore = (*PostgresStore)(nil)

// PostgresStore tracks delivered links in a seen_links table. Each call
// acquires a pooled connection for the duration of one statement.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL, verifies connectivity, and ensures
// the seen_links table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS seen_links (
		link          TEXT PRIMARY KEY,
		first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		delivered_at  TIMESTAMPTZ
	)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating seen_links table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Exists(ctx context.Context, link string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM seen_links WHERE link = $1 AND delivered_at IS NOT NULL)`,
		link,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking delivered status for %s: %w", link, err)
	}
	return exists, nil
}

// MarkDelivered upserts on the link key so a retried commit never hits a
// uniqueness violation. An existing delivered_at is kept.
func (s *PostgresStore) MarkDelivered(ctx context.Context, link string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO seen_links (link, first_seen_at, delivered_at) VALUES ($1, $2, $2)
		 ON CONFLICT (link) DO UPDATE
		 SET delivered_at = COALESCE(seen_links.delivered_at, EXCLUDED.delivered_at)`,
		link, at,
	)
	if err != nil {
		return fmt.Errorf("marking %s delivered: %w", link, err)
	}
	return nil
}

func (s *PostgresStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM seen_links WHERE first_seen_at < $1`,
		time.Now().Add(-olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("cleaning up links older than %v: %w", olderThan, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
