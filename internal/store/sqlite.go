package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobscout/internal/model"
)

var _ model.LinkStore = (*SQLiteStore)(nil)

// SQLiteStore tracks delivered links in a SQLite database. Timestamps are
// stored as unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// seen_links table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS seen_links (
		link          TEXT PRIMARY KEY,
		first_seen_at INTEGER NOT NULL,
		delivered_at  INTEGER
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating seen_links table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Exists returns true if link has a delivered record.
func (s *SQLiteStore) Exists(ctx context.Context, link string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM seen_links WHERE link = ? AND delivered_at IS NOT NULL", link,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking delivered status for %s: %w", link, err)
	}
	return true, nil
}

// MarkDelivered upserts the record for link. An existing delivered_at is kept.
func (s *SQLiteStore) MarkDelivered(ctx context.Context, link string, at time.Time) error {
	ms := at.UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seen_links (link, first_seen_at, delivered_at) VALUES (?, ?, ?)
		 ON CONFLICT(link) DO UPDATE SET delivered_at = COALESCE(seen_links.delivered_at, excluded.delivered_at)`,
		link, ms, ms,
	)
	if err != nil {
		return fmt.Errorf("marking %s delivered: %w", link, err)
	}
	return nil
}

// Record returns the stored record for link, or nil if none exists.
func (s *SQLiteStore) Record(ctx context.Context, link string) (*model.SeenLinkRecord, error) {
	var firstSeen int64
	var delivered sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT first_seen_at, delivered_at FROM seen_links WHERE link = ?", link,
	).Scan(&firstSeen, &delivered)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading record for %s: %w", link, err)
	}

	rec := &model.SeenLinkRecord{Link: link, FirstSeenAt: time.UnixMilli(firstSeen)}
	if delivered.Valid {
		t := time.UnixMilli(delivered.Int64)
		rec.DeliveredAt = &t
	}
	return rec, nil
}

// Cleanup deletes records first seen before now-olderThan.
func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	res, err := s.db.ExecContext(ctx, "DELETE FROM seen_links WHERE first_seen_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up links older than %v: %w", olderThan, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
