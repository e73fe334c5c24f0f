package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amishk599/jobscout/internal/model"
)

var _ model.LinkStore = (*RedisStore)(nil)

const defaultRedisPrefix = "jobscout:link:"

// RedisStore keeps one hash per link (first_seen_at, delivered_at as unix
// milliseconds). Fields are written with HSETNX so re-marking is a no-op.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// NewRedisStore wraps an existing client. An empty prefix uses the default.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(link string) string {
	return s.prefix + link
}

func (s *RedisStore) Exists(ctx context.Context, link string) (bool, error) {
	ok, err := s.rdb.HExists(ctx, s.key(link), "delivered_at").Result()
	if err != nil {
		return false, fmt.Errorf("checking delivered status for %s: %w", link, err)
	}
	return ok, nil
}

func (s *RedisStore) MarkDelivered(ctx context.Context, link string, at time.Time) error {
	ms := at.UnixMilli()
	key := s.key(link)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, "first_seen_at", ms)
		pipe.HSetNX(ctx, key, "delivered_at", ms)
		return nil
	})
	if err != nil {
		return fmt.Errorf("marking %s delivered: %w", link, err)
	}
	return nil
}

// Cleanup scans the prefix and deletes hashes first seen before the cutoff.
func (s *RedisStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()

	var deleted int64
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.rdb.HGet(ctx, key, "first_seen_at").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("reading %s: %w", key, err)
		}
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms >= cutoff {
			continue
		}
		n, err := s.rdb.Del(ctx, key).Result()
		if err != nil {
			return deleted, fmt.Errorf("deleting %s: %w", key, err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning %s*: %w", s.prefix, err)
	}
	return deleted, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
