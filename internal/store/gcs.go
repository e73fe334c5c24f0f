package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/amishk599/jobscout/internal/model"
)

var _ model.LinkStore = (*GCSStore)(nil)

// GCSStore keeps one object per delivered link in a Cloud Storage bucket.
// Objects are created with a does-not-exist precondition, so the first write
// wins and later writes for the same link are no-ops.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewGCSStore returns a store writing under prefix in bucket.
func NewGCSStore(client *storage.Client, bucket, prefix string, logger *slog.Logger) *GCSStore {
	if prefix == "" {
		prefix = "links/"
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// ObjectKey returns the object name for link.
func ObjectKey(prefix, link string) string {
	sum := sha256.Sum256([]byte(link))
	return prefix + hex.EncodeToString(sum[:]) + ".json"
}

func (s *GCSStore) object(link string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(ObjectKey(s.prefix, link))
}

func (s *GCSStore) Exists(ctx context.Context, link string) (bool, error) {
	_, err := s.object(link).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking delivered status for %s: %w", link, err)
	}
	return true, nil
}

func (s *GCSStore) MarkDelivered(ctx context.Context, link string, at time.Time) error {
	data, err := json.Marshal(fileRecord{Link: link, FirstSeenAt: at, DeliveredAt: &at})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	err = retry.Do(
		func() error {
			w := s.object(link).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
			w.ContentType = "application/json"
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write object: %w", writeErr)
			}
			closeErr := w.Close()
			if isPreconditionFailed(closeErr) {
				return nil
			}
			return closeErr
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Info("retrying link write after error", "attempt", n, "link", link, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("marking %s delivered: %w", link, err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// Cleanup deletes link objects created before the cutoff.
func (s *GCSStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	bkt := s.client.Bucket(s.bucket)

	var deleted int64
	it := bkt.Objects(ctx, &storage.Query{Prefix: s.prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("listing %s: %w", s.prefix, err)
		}
		if !attrs.Created.Before(cutoff) {
			continue
		}
		if err := bkt.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return deleted, fmt.Errorf("deleting %s: %w", attrs.Name, err)
		}
		deleted++
	}
	return deleted, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
