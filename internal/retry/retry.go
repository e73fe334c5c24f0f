// Package retry wraps sources so transient fetch failures are retried with
// exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/amishk599/jobscout/internal/model"
)

var _ model.Source = (*Source)(nil)

// Source is a decorator that retries transient failures of the wrapped
// source. Client errors (4xx other than 429) and context errors are returned
// immediately.
type Source struct {
	inner      model.Source
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
}

// NewSource wraps inner with retry logic. maxRetries is the number of
// additional attempts after the first failure; baseDelay is the delay before
// the first retry and doubles on each subsequent one.
func NewSource(inner model.Source, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Source {
	return &Source{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   32 * baseDelay,
		logger:     logger,
	}
}

func (s *Source) Name() string { return s.inner.Name() }

// Fetch calls the wrapped source, retrying on transient errors.
func (s *Source) Fetch(ctx context.Context, q model.Query) ([]model.RawRecord, error) {
	var (
		records []model.RawRecord
		lastErr error
	)

	err := retry.Do(
		func() error {
			records, lastErr = s.inner.Fetch(ctx, q)
			return lastErr
		},
		retry.Attempts(uint(s.maxRetries+1)),
		retry.Delay(s.baseDelay),
		retry.MaxDelay(s.maxDelay),
		retry.MaxJitter(s.baseDelay/2),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("retrying after transient error",
				"source", s.inner.Name(),
				"attempt", n+1,
				"max_retries", s.maxRetries,
				"error", err,
			)
		}),
		retry.RetryIf(isRetryable),
	)
	if err == nil {
		return records, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("retry cancelled: %w", ctxErr)
	}
	if lastErr == nil {
		return nil, err
	}
	return nil, lastErr
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		return httpErr.StatusCode >= 500
	}

	// network, DNS, parse of a truncated body
	return true
}
