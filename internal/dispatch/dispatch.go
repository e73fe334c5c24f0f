// Package dispatch sends a discovered batch through the notification channel
// and commits its links only once delivery is confirmed.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobscout/internal/dedup"
	"github.com/amishk599/jobscout/internal/model"
)

// Controller delivers batches at least once: links are committed after a
// successful send, so a failed send leaves them eligible next cycle.
type Controller struct {
	notifier model.Notifier
	dryRun   bool
	logger   *slog.Logger
}

// NewController creates a controller. In dry-run mode batches are still sent
// to the notifier but never committed.
func NewController(notifier model.Notifier, dryRun bool, logger *slog.Logger) *Controller {
	return &Controller{notifier: notifier, dryRun: dryRun, logger: logger}
}

// DryRun reports whether commits are skipped.
func (c *Controller) DryRun() bool { return c.dryRun }

// Dispatch sends batch and commits its links on gate. An empty batch is a
// no-op. Send failures wrap model.ErrNotificationFailed and leave the store
// untouched; commit failures wrap model.ErrStoreUnavailable.
func (c *Controller) Dispatch(ctx context.Context, batch []model.Posting, gate *dedup.Gate) error {
	if len(batch) == 0 {
		c.logger.Debug("empty batch, nothing to dispatch")
		return nil
	}

	if err := c.notifier.Notify(ctx, batch); err != nil {
		c.logger.Error("notification failed, links left uncommitted", "postings", len(batch), "error", err)
		return fmt.Errorf("%w: %v", model.ErrNotificationFailed, err)
	}

	if c.dryRun {
		c.logger.Info("dry run, skipping commit", "postings", len(batch))
		gate.Discard()
		return nil
	}

	links := make([]string, len(batch))
	for i, p := range batch {
		links[i] = p.Link
	}
	if err := gate.Commit(ctx, links); err != nil {
		return fmt.Errorf("committing delivered links: %w", err)
	}

	c.logger.Info("batch delivered", "postings", len(batch))
	return nil
}
