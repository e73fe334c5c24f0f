package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amishk599/jobscout/internal/dedup"
	"github.com/amishk599/jobscout/internal/discovery"
	"github.com/amishk599/jobscout/internal/dispatch"
	"github.com/amishk599/jobscout/internal/model"
)

// Poller owns one full cycle:
// discover → dispatch → commit → prune old seen links.
type Poller struct {
	aggregator *discovery.Aggregator
	controller *dispatch.Controller
	store      model.LinkStore
	retention  time.Duration
	logger     *slog.Logger
}

// NewPoller creates a poller wired with all its dependencies. A zero
// retention disables pruning.
func NewPoller(
	aggregator *discovery.Aggregator,
	controller *dispatch.Controller,
	store model.LinkStore,
	retention time.Duration,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		aggregator: aggregator,
		controller: controller,
		store:      store,
		retention:  retention,
		logger:     logger,
	}
}

// Poll runs one cycle and returns its result. Source failures are reported in
// SourceErrors; notification and store failures end up in Err.
func (p *Poller) Poll(ctx context.Context) model.CycleResult {
	gate := dedup.New(p.store)

	res := p.aggregator.Run(ctx, gate)
	if res.Err != nil {
		return res
	}

	if err := p.controller.Dispatch(ctx, res.Batch, gate); err != nil {
		gate.Discard()
		res.Err = err
		res.FinishedAt = time.Now()
		return res
	}
	res.Delivered = len(res.Batch) > 0 && !p.controller.DryRun()
	res.FinishedAt = time.Now()

	p.prune(ctx)
	return res
}

func (p *Poller) prune(ctx context.Context) {
	if p.retention <= 0 {
		return
	}
	n, err := p.store.Cleanup(ctx, p.retention)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.logger.Warn("pruning seen links failed", "error", err)
		}
		return
	}
	if n > 0 {
		p.logger.Info("pruned seen links", "removed", n, "retention", p.retention)
	}
}
