// Package discovery runs one discovery cycle across every configured
// profile and source and assembles the capped batch of new postings.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobscout/internal/dedup"
	"github.com/amishk599/jobscout/internal/filter"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/normalize"
)

const (
	DefaultBatchCap     = 10
	DefaultFetchTimeout = 30 * time.Second
	DefaultConcurrency  = 4
)

// Options tunes an Aggregator. Zero values fall back to the defaults above.
type Options struct {
	BatchCap     int
	FetchTimeout time.Duration
	Concurrency  int
}

// Aggregator walks profiles × sources in configured order. Fetches run
// concurrently but a single consumer owns normalization, filtering, dedup
// and the batch cap, so the batch does not depend on fetch completion order.
type Aggregator struct {
	profiles []model.SearchProfile
	sources  []model.Source
	filter   *filter.ProfileFilter
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewAggregator creates an aggregator over the given profiles and sources.
func NewAggregator(
	profiles []model.SearchProfile,
	sources []model.Source,
	opts Options,
	logger *slog.Logger,
) *Aggregator {
	if opts.BatchCap <= 0 {
		opts.BatchCap = DefaultBatchCap
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Aggregator{
		profiles: profiles,
		sources:  sources,
		filter:   filter.NewProfileFilter(),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// slot holds the outcome of one (profile, source) fetch. done is closed once
// records/err are set or the fetch was never started.
type slot struct {
	key     model.SourceKey
	profile int
	source  model.Source
	done    chan struct{}
	records []model.RawRecord
	err     error
}

// Run executes one discovery cycle. Accepted links are staged on gate; the
// caller commits them after dispatch. If ctx is cancelled the gate is
// discarded and Err is context.Canceled.
func (a *Aggregator) Run(ctx context.Context, gate *dedup.Gate) model.CycleResult {
	res := model.CycleResult{
		ID:           uuid.NewString(),
		SourceErrors: make(map[model.SourceKey]error),
		StartedAt:    a.now(),
	}

	fetchCtx, cancelFetches := context.WithCancel(ctx)
	defer cancelFetches()

	slots := a.slots()
	launched := a.launch(fetchCtx, slots)

	skipProfile := make(map[int]bool)
	for _, s := range slots {
		<-s.done

		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		if skipProfile[s.profile] {
			continue
		}
		if s.err != nil {
			res.SourceErrors[s.key] = s.err
			a.logger.Warn("source fetch failed", "cycle", res.ID, "key", s.key.String(), "error", s.err)
			continue
		}

		if err := a.consume(ctx, s, gate, &res); err != nil {
			res.SourceErrors[s.key] = err
			skipProfile[s.profile] = true
			dropped := dropProfile(&res, gate, s.key.Profile)
			a.logger.Error("store unavailable, skipping profile",
				"cycle", res.ID,
				"profile", s.key.Profile,
				"dropped", dropped,
				"error", err,
			)
			continue
		}

		if len(res.Batch) >= a.opts.BatchCap {
			a.logger.Debug("batch cap reached, stopping early", "cycle", res.ID, "cap", a.opts.BatchCap)
			break
		}
	}

	cancelFetches()
	<-launched

	if res.Err != nil {
		gate.Discard()
		res.Batch = nil
	}

	res.FinishedAt = a.now()
	a.logger.Info("discovery cycle finished",
		"cycle", res.ID,
		"fetched", res.Fetched,
		"malformed", res.Malformed,
		"irrelevant", res.Irrelevant,
		"duplicates", res.Duplicates,
		"batch", len(res.Batch),
		"source_errors", len(res.SourceErrors),
		"duration", res.Duration(),
	)
	return res
}

// dropProfile removes the profile's postings from the batch and unstages
// their links. It returns how many were removed.
func dropProfile(res *model.CycleResult, gate *dedup.Gate, profile string) int {
	kept := res.Batch[:0]
	var links []string
	for _, p := range res.Batch {
		if p.Profile == profile {
			links = append(links, p.Link)
			continue
		}
		kept = append(kept, p)
	}
	res.Batch = kept
	gate.Unstage(links...)
	return len(links)
}

func (a *Aggregator) slots() []*slot {
	slots := make([]*slot, 0, len(a.profiles)*len(a.sources))
	for i, p := range a.profiles {
		for _, src := range a.sources {
			slots = append(slots, &slot{
				key:     model.SourceKey{Profile: p.Name, Source: src.Name()},
				profile: i,
				source:  src,
				done:    make(chan struct{}),
			})
		}
	}
	return slots
}

// launch starts fetches in slot order with at most Concurrency in flight.
// The returned channel closes once every fetch has returned. Slots not yet
// started when ctx is cancelled are closed without fetching.
func (a *Aggregator) launch(ctx context.Context, slots []*slot) <-chan struct{} {
	finished := make(chan struct{})

	go func() {
		defer close(finished)

		var g errgroup.Group
		g.SetLimit(a.opts.Concurrency)
		for _, s := range slots {
			if ctx.Err() != nil {
				close(s.done)
				continue
			}
			g.Go(func() error {
				defer close(s.done)
				if ctx.Err() != nil {
					return nil
				}
				s.records, s.err = a.fetch(ctx, s)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return finished
}

func (a *Aggregator) fetch(ctx context.Context, s *slot) ([]model.RawRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.FetchTimeout)
	defer cancel()

	q := model.QueryFor(a.profiles[s.profile])
	records, err := s.source.Fetch(ctx, q)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: timed out after %s: %v", model.ErrSourceFetchFailed, s.key, a.opts.FetchTimeout, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", model.ErrSourceFetchFailed, s.key, err)
	}
	return records, nil
}

// consume runs normalize → filter → dedup over one slot's records, appending
// accepted postings to res.Batch until the cap. A non-nil error means the
// store is unavailable.
func (a *Aggregator) consume(ctx context.Context, s *slot, gate *dedup.Gate, res *model.CycleResult) error {
	profile := a.profiles[s.profile]
	res.Fetched += len(s.records)

	for _, rec := range s.records {
		if len(res.Batch) >= a.opts.BatchCap {
			return nil
		}

		p, err := normalize.Normalize(rec, s.source.Name(), a.now())
		if err != nil {
			res.Malformed++
			a.logger.Debug("dropping malformed record", "key", s.key.String(), "error", err)
			continue
		}
		p.Profile = profile.Name

		if !a.filter.Match(p, profile) {
			res.Irrelevant++
			continue
		}

		isNew, err := gate.IsNew(ctx, p.Link)
		if err != nil {
			return err
		}
		if !isNew {
			res.Duplicates++
			continue
		}

		gate.Stage(p.Link)
		res.Batch = append(res.Batch, p)
	}
	return nil
}
