package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/jobscout/internal/model"
)

// State is the scheduler's lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CycleFunc runs one full cycle.
type CycleFunc func(ctx context.Context) model.CycleResult

// ParseSchedule parses a standard 5-field cron expression or a descriptor
// such as "@hourly" or "@every 30m".
func ParseSchedule(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Scheduler drives cycles on a cron schedule with at most one cycle in
// flight. Timer fires that arrive while a cycle runs are dropped.
type Scheduler struct {
	schedule   cron.Schedule
	cycle      CycleFunc
	runOnStart bool
	logger     *slog.Logger

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	last    *model.CycleResult
	stopped chan struct{}
}

// NewScheduler creates an idle scheduler.
func NewScheduler(schedule cron.Schedule, cycle CycleFunc, runOnStart bool, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		schedule:   schedule,
		cycle:      cycle,
		runOnStart: runOnStart,
		logger:     logger,
		stopped:    make(chan struct{}),
	}
}

// Run optionally runs one immediate cycle, then fires on the schedule until
// ctx is cancelled or Stop is called. It returns nil on graceful shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.State() == Stopped {
		return model.ErrSchedulerStopped
	}

	s.logger.Info("starting scheduler",
		"run_on_start", s.runOnStart,
		"next_run", s.schedule.Next(time.Now()).Format(time.RFC3339),
	)

	if s.runOnStart {
		s.fire(ctx, "start")
	}

	c := cron.New()
	c.Schedule(s.schedule, cron.FuncJob(func() { s.fire(ctx, "schedule") }))
	c.Start()

	select {
	case <-ctx.Done():
	case <-s.stopped:
	}

	s.Stop()
	<-c.Stop().Done()
	s.logger.Info("shutting down scheduler")
	return nil
}

// Trigger runs one cycle synchronously. It returns model.ErrCycleAlreadyRunning
// if a cycle is in flight and model.ErrSchedulerStopped after Stop.
func (s *Scheduler) Trigger(ctx context.Context) (model.CycleResult, error) {
	return s.runCycle(ctx)
}

// Stop cancels any in-flight cycle and moves to Stopped. Safe to call more
// than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stopped {
		return
	}
	s.state = Stopped
	if s.cancel != nil {
		s.cancel()
	}
	close(s.stopped)
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastResult returns the most recent completed cycle, if any.
func (s *Scheduler) LastResult() (model.CycleResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return model.CycleResult{}, false
	}
	return *s.last, true
}

func (s *Scheduler) fire(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runCycle(ctx); err != nil {
		s.logger.Warn("skipping cycle", "trigger", trigger, "reason", err)
	}
}

func (s *Scheduler) runCycle(ctx context.Context) (model.CycleResult, error) {
	s.mu.Lock()
	switch s.state {
	case Stopped:
		s.mu.Unlock()
		return model.CycleResult{}, model.ErrSchedulerStopped
	case Running:
		s.mu.Unlock()
		return model.CycleResult{}, model.ErrCycleAlreadyRunning
	}
	cycleCtx, cancel := context.WithCancel(ctx)
	s.state = Running
	s.cancel = cancel
	s.mu.Unlock()

	defer cancel()
	res := s.safeCycle(cycleCtx)

	s.mu.Lock()
	s.last = &res
	s.cancel = nil
	if s.state == Running {
		s.state = Idle
	}
	s.mu.Unlock()

	s.logResult(res)
	return res, nil
}

// safeCycle converts a panic inside the cycle into CycleResult.Err.
func (s *Scheduler) safeCycle(ctx context.Context) (res model.CycleResult) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cycle panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res = model.CycleResult{
				StartedAt:  started,
				FinishedAt: time.Now(),
				Err:        fmt.Errorf("cycle panicked: %v", r),
			}
		}
	}()
	return s.cycle(ctx)
}

func (s *Scheduler) logResult(res model.CycleResult) {
	args := []any{
		"cycle", res.ID,
		"batch", len(res.Batch),
		"delivered", res.Delivered,
		"source_errors", len(res.SourceErrors),
		"duration", res.Duration(),
	}
	if res.Err != nil {
		s.logger.Error("cycle failed", append(args, "error", res.Err)...)
		return
	}
	s.logger.Info("cycle finished", args...)
}
