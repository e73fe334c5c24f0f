package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// --- Fakes ---

// every fires at a fixed sub-second interval, which cron descriptors cannot express.
type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// countingCycle counts calls and tracks the peak number of concurrent cycles.
type countingCycle struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	hold     time.Duration
}

func (c *countingCycle) Run(ctx context.Context) model.CycleResult {
	c.calls.Add(1)
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if c.hold > 0 {
		select {
		case <-time.After(c.hold):
		case <-ctx.Done():
			return model.CycleResult{Err: ctx.Err()}
		}
	}
	return model.CycleResult{ID: "ok"}
}

func blockingCycle(started chan<- struct{}) CycleFunc {
	return func(ctx context.Context) model.CycleResult {
		close(started)
		<-ctx.Done()
		return model.CycleResult{Err: ctx.Err()}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runInBackground(ctx context.Context, s *Scheduler) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return done
}

// --- Tests ---

func TestParseSchedule(t *testing.T) {
	for _, spec := range []string{"@every 30m", "*/15 * * * *", "@hourly"} {
		if _, err := ParseSchedule(spec); err != nil {
			t.Errorf("ParseSchedule(%q): %v", spec, err)
		}
	}
	if _, err := ParseSchedule("every now and then"); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestRun_CancelReturnsPromptly(t *testing.T) {
	started := make(chan struct{})
	s := NewScheduler(every(time.Hour), blockingCycle(started), true, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := runInBackground(ctx, s)

	<-started
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return within 2s after cancel")
	}
	if got := s.State(); got != Stopped {
		t.Errorf("state = %s, want stopped", got)
	}
}

func TestRun_FiresOnSchedule(t *testing.T) {
	cycle := &countingCycle{}
	s := NewScheduler(every(30*time.Millisecond), cycle.Run, true, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := runInBackground(ctx, s)

	time.Sleep(250 * time.Millisecond)
	cancel()
	<-done

	if got := cycle.calls.Load(); got < 3 {
		t.Errorf("cycle calls = %d, want >= 3", got)
	}
}

func TestRun_RunOnStartDisabled(t *testing.T) {
	cycle := &countingCycle{}
	s := NewScheduler(every(time.Hour), cycle.Run, false, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := runInBackground(ctx, s)

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	if got := cycle.calls.Load(); got != 0 {
		t.Errorf("cycle calls = %d, want 0", got)
	}
}

func TestRun_OverlappingFiresAreDropped(t *testing.T) {
	cycle := &countingCycle{hold: 120 * time.Millisecond}
	s := NewScheduler(every(20*time.Millisecond), cycle.Run, false, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := runInBackground(ctx, s)

	time.Sleep(400 * time.Millisecond)
	cancel()
	<-done

	if got := cycle.peak.Load(); got != 1 {
		t.Errorf("peak concurrent cycles = %d, want 1", got)
	}
	// ~20 fires in 400ms, but each cycle holds for 120ms.
	if got := cycle.calls.Load(); got < 1 || got > 5 {
		t.Errorf("cycle calls = %d, want between 1 and 5", got)
	}
}

func TestTrigger_RejectsWhileRunning(t *testing.T) {
	started := make(chan struct{})
	s := NewScheduler(every(time.Hour), blockingCycle(started), false, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan model.CycleResult, 1)
	go func() {
		res, _ := s.Trigger(ctx)
		first <- res
	}()
	<-started

	if got := s.State(); got != Running {
		t.Errorf("state = %s, want running", got)
	}
	if _, err := s.Trigger(context.Background()); !errors.Is(err, model.ErrCycleAlreadyRunning) {
		t.Errorf("second Trigger error = %v, want ErrCycleAlreadyRunning", err)
	}

	cancel()
	res := <-first
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("first cycle Err = %v, want context.Canceled", res.Err)
	}
	if got := s.State(); got != Idle {
		t.Errorf("state after cycle = %s, want idle", got)
	}
}

func TestTrigger_PanicReturnsToIdle(t *testing.T) {
	calls := 0
	s := NewScheduler(every(time.Hour), func(context.Context) model.CycleResult {
		calls++
		if calls == 1 {
			panic("nil map write")
		}
		return model.CycleResult{ID: "second"}
	}, false, discardLogger())

	res, err := s.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if res.Err == nil {
		t.Fatal("expected panic to surface as CycleResult.Err")
	}
	if got := s.State(); got != Idle {
		t.Errorf("state after panic = %s, want idle", got)
	}

	res, err = s.Trigger(context.Background())
	if err != nil || res.ID != "second" {
		t.Errorf("Trigger after panic = (%+v, %v), want second cycle", res, err)
	}
	last, ok := s.LastResult()
	if !ok || last.ID != "second" {
		t.Errorf("LastResult = (%+v, %v), want second cycle", last, ok)
	}
}

func TestStop_CancelsInFlightCycle(t *testing.T) {
	started := make(chan struct{})
	s := NewScheduler(every(time.Hour), blockingCycle(started), false, discardLogger())

	result := make(chan model.CycleResult, 1)
	go func() {
		res, _ := s.Trigger(context.Background())
		result <- res
	}()
	<-started

	s.Stop()

	select {
	case res := <-result:
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("cycle Err = %v, want context.Canceled", res.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight cycle was not cancelled by Stop")
	}

	if got := s.State(); got != Stopped {
		t.Errorf("state = %s, want stopped", got)
	}
	if _, err := s.Trigger(context.Background()); !errors.Is(err, model.ErrSchedulerStopped) {
		t.Errorf("Trigger after Stop error = %v, want ErrSchedulerStopped", err)
	}
	if err := s.Run(context.Background()); !errors.Is(err, model.ErrSchedulerStopped) {
		t.Errorf("Run after Stop error = %v, want ErrSchedulerStopped", err)
	}
	s.Stop()
}

func TestLastResult_EmptyBeforeFirstCycle(t *testing.T) {
	s := NewScheduler(every(time.Hour), (&countingCycle{}).Run, false, discardLogger())
	if _, ok := s.LastResult(); ok {
		t.Error("LastResult reported a cycle before any ran")
	}
	if got := s.State(); got != Idle {
		t.Errorf("initial state = %s, want idle", got)
	}
}
