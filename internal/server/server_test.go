package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/scheduler"
)

type fakeController struct {
	state      scheduler.State
	last       *model.CycleResult
	result     model.CycleResult
	triggerErr error
	triggered  int
}

func (f *fakeController) Trigger(_ context.Context) (model.CycleResult, error) {
	f.triggered++
	return f.result, f.triggerErr
}

func (f *fakeController) State() scheduler.State { return f.state }

func (f *fakeController) LastResult() (model.CycleResult, bool) {
	if f.last == nil {
		return model.CycleResult{}, false
	}
	return *f.last, true
}

func newTestServer(ctrl Controller) *Server {
	return NewServer(":0", ctrl, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func do(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func sampleResult() model.CycleResult {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	return model.CycleResult{
		ID:        "cycle-1",
		Batch:     []model.Posting{{Title: "Go Dev", Link: "https://jobs.example.com/1"}},
		Fetched:   3,
		Delivered: true,
		SourceErrors: map[model.SourceKey]error{
			{Profile: "backend", Source: "lever"}: errors.New("timed out"),
		},
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}
}

func TestHealth(t *testing.T) {
	rec, body := do(t, newTestServer(&fakeController{}), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestStatus_NoCycleYet(t *testing.T) {
	rec, body := do(t, newTestServer(&fakeController{state: scheduler.Idle}), http.MethodGet, "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", body["state"])
	assert.NotContains(t, body, "last_cycle")
}

func TestStatus_WithLastCycle(t *testing.T) {
	last := sampleResult()
	_, body := do(t, newTestServer(&fakeController{state: scheduler.Running, last: &last}), http.MethodGet, "/status")

	assert.Equal(t, "running", body["state"])
	cycle, ok := body["last_cycle"].(map[string]any)
	require.True(t, ok, "last_cycle missing: %v", body)
	assert.Equal(t, "cycle-1", cycle["id"])
	assert.Equal(t, float64(1), cycle["batch_size"])
	assert.Equal(t, float64(1500), cycle["duration_ms"])
	assert.Equal(t, []any{"https://jobs.example.com/1"}, cycle["links"])
	assert.Equal(t, map[string]any{"backend/lever": "timed out"}, cycle["source_errors"])
}

func TestRun_Success(t *testing.T) {
	ctrl := &fakeController{result: sampleResult()}
	rec, body := do(t, newTestServer(ctrl), http.MethodPost, "/run")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ctrl.triggered)
	assert.Equal(t, true, body["delivered"])
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"already running", model.ErrCycleAlreadyRunning, http.StatusConflict},
		{"stopped", model.ErrSchedulerStopped, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, newTestServer(&fakeController{triggerErr: tt.err}), http.MethodPost, "/run")
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestRun_WrongMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&fakeController{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	s := NewServer("127.0.0.1:0", &fakeController{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
