// Package server exposes a small HTTP control surface over the scheduler:
// health, last-cycle status, and a manual trigger.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/scheduler"
)

// Controller is the part of the scheduler the server drives.
type Controller interface {
	Trigger(ctx context.Context) (model.CycleResult, error)
	State() scheduler.State
	LastResult() (model.CycleResult, bool)
}

// Server serves GET /health, GET /status and POST /run.
type Server struct {
	addr   string
	ctrl   Controller
	router *gin.Engine
	logger *slog.Logger
}

// NewServer builds the router. Gin runs in release mode; requests are logged
// through slog.
func NewServer(addr string, ctrl Controller, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		addr:   addr,
		ctrl:   ctrl,
		router: router,
		logger: logger,
	}
	s.setUpRoutes()
	return s
}

func (s *Server) setUpRoutes() {
	s.router.GET("/health", s.health)
	s.router.GET("/status", s.status)
	s.router.POST("/run", s.run)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	body := gin.H{"state": s.ctrl.State().String()}
	if res, ok := s.ctrl.LastResult(); ok {
		body["last_cycle"] = summarize(res)
	}
	c.JSON(http.StatusOK, body)
}

// run executes one cycle synchronously. The cycle is detached from the
// request so a dropped client does not abort delivery mid-commit.
func (s *Server) run(c *gin.Context) {
	res, err := s.ctrl.Trigger(context.WithoutCancel(c.Request.Context()))
	switch {
	case errors.Is(err, model.ErrCycleAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrSchedulerStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, summarize(res))
	}
}

type cycleSummary struct {
	ID           string            `json:"id"`
	StartedAt    time.Time         `json:"started_at"`
	DurationMS   int64             `json:"duration_ms"`
	Fetched      int               `json:"fetched"`
	Malformed    int               `json:"malformed"`
	Irrelevant   int               `json:"irrelevant"`
	Duplicates   int               `json:"duplicates"`
	BatchSize    int               `json:"batch_size"`
	Delivered    bool              `json:"delivered"`
	Links        []string          `json:"links"`
	SourceErrors map[string]string `json:"source_errors,omitempty"`
	Error        string            `json:"error,omitempty"`
}

func summarize(res model.CycleResult) cycleSummary {
	sum := cycleSummary{
		ID:         res.ID,
		StartedAt:  res.StartedAt,
		DurationMS: res.Duration().Milliseconds(),
		Fetched:    res.Fetched,
		Malformed:  res.Malformed,
		Irrelevant: res.Irrelevant,
		Duplicates: res.Duplicates,
		BatchSize:  len(res.Batch),
		Delivered:  res.Delivered,
		Links:      res.Links(),
	}
	if len(res.SourceErrors) > 0 {
		sum.SourceErrors = make(map[string]string, len(res.SourceErrors))
		for k, err := range res.SourceErrors {
			sum.SourceErrors[k.String()] = err.Error()
		}
	}
	if res.Err != nil {
		sum.Error = res.Err.Error()
	}
	return sum
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
