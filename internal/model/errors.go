package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the pipeline. Callers wrap these with fmt.Errorf
// and test with errors.Is.
var (
	ErrMalformedRecord     = errors.New("malformed record")
	ErrSourceFetchFailed   = errors.New("source fetch failed")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrNotificationFailed  = errors.New("notification failed")
	ErrCycleAlreadyRunning = errors.New("cycle already running")
	ErrSchedulerStopped    = errors.New("scheduler stopped")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
