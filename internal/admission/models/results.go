package models

import "time"

// PacingResult is the outcome of a pacing check.
type PacingResult struct {
	Allowed bool
	Waited  time.Duration
	// Required is the wait the store computed; set even when not allowed.
	Required time.Duration
	Degraded bool
}

// WaitedMs returns the actual wall time spent waiting in milliseconds.
func (r PacingResult) WaitedMs() int64 {
	return r.Waited.Milliseconds()
}

// RateLimitError enumerates structured rate limiter failures.
type RateLimitError string

const (
	ErrRateLimitExceeded RateLimitError = "rate_limit_exceeded"
	ErrQueueTimeout      RateLimitError = "queue_timeout"
	ErrBackendError      RateLimitError = "rate_limit_backend_error"
)

// AcquireResult is the outcome of a rate limiter acquisition.
type AcquireResult struct {
	Acquired  bool
	Skipped   bool
	RequestID string
	Error     RateLimitError
	Waited    time.Duration
	Retries   int
}

// WindowAttempt is what the store reports after one atomic admission attempt.
type WindowAttempt struct {
	Admitted bool
	Count    int
	// Oldest is the oldest in-window entry; zero when the window is empty.
	Oldest time.Time
}

// SlotSeparator joins a request id to the per-attempt suffix of its window
// member. Request ids are reused by retrying callers, so a window entry is
// always "<request id>#<attempt id>".
const SlotSeparator = "#"

// SlotMember builds the window member for one admitted attempt of requestID.
func SlotMember(requestID, attemptID string) string {
	return requestID + SlotSeparator + attemptID
}

// RateLimitStatus is a read-only projection of an account's window.
type RateLimitStatus struct {
	Enabled       bool          `json:"enabled"`
	CurrentCount  int           `json:"current_count"`
	MaxRequests   int           `json:"max_requests"`
	WindowSeconds int           `json:"window_seconds"`
	OldestRequest *time.Time    `json:"oldest_request_time,omitempty"`
	IsLimited     bool          `json:"is_limited"`
	ResetIn       time.Duration `json:"-"`
}

// RecordErrorResult is the outcome of recording a 403-class error.
type RecordErrorResult struct {
	Triggered  bool
	ErrorCount int
	Threshold  int
	State      BreakerState
	Degraded   bool
}

// RecoverResult is the outcome of a cooldown check.
type RecoverResult struct {
	Recovered bool
	State     BreakerState
	Remaining time.Duration
}

// BreakerStatus combines persisted state, live error count and resolved config.
type BreakerStatus struct {
	Enabled         bool          `json:"enabled"`
	State           BreakerState  `json:"state"`
	ErrorCount      int           `json:"error_count"`
	Threshold       int           `json:"threshold"`
	WindowSeconds   int           `json:"window_seconds"`
	DurationMinutes int           `json:"breaker_duration_minutes"`
	AutoRecovery    bool          `json:"auto_recovery"`
	OpenAt          *time.Time    `json:"open_at,omitempty"`
	OpenUntil       *time.Time    `json:"open_until,omitempty"`
	Remaining       time.Duration `json:"-"`
	RemainingMs     *int64        `json:"remaining_ms,omitempty"`
}

// SweepResult summarizes one auto-recovery sweep.
type SweepResult struct {
	// Skipped is set when the breaker or auto recovery is disabled.
	Skipped   bool
	Scanned   int
	Recovered int
	Failed    int
	Duration  time.Duration
}
