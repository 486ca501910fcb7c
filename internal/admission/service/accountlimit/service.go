// Package accountlimit caps requests per account in a sliding window, with
// optional bounded queueing when the window is full.
package accountlimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"relaygate/internal/admission/clock"
	"relaygate/internal/admission/config"
	"relaygate/internal/admission/metrics"
	"relaygate/internal/admission/models"
	"relaygate/internal/admission/observability"
	"relaygate/internal/admission/ports"
	"relaygate/internal/admission/tracer"
	dErrors "relaygate/pkg/domain-errors"
	"relaygate/pkg/platform/sentinel"
)

type Service struct {
	window   ports.WindowStore
	config   ports.ConfigProvider
	registry ports.AccountRegistry
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
	now      clock.NowFunc
	sleep    clock.SleepFunc
	random   func() float64
	newID    func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithRegistry enables per-account overrides read from the account record.
func WithRegistry(registry ports.AccountRegistry) Option {
	return func(s *Service) {
		s.registry = registry
	}
}

func WithNow(now clock.NowFunc) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithSleep(sleep clock.SleepFunc) Option {
	return func(s *Service) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithRandom replaces the jitter source; fn must return values in [0, 1).
func WithRandom(fn func() float64) Option {
	return func(s *Service) {
		if fn != nil {
			s.random = fn
		}
	}
}

func New(window ports.WindowStore, cfg ports.ConfigProvider, opts ...Option) (*Service, error) {
	if window == nil {
		return nil, fmt.Errorf("window store is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config provider is required")
	}
	svc := &Service{
		window: window,
		config: cfg,
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
		now:    time.Now,
		sleep:  clock.Sleep,
		random: rand.Float64,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ResolveConfig merges the account override, if any, onto the global config.
// Registry failures fall back to the global values.
func (s *Service) ResolveConfig(ctx context.Context, key models.AccountKey) config.RateLimitConfig {
	global := s.config.Global().RateLimit
	if s.registry == nil {
		return global
	}
	record, err := s.registry.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			observability.LogDecision(ctx, s.logger, slog.LevelWarn, "account_rate_limit_config_lookup_failed", key, "error", err)
		}
		return global
	}
	override, err := config.ParseRateLimitOverride(record.Fields[models.FieldRateLimitConfig])
	if err != nil {
		observability.LogDecision(ctx, s.logger, slog.LevelWarn, "account_rate_limit_config_invalid", key, "error", err)
		return global
	}
	return config.ResolveRateLimit(global, override)
}

// Acquire counts one request against key's window. A full window is either
// rejected immediately or, with queueing on, retried until the queue
// timeout. Store failures are never admitted: the result carries
// rate_limit_backend_error and an unavailable error is returned.
func (s *Service) Acquire(ctx context.Context, key models.AccountKey, requestID string) (res *models.AcquireResult, err error) {
	if err := key.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account key")
	}
	if requestID == "" {
		requestID = s.newID()
	}

	cfg := s.ResolveConfig(ctx, key)
	if !cfg.Enabled {
		s.metrics.IncrementAcquisition("skipped")
		return &models.AcquireResult{Acquired: true, Skipped: true, RequestID: requestID}, nil
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanRateLimitAcquire,
		tracer.String(tracer.AttrAccountType, string(key.Type)),
		tracer.String(tracer.AttrAccountID, key.ID),
	)
	defer func() { span.End(err) }()

	start := s.now()
	deadline := start.Add(cfg.QueueTimeout())
	retries := 0
	// Callers retry with the same request id, so every attempt takes its own
	// entry; Release matches on the request id tag.
	member := models.SlotMember(requestID, s.newID())

	for {
		now := s.now()
		attempt, err := s.window.TryAdd(ctx, key.RateLimitKey(), member, now, cfg.Window(), cfg.MaxRequests)
		if err != nil {
			observability.LogDecision(ctx, s.logger, slog.LevelError, "account_rate_limit_backend_error", key,
				"slot_id", requestID,
				"error", err,
			)
			s.metrics.IncrementAcquisition(string(models.ErrBackendError))
			return s.result(requestID, false, models.ErrBackendError, now.Sub(start), retries),
				dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit store unavailable")
		}

		if attempt.Admitted {
			waited := now.Sub(start)
			if retries > 0 {
				observability.LogDecision(ctx, s.logger, slog.LevelInfo, "account_rate_limit_acquired_after_queue", key,
					"waited_ms", waited.Milliseconds(),
					"retries", retries,
					"current_count", attempt.Count,
				)
				s.metrics.ObserveQueueWait(waited.Seconds())
			}
			s.metrics.IncrementAcquisition("acquired")
			span.SetAttributes(tracer.String(tracer.AttrOutcome, "acquired"), tracer.Int(tracer.AttrRetries, retries))
			return s.result(requestID, true, "", waited, retries), nil
		}

		if !cfg.EnableQueueing {
			observability.LogDecision(ctx, s.logger, slog.LevelWarn, "account_rate_limit_exceeded", key,
				"current_count", attempt.Count,
				"max_requests", cfg.MaxRequests,
				"window_seconds", cfg.WindowSeconds,
			)
			s.metrics.IncrementAcquisition(string(models.ErrRateLimitExceeded))
			span.SetAttributes(tracer.String(tracer.AttrOutcome, string(models.ErrRateLimitExceeded)))
			return s.result(requestID, false, models.ErrRateLimitExceeded, 0, 0), nil
		}

		remaining := deadline.Sub(now)
		wait, fits := s.nextWait(attempt, now, cfg.Window(), retries, remaining)
		if !fits {
			return s.timeout(ctx, key, cfg, requestID, now.Sub(start), retries, attempt.Count), nil
		}

		span.AddEvent(tracer.EventQueued, tracer.Int(tracer.AttrRetries, retries), tracer.Duration(tracer.AttrWaitMs, wait))
		if err := s.sleep(ctx, wait); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "rate limit queue wait interrupted")
		}
		retries++
	}
}

// nextWait picks how long to sleep before the next attempt. When the oldest
// entry tells us when capacity frees up we sleep until then, failing
// immediately if that is past the deadline; otherwise we poll with jittered
// exponential backoff capped to the remaining budget.
func (s *Service) nextWait(attempt *models.WindowAttempt, now time.Time, window time.Duration, retries int, remaining time.Duration) (time.Duration, bool) {
	if remaining <= 0 {
		return 0, false
	}
	if !attempt.Oldest.IsZero() {
		wait := attempt.Oldest.Add(window).Sub(now)
		if wait > remaining {
			return 0, false
		}
		if wait > 0 {
			return wait, true
		}
	}
	wait := Jitter(Backoff(retries), s.random())
	if wait > remaining {
		wait = remaining
	}
	return wait, true
}

func (s *Service) timeout(ctx context.Context, key models.AccountKey, cfg config.RateLimitConfig, requestID string, waited time.Duration, retries, count int) *models.AcquireResult {
	observability.LogDecision(ctx, s.logger, slog.LevelWarn, "account_rate_limit_queue_timeout", key,
		"waited_ms", waited.Milliseconds(),
		"queue_timeout_ms", cfg.QueueTimeoutMs,
		"retries", retries,
		"current_count", count,
		"max_requests", cfg.MaxRequests,
	)
	s.metrics.IncrementAcquisition(string(models.ErrQueueTimeout))
	return s.result(requestID, false, models.ErrQueueTimeout, waited, retries)
}

func (s *Service) result(requestID string, acquired bool, kind models.RateLimitError, waited time.Duration, retries int) *models.AcquireResult {
	return &models.AcquireResult{
		Acquired:  acquired,
		RequestID: requestID,
		Error:     kind,
		Waited:    waited,
		Retries:   retries,
	}
}

// Release removes the oldest entry admitted under requestID from key's window
// ahead of expiry.
func (s *Service) Release(ctx context.Context, key models.AccountKey, requestID string) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account key")
	}
	if requestID == "" {
		return false, dErrors.New(dErrors.CodeBadRequest, "request id is required")
	}
	removed, err := s.window.Remove(ctx, key.RateLimitKey(), requestID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit store unavailable")
	}
	if removed {
		s.metrics.IncrementReleases()
		observability.LogDecision(ctx, s.logger, slog.LevelDebug, "account_rate_limit_released", key, "slot_id", requestID)
	}
	return removed, nil
}

// Status is a read-only projection of key's window.
func (s *Service) Status(ctx context.Context, key models.AccountKey) (*models.RateLimitStatus, error) {
	if err := key.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account key")
	}
	cfg := s.ResolveConfig(ctx, key)
	now := s.now()
	attempt, err := s.window.Count(ctx, key.RateLimitKey(), now, cfg.Window())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit store unavailable")
	}
	status := &models.RateLimitStatus{
		Enabled:       cfg.Enabled,
		CurrentCount:  attempt.Count,
		MaxRequests:   cfg.MaxRequests,
		WindowSeconds: cfg.WindowSeconds,
		IsLimited:     cfg.Enabled && attempt.Count >= cfg.MaxRequests,
	}
	if !attempt.Oldest.IsZero() {
		oldest := attempt.Oldest
		status.OldestRequest = &oldest
		if reset := oldest.Add(cfg.Window()).Sub(now); reset > 0 {
			status.ResetIn = reset
		}
	}
	return status, nil
}
