// Package pacing spaces consecutive requests for the same account, either one
// per wall-clock second or at least a fixed interval apart.
package pacing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"relaygate/internal/admission/clock"
	"relaygate/internal/admission/metrics"
	"relaygate/internal/admission/models"
	"relaygate/internal/admission/observability"
	"relaygate/internal/admission/ports"
	pacingstore "relaygate/internal/admission/store/pacing"
	"relaygate/internal/admission/storehealth"
	"relaygate/internal/admission/tracer"
	dErrors "relaygate/pkg/domain-errors"
)

const (
	component = "pacing"
	// stampTTL bounds how long an unconditional activity stamp is kept.
	stampTTL = 6 * time.Second
)

type Service struct {
	store    ports.PacingStore
	fallback ports.PacingStore
	health   *storehealth.Tracker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
	now      clock.NowFunc
	sleep    clock.SleepFunc
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

// New builds the pacing guard. fallback serves decisions while store is
// unreachable and receives a copy of every successful reservation.
func New(store, fallback ports.PacingStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("pacing store is required")
	}
	if fallback == nil {
		return nil, fmt.Errorf("pacing fallback store is required")
	}
	svc := &Service{
		store:    store,
		fallback: fallback,
		logger:   slog.Default(),
		tracer:   tracer.NewNoop(),
		now:      time.Now,
		sleep:    clock.Sleep,
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.health = storehealth.New(component, svc.logger, svc.metrics)
	return svc, nil
}

// CheckAndWait admits a request for key once the pacing rule allows it.
// minInterval = 0 selects same-second mode. When the required wait exceeds
// maxWait the call returns immediately with Allowed=false and nothing is recorded.
func (s *Service) CheckAndWait(ctx context.Context, key models.AccountKey, maxWait, minInterval time.Duration) (res *models.PacingResult, err error) {
	if err := key.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account key")
	}
	if maxWait < 0 || minInterval < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "pacing durations must not be negative")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanPacingCheck,
		tracer.String(tracer.AttrAccountType, string(key.Type)),
		tracer.String(tracer.AttrAccountID, key.ID),
	)
	defer func() { span.End(err) }()

	start := s.now()
	allowed, wait, degraded := s.reserve(ctx, key, start, minInterval, maxWait)
	if degraded {
		span.AddEvent(tracer.EventFallbackUsed)
	}
	span.SetAttributes(tracer.Bool(tracer.AttrAllowed, allowed), tracer.Duration(tracer.AttrWaitMs, wait))

	mode := "same_second"
	if minInterval > 0 {
		mode = "min_interval"
	}

	if !allowed {
		observability.LogDecision(ctx, s.logger, slog.LevelWarn, "pacing_wait_exceeded", key,
			"mode", mode,
			"required_wait_ms", wait.Milliseconds(),
			"max_wait_ms", maxWait.Milliseconds(),
			"degraded", degraded,
		)
		s.metrics.IncrementPacingDecision("rejected")
		return &models.PacingResult{Allowed: false, Required: wait, Degraded: degraded}, nil
	}

	if wait <= 0 {
		s.metrics.IncrementPacingDecision("immediate")
		return &models.PacingResult{Allowed: true, Degraded: degraded}, nil
	}

	if err := s.sleep(ctx, wait); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "pacing wait interrupted")
	}
	waited := s.now().Sub(start)
	observability.LogDecision(ctx, s.logger, slog.LevelInfo, "pacing_waited", key,
		"mode", mode,
		"required_wait_ms", wait.Milliseconds(),
		"waited_ms", waited.Milliseconds(),
		"degraded", degraded,
	)
	s.metrics.IncrementPacingDecision("waited")
	s.metrics.ObservePacingWait(waited.Seconds())
	return &models.PacingResult{Allowed: true, Waited: waited, Required: wait, Degraded: degraded}, nil
}

// Degraded reports whether the last shared-store call fell back to local state.
func (s *Service) Degraded() bool {
	return s.health.Degraded()
}

// RecordRequest stamps now as the last activity for key without gating. A
// later slot already reserved by a waiting caller is kept.
func (s *Service) RecordRequest(ctx context.Context, key models.AccountKey) error {
	if err := key.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account key")
	}
	now := s.now()
	err := s.store.Stamp(ctx, key.PacingKey(), now, stampTTL)
	s.health.Observe(ctx, err)
	_ = s.fallback.Stamp(ctx, key.PacingKey(), now, stampTTL)
	if err != nil {
		observability.LogDecision(ctx, s.logger, slog.LevelWarn, "pacing_record_degraded", key, "error", err)
	}
	return nil
}

// reserve tries the shared store first and falls back to local state for
// this call only when the store fails.
func (s *Service) reserve(ctx context.Context, key models.AccountKey, now time.Time, minInterval, maxWait time.Duration) (allowed bool, wait time.Duration, degraded bool) {
	allowed, wait, err := s.store.Reserve(ctx, key.PacingKey(), now, minInterval, maxWait)
	s.health.Observe(ctx, err)
	if err == nil {
		if allowed {
			// keep local state close enough to take over during an outage
			_ = s.fallback.Stamp(ctx, key.PacingKey(), now.Add(wait), wait+pacingstore.HoldFor(minInterval))
		}
		return allowed, wait, false
	}

	allowed, wait, _ = s.fallback.Reserve(ctx, key.PacingKey(), now, minInterval, maxWait)
	return allowed, wait, true
}
