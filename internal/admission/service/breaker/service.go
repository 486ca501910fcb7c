// Package breaker suspends accounts that keep returning authorization
// failures and promotes them to half_open once their cooldown has elapsed.
//
// Breaker state lives on the account record as three hash fields; the
// rolling error window lives in its own sorted set. Both degrade to
// process-local copies while the shared store is unreachable.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"relaygate/internal/admission/clock"
	"relaygate/internal/admission/config"
	"relaygate/internal/admission/metrics"
	"relaygate/internal/admission/models"
	"relaygate/internal/admission/observability"
	"relaygate/internal/admission/ports"
	"relaygate/internal/admission/store/fallback"
	"relaygate/internal/admission/store/window"
	"relaygate/internal/admission/storehealth"
	"relaygate/internal/admission/tracer"
	dErrors "relaygate/pkg/domain-errors"
	"relaygate/pkg/platform/sentinel"
)

const (
	componentState  = "breaker_state"
	componentErrors = "breaker_errors"

	// localStateTTL is the minimum lifetime of a mirrored breaker record.
	localStateTTL = 24 * time.Hour
)

type Service struct {
	registry    ports.AccountRegistry
	errors      ports.WindowStore
	config      ports.ConfigProvider
	localErrors ports.WindowStore
	localState  *fallback.Cache[models.BreakerRecord]
	owned       []func()

	stateHealth  *storehealth.Tracker
	errorsHealth *storehealth.Tracker
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       tracer.Tracer
	now          clock.NowFunc
	newID        func() string
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

// WithFallback supplies the process-local error window and state cache used
// while the shared store is unreachable. Without it the service creates and
// owns its own, released by Stop.
func WithFallback(errs ports.WindowStore, state *fallback.Cache[models.BreakerRecord]) Option {
	return func(s *Service) {
		if errs != nil {
			s.localErrors = errs
		}
		if state != nil {
			s.localState = state
		}
	}
}

func New(registry ports.AccountRegistry, errs ports.WindowStore, cfg ports.ConfigProvider, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("account registry is required")
	}
	if errs == nil {
		return nil, fmt.Errorf("error window store is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config provider is required")
	}
	svc := &Service{
		registry: registry,
		errors:   errs,
		config:   cfg,
		logger:   slog.Default(),
		tracer:   tracer.NewNoop(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	sweep := cfg.Global().Fallback.SweepInterval
	if svc.localErrors == nil {
		local := window.NewMemory(sweep)
		svc.localErrors = local
		svc.owned = append(svc.owned, local.Close)
	}
	if svc.localState == nil {
		local := fallback.New(fallback.WithSweepInterval[models.BreakerRecord](sweep), fallback.WithNow[models.BreakerRecord](svc.now))
		svc.localState = local
		svc.owned = append(svc.owned, local.Close)
	}
	svc.stateHealth = storehealth.New(componentState, svc.logger, svc.metrics)
	svc.errorsHealth = storehealth.New(componentErrors, svc.logger, svc.metrics)
	return svc, nil
}

// Stop stops fallback janitors created by New.
func (s *Service) Stop() {
	for _, stop := range s.owned {
		stop()
	}
	s.owned = nil
}

// Degraded reports whether the breaker state or error window is being served
// from local state.
func (s *Service) Degraded() bool {
	return s.stateHealth.Degraded() || s.errorsHealth.Degraded()
}

// snapshot is the breaker view of one account at the start of an operation.
type snapshot struct {
	record   *models.AccountRecord
	breaker  models.BreakerRecord
	config   config.CircuitBreakerConfig
	degraded bool
}

func (s *Service) load(ctx context.Context, key models.AccountKey) snapshot {
	global := s.config.Global().CircuitBreaker
	record, err := s.registry.Get(ctx, key)
	switch {
	case err == nil:
		s.stateHealth.Observe(ctx, nil)
		br := parseBreaker(record.Fields)
		s.mirror(key, br)
		return snapshot{record: record, breaker: br, config: s.resolve(ctx, key, global, record)}
	case errors.Is(err, sentinel.ErrNotFound):
		s.stateHealth.Observe(ctx, nil)
		return snapshot{breaker: models.BreakerRecord{State: models.BreakerClosed}, config: global}
	default:
		s.stateHealth.Observe(ctx, err)
		br, ok := s.localState.Get(key.String())
		if !ok {
			br = models.BreakerRecord{State: models.BreakerClosed}
		}
		return snapshot{breaker: br, config: global, degraded: true}
	}
}

func (s *Service) resolve(ctx context.Context, key models.AccountKey, global config.CircuitBreakerConfig, record *models.AccountRecord) config.CircuitBreakerConfig {
	override, err := config.ParseCircuitBreakerOverride(record.Fields[models.FieldBreakerConfig])
	if err != nil {
		observability.LogDecision(ctx, s.logger, slog.LevelWarn, "circuit_breaker_config_invalid", key, "error", err)
		return global
	}
	return config.ResolveCircuitBreaker(global, override)
}

// ResolveConfig returns the effective breaker config for key.
func (s *Service) ResolveConfig(ctx context.Context, key models.AccountKey) config.CircuitBreakerConfig {
	return s.load(ctx, key).config
}

// Record403Error appends one failure to key's rolling error window and opens
// the breaker once the window holds threshold failures.
func (s *Service) Record403Error(ctx context.Context, key models.AccountKey) (res *models.RecordErrorResult, err error) {
	if err := key.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account key")
	}
	snap := s.load(ctx, key)
	cfg := snap.config
	if !cfg.Enabled {
		return &models.RecordErrorResult{State: models.BreakerDisabled, Threshold: cfg.Threshold}, nil
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanBreakerRecord,
		tracer.String(tracer.AttrAccountType, string(key.Type)),
		tracer.String(tracer.AttrAccountID, key.ID),
	)
	defer func() { span.End(err) }()

	now := s.now()
	member := s.newID()
	attempt, degraded := s.appendError(ctx, key, member, now, cfg.Window())
	s.metrics.IncrementBreakerErrors()

	// below the threshold the result is always closed; the stored state is
	// left untouched and reported by Status.
	res = &models.RecordErrorResult{
		ErrorCount: attempt.Count,
		Threshold:  cfg.Threshold,
		State:      models.BreakerClosed,
		Degraded:   degraded || snap.degraded,
	}
	observability.LogDecision(ctx, s.logger, slog.LevelInfo, "circuit_breaker_error_recorded", key,
		"error_count", attempt.Count,
		"threshold", cfg.Threshold,
		"window_seconds", cfg.WindowSeconds,
		"degraded", res.Degraded,
	)
	span.SetAttributes(tracer.Int(tracer.AttrErrorCount, attempt.Count), tracer.Bool(tracer.AttrDegraded, res.Degraded))

	if attempt.Count < cfg.Threshold {
		return res, nil
	}
	rec, opened, err := s.open(ctx, key, cfg, now)
	if err != nil {
		return nil, err
	}
	span.AddEvent(tracer.EventBreakerOpened, tracer.Duration(tracer.AttrWaitMs, cfg.Duration()))
	res.Triggered = true
	res.State = rec.State
	res.Degraded = res.Degraded || !opened
	return res, nil
}

// appendError writes to the shared window and mirrors into the local one.
// The local count answers only when the shared store failed.
func (s *Service) appendError(ctx context.Context, key models.AccountKey, member string, now time.Time, w time.Duration) (*models.WindowAttempt, bool) {
	attempt, err := s.errors.TryAdd(ctx, key.ErrorWindowKey(), member, now, w, 0)
	s.errorsHealth.Observe(ctx, err)
	local, localErr := s.localErrors.TryAdd(ctx, key.ErrorWindowKey(), member, now, w, 0)
	if err == nil {
		return attempt, false
	}
	observability.LogDecision(ctx, s.logger, slog.LevelWarn, "circuit_breaker_error_window_fallback", key, "error", err)
	if localErr != nil {
		return &models.WindowAttempt{}, true
	}
	return local, true
}

// Open forces key's breaker open for the configured duration. Calling it on
// an already open breaker refreshes the cooldown.
func (s *Service) Open(ctx context.Context, key models.AccountKey) (*models.BreakerRecord, error) {
	if err := key.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account key")
	}
	cfg := s.load(ctx, key).config
	rec, _, err := s.open(ctx, key, cfg, s.now())
	return rec, err
}

func (s *Service) open(ctx context.Context, key models.AccountKey, cfg config.CircuitBreakerConfig, now time.Time) (*models.BreakerRecord, bool, error) {
	openUntil := now.Add(cfg.Duration())
	rec := models.BreakerRecord{State: models.BreakerOpen, OpenAt: &now, OpenUntil: &openUntil}
	stored, err := s.write(ctx, key, rec)
	if err != nil {
		return nil, false, err
	}
	observability.LogDecision(ctx, s.logger, slog.LevelWarn, "circuit_breaker_opened", key,
		"open_until", openUntil.UnixMilli(),
		"breaker_duration_minutes", cfg.BreakerDurationMinutes,
		"threshold", cfg.Threshold,
		"degraded", !stored,
	)
	s.metrics.IncrementBreakerTransition(string(models.BreakerOpen))
	return &rec, stored, nil
}

// HalfOpen marks key as probing. Error history is kept.
func (s *Service) HalfOpen(ctx context.Context, key models.AccountKey) error {
	if err := key.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account key")
	}
	rec := s.load(ctx, key).breaker
	rec.State = models.BreakerHalfOpen
	if _, err := s.write(ctx, key, rec); err != nil {
		return err
	}
	observability.LogDecision(ctx, s.logger, slog.LevelInfo, "circuit_breaker_half_open", key)
	s.metrics.IncrementBreakerTransition(string(models.BreakerHalfOpen))
	return nil
}

// Close resets key to closed and clears its error history. It is the only
// operation that clears history and is safe to repeat.
func (s *Service) Close(ctx context.Context, key models.AccountKey) error {
	if err := key.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account key")
	}
	err := s.errors.Clear(ctx, key.ErrorWindowKey())
	s.errorsHealth.Observe(ctx, err)
	if err != nil {
		observability.LogDecision(ctx, s.logger, slog.LevelWarn, "circuit_breaker_error_window_fallback", key, "error", err)
	}
	_ = s.localErrors.Clear(ctx, key.ErrorWindowKey())

	if _, err := s.write(ctx, key, models.BreakerRecord{State: models.BreakerClosed}); err != nil {
		return err
	}
	observability.LogDecision(ctx, s.logger, slog.LevelInfo, "circuit_breaker_closed", key)
	s.metrics.IncrementBreakerTransition(string(models.BreakerClosed))
	return nil
}

// write persists rec's fields on the account record and mirrors them locally.
// It reports false when only the local copy was updated.
func (s *Service) write(ctx context.Context, key models.AccountKey, rec models.BreakerRecord) (bool, error) {
	err := s.registry.UpdateFields(ctx, key, breakerFields(rec))
	switch {
	case err == nil:
		s.stateHealth.Observe(ctx, nil)
		s.mirror(key, rec)
		return true, nil
	case errors.Is(err, sentinel.ErrNotFound):
		s.stateHealth.Observe(ctx, nil)
		return false, dErrors.Wrap(err, dErrors.CodeNotFound, "account not found")
	default:
		s.stateHealth.Observe(ctx, err)
		observability.LogDecision(ctx, s.logger, slog.LevelWarn, "circuit_breaker_state_fallback", key,
			"state", string(rec.State),
			"error", err,
		)
		s.mirror(key, rec)
		return false, nil
	}
}

func (s *Service) mirror(key models.AccountKey, rec models.BreakerRecord) {
	ttl := localStateTTL
	if r := rec.Remaining(s.now()) + time.Hour; r > ttl {
		ttl = r
	}
	s.localState.Set(key.String(), rec, ttl)
}

// CheckAndRecover promotes an open breaker whose cooldown has elapsed to
// half_open. The promotion is guarded on the persisted state and openUntil
// so concurrent checks promote at most once.
func (s *Service) CheckAndRecover(ctx context.Context, key models.AccountKey) (res *models.RecoverResult, err error) {
	if err := key.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account key")
	}
	snap := s.load(ctx, key)
	if !snap.config.Enabled {
		return &models.RecoverResult{State: models.BreakerDisabled}, nil
	}
	br := snap.breaker
	if br.State != models.BreakerOpen {
		return &models.RecoverResult{State: br.State}, nil
	}
	now := s.now()
	if remaining := br.Remaining(now); remaining > 0 {
		return &models.RecoverResult{State: models.BreakerOpen, Remaining: remaining}, nil
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanBreakerRecover,
		tracer.String(tracer.AttrAccountType, string(key.Type)),
		tracer.String(tracer.AttrAccountID, key.ID),
	)
	defer func() { span.End(err) }()

	if snap.degraded {
		return s.recoverLocal(ctx, key, now, span), nil
	}

	guards := map[string]string{
		models.FieldBreakerState:     string(models.BreakerOpen),
		models.FieldBreakerOpenUntil: snap.record.Fields[models.FieldBreakerOpenUntil],
	}
	half := string(models.BreakerHalfOpen)
	applied, err := s.registry.CompareAndUpdate(ctx, key, guards, map[string]*string{models.FieldBreakerState: &half})
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		s.stateHealth.Observe(ctx, nil)
		return &models.RecoverResult{State: models.BreakerClosed}, nil
	case err != nil:
		s.stateHealth.Observe(ctx, err)
		observability.LogDecision(ctx, s.logger, slog.LevelWarn, "circuit_breaker_state_fallback", key, "error", err)
		return s.recoverLocal(ctx, key, now, span), nil
	}
	s.stateHealth.Observe(ctx, nil)

	if !applied {
		// Someone else moved the breaker first; report what they left.
		current := s.load(ctx, key).breaker
		return &models.RecoverResult{State: current.State, Remaining: current.Remaining(now)}, nil
	}

	br.State = models.BreakerHalfOpen
	s.mirror(key, br)
	s.recovered(ctx, key, span, false)
	return &models.RecoverResult{Recovered: true, State: models.BreakerHalfOpen}, nil
}

func (s *Service) recoverLocal(ctx context.Context, key models.AccountKey, now time.Time, span tracer.Span) *models.RecoverResult {
	res := &models.RecoverResult{State: models.BreakerClosed}
	s.localState.Update(key.String(), func(cur models.BreakerRecord, found bool) (models.BreakerRecord, time.Duration, bool) {
		if !found {
			return cur, 0, false
		}
		res.State = cur.State
		if cur.State != models.BreakerOpen {
			return cur, 0, false
		}
		if remaining := cur.Remaining(now); remaining > 0 {
			res.Remaining = remaining
			return cur, 0, false
		}
		cur.State = models.BreakerHalfOpen
		res.State = models.BreakerHalfOpen
		res.Recovered = true
		return cur, localStateTTL, true
	})
	if res.Recovered {
		s.recovered(ctx, key, span, true)
	}
	return res
}

func (s *Service) recovered(ctx context.Context, key models.AccountKey, span tracer.Span, degraded bool) {
	observability.LogDecision(ctx, s.logger, slog.LevelInfo, "circuit_breaker_half_open", key, "degraded", degraded)
	s.metrics.IncrementBreakerTransition(string(models.BreakerHalfOpen))
	span.SetAttributes(tracer.String(tracer.AttrState, string(models.BreakerHalfOpen)), tracer.Bool(tracer.AttrDegraded, degraded))
}

// Status combines persisted state, the live error count and the resolved
// config. RemainingMs is only set while open.
func (s *Service) Status(ctx context.Context, key models.AccountKey) (*models.BreakerStatus, error) {
	if err := key.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account key")
	}
	snap := s.load(ctx, key)
	cfg := snap.config
	now := s.now()

	attempt, err := s.errors.Count(ctx, key.ErrorWindowKey(), now, cfg.Window())
	s.errorsHealth.Observe(ctx, err)
	if err != nil {
		attempt, err = s.localErrors.Count(ctx, key.ErrorWindowKey(), now, cfg.Window())
		if err != nil {
			attempt = &models.WindowAttempt{}
		}
	}

	status := &models.BreakerStatus{
		Enabled:         cfg.Enabled,
		State:           snap.breaker.State,
		ErrorCount:      attempt.Count,
		Threshold:       cfg.Threshold,
		WindowSeconds:   cfg.WindowSeconds,
		DurationMinutes: cfg.BreakerDurationMinutes,
		AutoRecovery:    cfg.AutoRecovery,
		OpenAt:          snap.breaker.OpenAt,
		OpenUntil:       snap.breaker.OpenUntil,
	}
	if !cfg.Enabled {
		status.State = models.BreakerDisabled
	}
	if status.State == models.BreakerOpen {
		status.Remaining = snap.breaker.Remaining(now)
		ms := status.Remaining.Milliseconds()
		status.RemainingMs = &ms
	}
	return status, nil
}

func breakerFields(rec models.BreakerRecord) map[string]*string {
	state := string(rec.State)
	return map[string]*string{
		models.FieldBreakerState:     &state,
		models.FieldBreakerOpenAt:    formatMillis(rec.OpenAt),
		models.FieldBreakerOpenUntil: formatMillis(rec.OpenUntil),
	}
}

func parseBreaker(fields map[string]string) models.BreakerRecord {
	return models.BreakerRecord{
		State:     models.ParseBreakerState(fields[models.FieldBreakerState]),
		OpenAt:    parseMillis(fields[models.FieldBreakerOpenAt]),
		OpenUntil: parseMillis(fields[models.FieldBreakerOpenUntil]),
	}
}

func formatMillis(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := strconv.FormatInt(t.UnixMilli(), 10)
	return &v
}

func parseMillis(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}
