// Package recovery runs the periodic circuit breaker auto-recovery sweep.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"relaygate/internal/admission/metrics"
	"relaygate/internal/admission/models"
	"relaygate/internal/admission/ports"
	"relaygate/internal/admission/tracer"
)

// ErrAlreadyRunning is returned by Start while a previous Start is active.
var ErrAlreadyRunning = errors.New("recovery sweep already running")

// Recoverer promotes one account whose cooldown has elapsed.
type Recoverer interface {
	CheckAndRecover(ctx context.Context, key models.AccountKey) (*models.RecoverResult, error)
}

// AccountLister enumerates account ids in one partition.
type AccountLister interface {
	ListAccountIDs(ctx context.Context, accountType models.AccountType) ([]string, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInterval overrides the configured sweep interval.
func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
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

type Service struct {
	breaker  Recoverer
	accounts AccountLister
	config   ports.ConfigProvider
	logger   *slog.Logger
	interval time.Duration
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	tracer   tracer.Tracer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(breaker Recoverer, accounts AccountLister, cfg ports.ConfigProvider, opts ...Option) (*Service, error) {
	if breaker == nil || accounts == nil {
		return nil, fmt.Errorf("breaker and account lister are required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config provider is required")
	}
	sweep := cfg.Global().Sweep
	limit := rate.Inf
	if sweep.AccountsPerSecond > 0 {
		limit = rate.Limit(sweep.AccountsPerSecond)
	}
	service := &Service{
		breaker:  breaker,
		accounts: accounts,
		config:   cfg,
		logger:   slog.Default(),
		interval: sweep.Interval,
		limiter:  rate.NewLimiter(limit, 1),
		tracer:   tracer.NewNoop(),
	}
	if service.interval <= 0 {
		service.interval = 5 * time.Minute
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Start runs a sweep every interval until ctx is cancelled or Stop is called.
// It returns nil when stopped through Stop.
func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		cancel()
		return ErrAlreadyRunning
	}
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.cancel, s.done = nil, nil
		s.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("breaker_sweep_started", "interval", s.interval.String())
	for {
		select {
		case <-ticker.C:
			startTime := time.Now()
			res, err := s.RunOnce(runCtx)
			duration := time.Since(startTime)

			if err != nil {
				if runCtx.Err() != nil {
					continue
				}
				s.logger.Error("breaker_sweep_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				s.observe("error", duration, 0)
				continue
			}
			if res.Skipped {
				continue
			}

			s.logger.Info("breaker_sweep_completed",
				"accounts_scanned", res.Scanned,
				"accounts_recovered", res.Recovered,
				"accounts_failed", res.Failed,
				"duration_ms", duration.Milliseconds(),
			)
			s.observe("success", duration, res.Recovered)

		case <-runCtx.Done():
			s.logger.Info("breaker sweep worker stopping", "reason", runCtx.Err())
			return ctx.Err()
		}
	}
}

// Stop cancels a running Start and waits for it to return.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Service) observe(status string, duration time.Duration, recovered int) {
	if s.metrics == nil {
		return
	}
	s.metrics.BreakerSweepRunsTotal.WithLabelValues(status).Inc()
	s.metrics.BreakerSweepDurationSeconds.Observe(duration.Seconds())
	s.metrics.BreakerSweepRecoveredTotal.Add(float64(recovered))
}

// RunOnce sweeps every account partition sequentially. A failing partition or
// account is counted and skipped; an error is returned only when nothing
// could be scanned or ctx ended. Logging of the run is left to Start.
func (s *Service) RunOnce(ctx context.Context) (res *models.SweepResult, err error) {
	cfg := s.config.Global().CircuitBreaker
	if !cfg.Enabled || !cfg.AutoRecovery {
		return &models.SweepResult{Skipped: true}, nil
	}

	started := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanBreakerSweep)
	defer func() {
		res.Duration = time.Since(started)
		span.End(err)
	}()

	res = &models.SweepResult{}
	var partitionErrs []error
	for _, accountType := range models.AllAccountTypes() {
		ids, err := s.accounts.ListAccountIDs(ctx, accountType)
		if err != nil {
			s.logger.WarnContext(ctx, "breaker_sweep_partition_failed",
				"account_type", string(accountType),
				"error", err,
			)
			partitionErrs = append(partitionErrs, fmt.Errorf("list %s accounts: %w", accountType, err))
			continue
		}
		for _, id := range ids {
			if err := s.limiter.Wait(ctx); err != nil {
				return res, err
			}
			res.Scanned++
			outcome, err := s.breaker.CheckAndRecover(ctx, models.AccountKey{Type: accountType, ID: id})
			if err != nil {
				res.Failed++
				s.logger.WarnContext(ctx, "breaker_sweep_account_failed",
					"account_type", string(accountType),
					"account_id", id,
					"error", err,
				)
				continue
			}
			if outcome.Recovered {
				res.Recovered++
			}
		}
	}
	span.SetAttributes(tracer.Int("sweep.scanned", res.Scanned), tracer.Int("sweep.recovered", res.Recovered))

	if res.Scanned == 0 && len(partitionErrs) == len(models.AllAccountTypes()) {
		return res, errors.Join(partitionErrs...)
	}
	return res, nil
}
