// Package gate is the dispatch-path entry point to admission control.
//
// A dispatcher asks Eligible while choosing an account, calls Admit before
// sending, ReportResponse with the upstream status, and Done when finished.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"relaygate/internal/admission/models"
	"relaygate/internal/admission/observability"
	"relaygate/internal/admission/ports"
	"relaygate/pkg/requestcontext"
)

//go:generate mockgen -source=gate.go -destination=mocks/mocks.go -package=mocks PacingGuard,RateLimiter,Breaker

// PacingGuard spaces requests for one account.
type PacingGuard interface {
	CheckAndWait(ctx context.Context, key models.AccountKey, maxWait, minInterval time.Duration) (*models.PacingResult, error)
	RecordRequest(ctx context.Context, key models.AccountKey) error
}

// RateLimiter caps requests per account window.
type RateLimiter interface {
	Acquire(ctx context.Context, key models.AccountKey, requestID string) (*models.AcquireResult, error)
	Release(ctx context.Context, key models.AccountKey, requestID string) (bool, error)
}

// Breaker tracks authorization failures per account.
type Breaker interface {
	Record403Error(ctx context.Context, key models.AccountKey) (*models.RecordErrorResult, error)
	CheckAndRecover(ctx context.Context, key models.AccountKey) (*models.RecoverResult, error)
}

// Reason names why a request was not admitted.
type Reason string

const (
	ReasonPacing       Reason = "pacing_wait_exceeded"
	ReasonRateLimited  Reason = Reason(models.ErrRateLimitExceeded)
	ReasonQueueTimeout Reason = Reason(models.ErrQueueTimeout)
	ReasonBackendError Reason = Reason(models.ErrBackendError)
)

// Pacing overrides the configured pacing parameters for one call.
// MinInterval = 0 selects same-second pacing.
type Pacing struct {
	MaxWait     time.Duration
	MinInterval time.Duration
}

// Admission is the combined outcome of pacing and rate limiting.
type Admission struct {
	Admitted  bool
	Reason    Reason
	RequestID string
	Pacing    *models.PacingResult
	RateLimit *models.AcquireResult
}

type Gate struct {
	pacing  PacingGuard
	limiter RateLimiter
	breaker Breaker
	config  ports.ConfigProvider
	logger  *slog.Logger
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func New(pacing PacingGuard, limiter RateLimiter, breaker Breaker, cfg ports.ConfigProvider, opts ...Option) (*Gate, error) {
	if pacing == nil || limiter == nil || breaker == nil {
		return nil, fmt.Errorf("pacing guard, rate limiter and breaker are required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config provider is required")
	}
	g := &Gate{
		pacing:  pacing,
		limiter: limiter,
		breaker: breaker,
		config:  cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Admit runs the pacing guard and then the rate limiter for key. A nil pacing
// uses the configured defaults. The rate-limit slot id is the request id
// carried by ctx when there is one.
func (g *Gate) Admit(ctx context.Context, key models.AccountKey, pacing *Pacing) (*Admission, error) {
	if pacing == nil {
		cfg := g.config.Global().Pacing
		pacing = &Pacing{
			MaxWait:     time.Duration(cfg.MaxWaitMs) * time.Millisecond,
			MinInterval: time.Duration(cfg.MinIntervalMs) * time.Millisecond,
		}
	}

	paced, err := g.pacing.CheckAndWait(ctx, key, pacing.MaxWait, pacing.MinInterval)
	if err != nil {
		return nil, err
	}
	adm := &Admission{Pacing: paced}
	if !paced.Allowed {
		adm.Reason = ReasonPacing
		return adm, nil
	}

	acquired, err := g.limiter.Acquire(ctx, key, requestcontext.RequestID(ctx))
	adm.RateLimit = acquired
	if acquired != nil {
		adm.RequestID = acquired.RequestID
	}
	if err != nil {
		adm.Reason = ReasonBackendError
		return adm, err
	}
	if !acquired.Acquired {
		adm.Reason = Reason(acquired.Error)
		return adm, nil
	}
	adm.Admitted = true
	return adm, nil
}

// Eligible reports whether key may be selected. It promotes an expired open
// breaker on the way; half_open is eligible and left for the caller to
// interpret.
func (g *Gate) Eligible(ctx context.Context, key models.AccountKey) (bool, *models.RecoverResult, error) {
	res, err := g.breaker.CheckAndRecover(ctx, key)
	if err != nil {
		return false, nil, err
	}
	return res.State != models.BreakerOpen, res, nil
}

// ReportResponse feeds an upstream status code to the breaker. Only 403
// responses count; the result is nil for anything else.
func (g *Gate) ReportResponse(ctx context.Context, key models.AccountKey, status int) (*models.RecordErrorResult, error) {
	if status != http.StatusForbidden {
		return nil, nil
	}
	res, err := g.breaker.Record403Error(ctx, key)
	if err != nil {
		return nil, err
	}
	if res.Triggered {
		observability.LogDecision(ctx, g.logger, slog.LevelWarn, "account_suspended", key,
			"error_count", res.ErrorCount,
			"threshold", res.Threshold,
		)
	}
	return res, nil
}

// RecordActivity tells pacing that key sent a request that bypassed Admit,
// such as a token refresh, so the next admitted request is spaced from it.
func (g *Gate) RecordActivity(ctx context.Context, key models.AccountKey) error {
	return g.pacing.RecordRequest(ctx, key)
}

// Done releases the rate-limit slot requestID took in Admit.
func (g *Gate) Done(ctx context.Context, key models.AccountKey, requestID string) error {
	if requestID == "" {
		return nil
	}
	_, err := g.limiter.Release(ctx, key, requestID)
	return err
}
