// Package app assembles the admission services on a shared Redis store and
// exposes them as one HTTP handler plus the background sweep.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"relaygate/internal/admission/clock"
	"relaygate/internal/admission/gate"
	admissionhandler "relaygate/internal/admission/handler"
	"relaygate/internal/admission/metrics"
	"relaygate/internal/admission/ports"
	"relaygate/internal/admission/service/accountlimit"
	"relaygate/internal/admission/service/breaker"
	pacingservice "relaygate/internal/admission/service/pacing"
	"relaygate/internal/admission/store/fallback"
	pacingstore "relaygate/internal/admission/store/pacing"
	"relaygate/internal/admission/store/registry"
	"relaygate/internal/admission/store/window"
	"relaygate/internal/admission/tracer"
	"relaygate/internal/admission/workers/recovery"
	"relaygate/internal/platform/health"
	httpmetrics "relaygate/internal/platform/metrics"
	httptransport "relaygate/internal/transport/http"
)

type Options struct {
	Logger      *slog.Logger
	Registry    *prometheus.Registry
	Tracer      tracer.Tracer
	AdminToken  string
	Environment string
	// RequestTimeout bounds every HTTP request; zero selects a value above
	// the longest configured admission wait.
	RequestTimeout time.Duration
	// BreakerNow replaces the breaker clock, used to step through cooldowns.
	BreakerNow clock.NowFunc
	// HealthChecks are registered on the readiness endpoint.
	HealthChecks map[string]health.CheckFunc
}

type App struct {
	Handler  http.Handler
	Registry ports.AccountRegistry
	Gate     *gate.Gate
	Breaker  *breaker.Service
	Limiter  *accountlimit.Service
	Pacing   *pacingservice.Service
	Sweep    *recovery.Service

	pacingCache *fallback.Cache[int64]
}

// New wires every admission component onto client.
func New(client *goredis.Client, cfg ports.ConfigProvider, opts Options) (*App, error) {
	if client == nil || cfg == nil {
		return nil, fmt.Errorf("redis client and config provider are required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	tr := opts.Tracer
	if tr == nil {
		tr = tracer.NewNoop()
	}
	m := metrics.New(reg)
	global := cfg.Global()

	a := &App{Registry: registry.NewRedis(client)}

	a.pacingCache = fallback.New(fallback.WithSweepInterval[int64](global.Fallback.SweepInterval))
	pacer, err := pacingservice.New(pacingstore.NewRedis(client), pacingstore.NewMemory(a.pacingCache),
		pacingservice.WithLogger(log),
		pacingservice.WithMetrics(m),
		pacingservice.WithTracer(tr),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Pacing = pacer

	a.Limiter, err = accountlimit.New(window.NewRedis(client), cfg,
		accountlimit.WithLogger(log),
		accountlimit.WithMetrics(m),
		accountlimit.WithTracer(tr),
		accountlimit.WithRegistry(a.Registry),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Breaker, err = breaker.New(a.Registry, window.NewRedis(client), cfg,
		breaker.WithLogger(log),
		breaker.WithMetrics(m),
		breaker.WithTracer(tr),
		breaker.WithNow(opts.BreakerNow),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Gate, err = gate.New(a.Pacing, a.Limiter, a.Breaker, cfg, gate.WithLogger(log))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Sweep, err = recovery.New(a.Breaker, a.Registry, cfg,
		recovery.WithLogger(log),
		recovery.WithMetrics(m),
		recovery.WithTracer(tr),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	healthHandler := health.New(opts.Environment)
	for name, check := range opts.HealthChecks {
		healthHandler.RegisterCheck(name, check)
	}
	healthHandler.RegisterDegradation("pacing", a.Pacing.Degraded)
	healthHandler.RegisterDegradation("circuit_breaker", a.Breaker.Degraded)

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = requestTimeout(global.Pacing.MaxWaitMs, global.RateLimit.QueueTimeoutMs)
	}
	a.Handler = httptransport.NewRouter(httptransport.Deps{
		Admission:  admissionhandler.New(a.Breaker, a.Limiter, a.Sweep, a.Gate, log),
		Health:     healthHandler,
		Metrics:    httpmetrics.New(reg),
		Gatherer:   reg,
		AdminToken: opts.AdminToken,
		Timeout:    timeout,
	}, log)
	return a, nil
}

// requestTimeout leaves headroom over the longest wait Admit can take.
func requestTimeout(pacingMaxWaitMs, queueTimeoutMs int) time.Duration {
	longest := time.Duration(pacingMaxWaitMs+queueTimeoutMs) * time.Millisecond
	return longest + 15*time.Second
}

// Close stops the process-local fallback janitors.
func (a *App) Close() {
	if a.Breaker != nil {
		a.Breaker.Stop()
	}
	if a.pacingCache != nil {
		a.pacingCache.Close()
	}
}
