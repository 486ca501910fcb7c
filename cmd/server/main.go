package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"relaygate/internal/admission/config"
	"relaygate/internal/admission/tracer"
	"relaygate/internal/app"
	serverconfig "relaygate/internal/platform/config"
	"relaygate/internal/platform/health"
	"relaygate/internal/platform/logger"
	redisclient "relaygate/internal/platform/redis"
)

// main wires the admission services onto the shared Redis store and serves
// the dispatch and admin surfaces until SIGINT or SIGTERM.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := serverconfig.Load(os.Getenv("RELAYGATE_SERVER_CONFIG"))
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing relaygate",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"admission_config", cfg.AdmissionConfigPath,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := redisclient.New(ctx, cfg.Redis, reg)
	if err != nil {
		return fmt.Errorf("connect shared state store: %w", err)
	}
	defer client.Close() //nolint:errcheck // process is exiting

	provider, err := config.NewProvider(cfg.AdmissionConfigPath, config.WithLogger(log))
	if err != nil {
		return err
	}
	provider.OnChange(func(c *config.Config) {
		log.Info("admission config applied",
			"rate_limit_enabled", c.RateLimit.Enabled,
			"circuit_breaker_enabled", c.CircuitBreaker.Enabled,
			"auto_recovery", c.CircuitBreaker.AutoRecovery,
		)
	})
	provider.Watch()

	relay, err := app.New(client.Client, provider, app.Options{
		Logger:      log,
		Registry:    reg,
		Tracer:      tracer.NewOTel(),
		AdminToken:  cfg.AdminToken,
		Environment: cfg.Environment,
		HealthChecks: map[string]health.CheckFunc{
			"redis": client.Health,
		},
	})
	if err != nil {
		return err
	}
	defer relay.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           relay.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := relay.Sweep.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.PoolStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				client.RecordPoolStats()
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
