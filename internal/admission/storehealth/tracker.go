// Package storehealth reports when an admission component starts or stops
// serving from its process-local fallback.
package storehealth

import (
	"context"
	"log/slog"

	"relaygate/internal/admission/metrics"
	"relaygate/pkg/platform/circuit"
)

// Tracker wraps a dependency-health breaker for one component. It never
// short-circuits calls; it only logs transitions and exports a gauge.
type Tracker struct {
	component string
	breaker   *circuit.Breaker
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates a tracker. logger may be nil.
func New(component string, logger *slog.Logger, m *metrics.Metrics) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	m.SetStoreDegraded(component, false)
	return &Tracker{
		component: component,
		breaker:   circuit.New(component),
		logger:    logger,
		metrics:   m,
	}
}

// Observe records the outcome of one store call. A non-nil err means the
// caller is about to serve from fallback.
func (t *Tracker) Observe(ctx context.Context, err error) {
	change := t.breaker.Observe(err)
	if err != nil {
		t.metrics.IncrementFallback(t.component)
	}
	switch {
	case change.Opened:
		t.logger.WarnContext(ctx, "admission_store_degraded", "component", t.component, "error", err)
		t.metrics.SetStoreDegraded(t.component, true)
	case change.Closed:
		t.logger.InfoContext(ctx, "admission_store_recovered", "component", t.component)
		t.metrics.SetStoreDegraded(t.component, false)
	}
}

// Degraded reports whether the last store call failed.
func (t *Tracker) Degraded() bool {
	return t.breaker.IsOpen()
}
