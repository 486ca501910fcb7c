package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PacingDecisionsTotal        *prometheus.CounterVec
	PacingWaitSeconds           prometheus.Histogram
	RateLimitAcquisitionsTotal  *prometheus.CounterVec
	RateLimitQueueWaitSeconds   prometheus.Histogram
	RateLimitReleasesTotal      prometheus.Counter
	BreakerErrorsRecordedTotal  prometheus.Counter
	BreakerTransitionsTotal     *prometheus.CounterVec
	BreakerSweepRunsTotal       *prometheus.CounterVec
	BreakerSweepDurationSeconds prometheus.Histogram
	BreakerSweepRecoveredTotal  prometheus.Counter
	StoreDegraded               *prometheus.GaugeVec
	FallbackOperationsTotal     *prometheus.CounterVec
}

// New registers the admission metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		PacingDecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaygate_pacing_decisions_total",
			Help: "Pacing decisions by outcome (immediate, waited, rejected)",
		}, []string{"outcome"}),
		PacingWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relaygate_pacing_wait_seconds",
			Help:    "Time callers slept to respect account pacing",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		RateLimitAcquisitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaygate_account_rate_limit_acquisitions_total",
			Help: "Account rate limit acquisitions by outcome",
		}, []string{"outcome"}),
		RateLimitQueueWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relaygate_account_rate_limit_queue_wait_seconds",
			Help:    "Time spent queued for an account rate limit slot",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		RateLimitReleasesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaygate_account_rate_limit_releases_total",
			Help: "Rate limit slots released before window expiry",
		}),
		BreakerErrorsRecordedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaygate_circuit_breaker_errors_recorded_total",
			Help: "403-class upstream errors recorded by the circuit breaker",
		}),
		BreakerTransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaygate_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions by target state",
		}, []string{"state"}),
		BreakerSweepRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaygate_circuit_breaker_sweep_runs_total",
			Help: "Auto-recovery sweep runs by status",
		}, []string{"status"}),
		BreakerSweepDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "relaygate_circuit_breaker_sweep_duration_seconds",
			Help: "Duration of auto-recovery sweeps in seconds",
		}),
		BreakerSweepRecoveredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaygate_circuit_breaker_sweep_recovered_total",
			Help: "Accounts promoted to half_open by the auto-recovery sweep",
		}),
		StoreDegraded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "relaygate_admission_store_degraded",
			Help: "1 while a component is serving from the process-local fallback",
		}, []string{"component"}),
		FallbackOperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaygate_admission_fallback_operations_total",
			Help: "Operations served by the process-local fallback",
		}, []string{"component"}),
	}
}

func (m *Metrics) IncrementPacingDecision(outcome string) {
	if m == nil {
		return
	}
	m.PacingDecisionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePacingWait(seconds float64) {
	if m == nil {
		return
	}
	m.PacingWaitSeconds.Observe(seconds)
}

func (m *Metrics) IncrementAcquisition(outcome string) {
	if m == nil {
		return
	}
	m.RateLimitAcquisitionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveQueueWait(seconds float64) {
	if m == nil {
		return
	}
	m.RateLimitQueueWaitSeconds.Observe(seconds)
}

func (m *Metrics) IncrementReleases() {
	if m == nil {
		return
	}
	m.RateLimitReleasesTotal.Inc()
}

func (m *Metrics) IncrementBreakerErrors() {
	if m == nil {
		return
	}
	m.BreakerErrorsRecordedTotal.Inc()
}

func (m *Metrics) IncrementBreakerTransition(state string) {
	if m == nil {
		return
	}
	m.BreakerTransitionsTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) SetStoreDegraded(component string, degraded bool) {
	if m == nil {
		return
	}
	v := 0.0
	if degraded {
		v = 1
	}
	m.StoreDegraded.WithLabelValues(component).Set(v)
}

func (m *Metrics) IncrementFallback(component string) {
	if m == nil {
		return
	}
	m.FallbackOperationsTotal.WithLabelValues(component).Inc()
}
