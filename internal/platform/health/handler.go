// Package health serves the liveness, readiness and status probes.
package health

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"relaygate/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc probes one hard dependency; a non-nil error makes the instance
// not ready.
type CheckFunc func(ctx context.Context) error

// DegradedFunc reports whether a component is serving from local fallback
// state. Degradation is reported on readiness but does not fail it.
type DegradedFunc func() bool

// DefaultCheckTimeout bounds one readiness round.
const DefaultCheckTimeout = 2 * time.Second

type Handler struct {
	startTime    time.Time
	environment  string
	checkTimeout time.Duration

	mu       sync.RWMutex
	checks   map[string]CheckFunc
	degraded map[string]DegradedFunc
}

func New(environment string) *Handler {
	return &Handler{
		startTime:    time.Now(),
		environment:  environment,
		checkTimeout: DefaultCheckTimeout,
		checks:       make(map[string]CheckFunc),
		degraded:     make(map[string]DegradedFunc),
	}
}

// RegisterCheck adds or replaces a named readiness check.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RegisterDegradation adds a component whose fallback mode readiness reports.
func (h *Handler) RegisterDegradation(name string, fn DegradedFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.degraded[name] = fn
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness answers 200 while the process serves HTTP at all.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

type ReadinessResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks,omitempty"`
	Degraded []string          `json:"degraded,omitempty"`
}

// HandleReadiness runs every check concurrently under one deadline. Any
// failing check answers 503. Components in fallback mode are listed under
// degraded; the rate limiter fails closed without the store, so the redis
// check is what takes an instance out of rotation.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	degraded := maps.Clone(h.degraded)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(checks))
		failed  bool
	)
	var g errgroup.Group
	for name, check := range checks {
		g.Go(func() error {
			outcome := "up"
			if err := check(ctx); err != nil {
				outcome = "down: " + err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = outcome
			failed = failed || outcome != "up"
			return nil
		})
	}
	_ = g.Wait()

	response := ReadinessResponse{Status: "ready", Checks: results}
	for _, name := range slices.Sorted(maps.Keys(degraded)) {
		if degraded[name]() {
			response.Degraded = append(response.Degraded, name)
		}
	}

	if failed {
		response.Status = "not_ready"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
