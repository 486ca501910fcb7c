package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	admissionhandler "relaygate/internal/admission/handler"
	"relaygate/internal/platform/health"
	"relaygate/internal/platform/metrics"
	"relaygate/internal/platform/middleware"
	"relaygate/pkg/platform/middleware/admin"
	request "relaygate/pkg/platform/middleware/request"
)

// Deps are the handlers and settings the router mounts.
type Deps struct {
	Admission  *admissionhandler.Handler
	Health     *health.Handler
	Metrics    *metrics.HTTP
	Gatherer   prometheus.Gatherer
	AdminToken string
	Timeout    time.Duration
}

// NewRouter wires every endpoint with the shared middleware stack. Probes and
// /metrics skip the timeout and content-type checks.
func NewRouter(d Deps, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	d.Health.Register(r)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if d.Timeout > 0 {
			r.Use(middleware.Timeout(d.Timeout))
		}
		r.Use(middleware.ContentTypeJSON)

		// Dispatch endpoints
		d.Admission.RegisterDispatch(r)

		// Admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(d.AdminToken, logger))
			d.Admission.RegisterAdmin(r)
		})
	})

	return r
}
