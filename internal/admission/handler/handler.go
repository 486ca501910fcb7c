package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"relaygate/internal/admission/gate"
	"relaygate/internal/admission/models"
	dErrors "relaygate/pkg/domain-errors"
	"relaygate/pkg/platform/httputil"
	"relaygate/pkg/platform/middleware/admin"
	request "relaygate/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks BreakerService,RateLimitService,SweepService,GateService

type BreakerService interface {
	Status(ctx context.Context, key models.AccountKey) (*models.BreakerStatus, error)
	Open(ctx context.Context, key models.AccountKey) (*models.BreakerRecord, error)
	Close(ctx context.Context, key models.AccountKey) error
	CheckAndRecover(ctx context.Context, key models.AccountKey) (*models.RecoverResult, error)
}

type RateLimitService interface {
	Status(ctx context.Context, key models.AccountKey) (*models.RateLimitStatus, error)
	Release(ctx context.Context, key models.AccountKey, requestID string) (bool, error)
}

type SweepService interface {
	RunOnce(ctx context.Context) (*models.SweepResult, error)
}

// GateService is the dispatch-path facade called by relay workers.
type GateService interface {
	Admit(ctx context.Context, key models.AccountKey, pacing *gate.Pacing) (*gate.Admission, error)
	Eligible(ctx context.Context, key models.AccountKey) (bool, *models.RecoverResult, error)
	ReportResponse(ctx context.Context, key models.AccountKey, status int) (*models.RecordErrorResult, error)
	RecordActivity(ctx context.Context, key models.AccountKey) error
	Done(ctx context.Context, key models.AccountKey, requestID string) error
}

type Handler struct {
	breaker BreakerService
	limiter RateLimitService
	sweep   SweepService
	gate    GateService
	logger  *slog.Logger
}

func New(breaker BreakerService, limiter RateLimitService, sweep SweepService, gate GateService, logger *slog.Logger) *Handler {
	return &Handler{
		breaker: breaker,
		limiter: limiter,
		sweep:   sweep,
		gate:    gate,
		logger:  logger,
	}
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/admin/accounts/{type}/{id}", func(r chi.Router) {
		r.Get("/breaker", h.HandleBreakerStatus)
		r.Post("/breaker/close", h.HandleCloseBreaker)
		r.Post("/breaker/open", h.HandleOpenBreaker)
		r.Post("/breaker/recover", h.HandleRecoverBreaker)
		r.Get("/rate-limit", h.HandleRateLimitStatus)
		r.Delete("/rate-limit/{request_id}", h.HandleReleaseSlot)
	})
	r.Post("/admin/breakers/sweep", h.HandleSweep)
}

// accountKey parses the {type}/{id} path segments, writing a 400 on failure.
func (h *Handler) accountKey(w http.ResponseWriter, r *http.Request) (models.AccountKey, bool) {
	accountType, err := models.ParseAccountType(chi.URLParam(r, "type"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid account type",
			"account_type", chi.URLParam(r, "type"),
			"request_id", request.GetRequestID(r),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "unknown account type"))
		return models.AccountKey{}, false
	}
	key, err := models.NewAccountKey(accountType, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid account id"))
		return models.AccountKey{}, false
	}
	return key, true
}

// HandleBreakerStatus implements GET /admin/accounts/{type}/{id}/breaker.
func (h *Handler) HandleBreakerStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.accountKey(w, r)
	if !ok {
		return
	}
	status, err := h.breaker.Status(ctx, key)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get breaker status",
			"error", err,
			"account", key.String(),
			"request_id", request.GetRequestID(r),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleCloseBreaker implements POST /admin/accounts/{type}/{id}/breaker/close.
// Clears the error history and resets the breaker to closed.
func (h *Handler) HandleCloseBreaker(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.accountKey(w, r)
	if !ok {
		return
	}
	if err := h.breaker.Close(ctx, key); err != nil {
		h.logger.ErrorContext(ctx, "failed to close breaker",
			"error", err,
			"account", key.String(),
			"request_id", request.GetRequestID(r),
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "breaker closed by admin",
		"account", key.String(),
		"admin_actor_id", admin.GetAdminActorID(ctx),
		"request_id", request.GetRequestID(r),
	)
	httputil.WriteJSON(w, http.StatusOK, &BreakerStateResponse{State: models.BreakerClosed})
}

// HandleOpenBreaker implements POST /admin/accounts/{type}/{id}/breaker/open.
func (h *Handler) HandleOpenBreaker(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.accountKey(w, r)
	if !ok {
		return
	}
	rec, err := h.breaker.Open(ctx, key)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to open breaker",
			"error", err,
			"account", key.String(),
			"request_id", request.GetRequestID(r),
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "breaker opened by admin",
		"account", key.String(),
		"admin_actor_id", admin.GetAdminActorID(ctx),
		"request_id", request.GetRequestID(r),
	)
	httputil.WriteJSON(w, http.StatusOK, &BreakerStateResponse{
		State:     rec.State,
		OpenAt:    rec.OpenAt,
		OpenUntil: rec.OpenUntil,
	})
}

// HandleRecoverBreaker implements POST /admin/accounts/{type}/{id}/breaker/recover.
// Runs the cooldown check immediately instead of waiting for the sweep.
func (h *Handler) HandleRecoverBreaker(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.accountKey(w, r)
	if !ok {
		return
	}
	res, err := h.breaker.CheckAndRecover(ctx, key)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to check breaker recovery",
			"error", err,
			"account", key.String(),
			"request_id", request.GetRequestID(r),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewRecoverResponse(res))
}

// HandleRateLimitStatus implements GET /admin/accounts/{type}/{id}/rate-limit.
func (h *Handler) HandleRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.accountKey(w, r)
	if !ok {
		return
	}
	status, err := h.limiter.Status(ctx, key)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get rate limit status",
			"error", err,
			"account", key.String(),
			"request_id", request.GetRequestID(r),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewRateLimitResponse(status))
}

// HandleReleaseSlot implements DELETE /admin/accounts/{type}/{id}/rate-limit/{request_id}.
// Output: 204 when a slot was released, 404 when none matched.
func (h *Handler) HandleReleaseSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.accountKey(w, r)
	if !ok {
		return
	}
	slotID := chi.URLParam(r, "request_id")
	released, err := h.limiter.Release(ctx, key, slotID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to release rate limit slot",
			"error", err,
			"account", key.String(),
			"slot_id", slotID,
			"request_id", request.GetRequestID(r),
		)
		httputil.WriteError(w, err)
		return
	}
	if !released {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "rate limit slot not found"))
		return
	}
	h.logger.InfoContext(ctx, "rate limit slot released by admin",
		"account", key.String(),
		"slot_id", slotID,
		"admin_actor_id", admin.GetAdminActorID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSweep implements POST /admin/breakers/sweep.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.sweep.RunOnce(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual breaker sweep failed",
			"error", err,
			"request_id", request.GetRequestID(r),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "breaker sweep failed"))
		return
	}
	h.logger.InfoContext(ctx, "manual breaker sweep completed",
		"accounts_scanned", res.Scanned,
		"accounts_recovered", res.Recovered,
		"admin_actor_id", admin.GetAdminActorID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, NewSweepResponse(res))
}
