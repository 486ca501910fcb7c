package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"relaygate/internal/admission/gate"
	dErrors "relaygate/pkg/domain-errors"
	"relaygate/pkg/platform/httputil"
	request "relaygate/pkg/platform/middleware/request"
)

// RegisterDispatch mounts the relay-facing routes. Relay workers call these
// around every upstream request.
func (h *Handler) RegisterDispatch(r chi.Router) {
	r.Route("/v1/accounts/{type}/{id}", func(r chi.Router) {
		r.Get("/eligibility", h.HandleEligibility)
		r.Post("/admit", h.HandleAdmit)
		r.Post("/responses", h.HandleReportResponse)
		r.Post("/activity", h.HandleRecordActivity)
		r.Delete("/slots/{request_id}", h.HandleDone)
	})
}

// HandleEligibility implements GET /v1/accounts/{type}/{id}/eligibility.
func (h *Handler) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.accountKey(w, r)
	if !ok {
		return
	}
	eligible, res, err := h.gate.Eligible(ctx, key)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to check account eligibility",
			"error", err,
			"account", key.String(),
			"request_id", request.GetRequestID(r),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &EligibilityResponse{
		Eligible:        eligible,
		RecoverResponse: NewRecoverResponse(res),
	})
}

// HandleAdmit implements POST /v1/accounts/{type}/{id}/admit.
// Input: optional {max_wait_ms, min_interval_ms}. The slot id is the
// X-Request-ID of the call.
// Output: 200 when admitted, 429 with the rejection reason otherwise.
func (h *Handler) HandleAdmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(r)
	key, ok := h.accountKey(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndValidate[AdmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	adm, err := h.gate.Admit(ctx, key, req.pacing())
	if err != nil {
		h.logger.ErrorContext(ctx, "admission failed",
			"error", err,
			"account", key.String(),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if !adm.Admitted {
		status = http.StatusTooManyRequests
	}
	httputil.WriteJSON(w, status, toAdmitResponse(adm))
}

// HandleReportResponse implements POST /v1/accounts/{type}/{id}/responses.
// Input: {status}, the upstream HTTP status of a finished request.
func (h *Handler) HandleReportResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(r)
	key, ok := h.accountKey(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndValidate[ReportRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.gate.ReportResponse(ctx, key, req.Status)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to record upstream response",
			"error", err,
			"account", key.String(),
			"status", req.Status,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toReportResponse(res))
}

// HandleRecordActivity implements POST /v1/accounts/{type}/{id}/activity.
// Output: 204 once the request is stamped for pacing.
func (h *Handler) HandleRecordActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.accountKey(w, r)
	if !ok {
		return
	}
	if err := h.gate.RecordActivity(ctx, key); err != nil {
		h.logger.ErrorContext(ctx, "failed to record account activity",
			"error", err,
			"account", key.String(),
			"request_id", request.GetRequestID(r),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDone implements DELETE /v1/accounts/{type}/{id}/slots/{request_id}.
func (h *Handler) HandleDone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.accountKey(w, r)
	if !ok {
		return
	}
	slotID := chi.URLParam(r, "request_id")
	if err := h.gate.Done(ctx, key, slotID); err != nil {
		h.logger.ErrorContext(ctx, "failed to release request slot",
			"error", err,
			"account", key.String(),
			"slot_id", slotID,
			"request_id", request.GetRequestID(r),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type AdmitRequest struct {
	MaxWaitMs     *int64 `json:"max_wait_ms,omitempty"`
	MinIntervalMs *int64 `json:"min_interval_ms,omitempty"`
}

func (r *AdmitRequest) Validate() error {
	if r.MaxWaitMs != nil && *r.MaxWaitMs < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "max_wait_ms must not be negative")
	}
	if r.MinIntervalMs != nil && *r.MinIntervalMs < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "min_interval_ms must not be negative")
	}
	if (r.MaxWaitMs == nil) != (r.MinIntervalMs == nil) {
		return dErrors.New(dErrors.CodeInvalidInput, "max_wait_ms and min_interval_ms must be set together")
	}
	return nil
}

// pacing returns nil when the caller left pacing to the configured defaults.
func (r *AdmitRequest) pacing() *gate.Pacing {
	if r.MaxWaitMs == nil {
		return nil
	}
	return &gate.Pacing{
		MaxWait:     time.Duration(*r.MaxWaitMs) * time.Millisecond,
		MinInterval: time.Duration(*r.MinIntervalMs) * time.Millisecond,
	}
}

type ReportRequest struct {
	Status int `json:"status"`
}

func (r *ReportRequest) Validate() error {
	if r.Status < 100 || r.Status > 599 {
		return dErrors.New(dErrors.CodeInvalidInput, "status must be an HTTP status code")
	}
	return nil
}
