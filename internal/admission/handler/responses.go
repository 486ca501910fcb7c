package handler

import (
	"time"

	"relaygate/internal/admission/gate"
	"relaygate/internal/admission/models"
)

type BreakerStateResponse struct {
	State     models.BreakerState `json:"state"`
	OpenAt    *time.Time          `json:"open_at,omitempty"`
	OpenUntil *time.Time          `json:"open_until,omitempty"`
}

type RecoverResponse struct {
	Recovered   bool                `json:"recovered"`
	State       models.BreakerState `json:"state"`
	RemainingMs *int64              `json:"remaining_ms,omitempty"`
}

func NewRecoverResponse(res *models.RecoverResult) *RecoverResponse {
	resp := &RecoverResponse{Recovered: res.Recovered, State: res.State}
	if res.State == models.BreakerOpen {
		ms := res.Remaining.Milliseconds()
		resp.RemainingMs = &ms
	}
	return resp
}

type RateLimitResponse struct {
	*models.RateLimitStatus
	ResetInMs int64 `json:"reset_in_ms"`
}

func NewRateLimitResponse(status *models.RateLimitStatus) *RateLimitResponse {
	return &RateLimitResponse{RateLimitStatus: status, ResetInMs: status.ResetIn.Milliseconds()}
}

type SweepResponse struct {
	Skipped    bool  `json:"skipped"`
	Scanned    int   `json:"scanned"`
	Recovered  int   `json:"recovered"`
	Failed     int   `json:"failed"`
	DurationMs int64 `json:"duration_ms"`
}

func NewSweepResponse(res *models.SweepResult) *SweepResponse {
	return &SweepResponse{
		Skipped:    res.Skipped,
		Scanned:    res.Scanned,
		Recovered:  res.Recovered,
		Failed:     res.Failed,
		DurationMs: res.Duration.Milliseconds(),
	}
}

type EligibilityResponse struct {
	Eligible bool `json:"eligible"`
	*RecoverResponse
}

type AdmitResponse struct {
	Admitted        bool        `json:"admitted"`
	Reason          gate.Reason `json:"reason,omitempty"`
	RequestID       string      `json:"request_id,omitempty"`
	PacingWaitedMs  int64       `json:"pacing_waited_ms"`
	QueueWaitedMs   int64       `json:"queue_waited_ms"`
	Retries         int         `json:"retries"`
	RateLimitActive bool        `json:"rate_limit_active"`
}

func toAdmitResponse(adm *gate.Admission) *AdmitResponse {
	resp := &AdmitResponse{
		Admitted:  adm.Admitted,
		Reason:    adm.Reason,
		RequestID: adm.RequestID,
	}
	if adm.Pacing != nil {
		resp.PacingWaitedMs = adm.Pacing.WaitedMs()
	}
	if adm.RateLimit != nil {
		resp.QueueWaitedMs = adm.RateLimit.Waited.Milliseconds()
		resp.Retries = adm.RateLimit.Retries
		resp.RateLimitActive = !adm.RateLimit.Skipped
	}
	return resp
}

type ReportResponse struct {
	Counted    bool                `json:"counted"`
	Triggered  bool                `json:"triggered"`
	State      models.BreakerState `json:"state,omitempty"`
	ErrorCount int                 `json:"error_count"`
	Threshold  int                 `json:"threshold"`
}

// toReportResponse maps a nil result, meaning the status was not a 403, to
// counted=false.
func toReportResponse(res *models.RecordErrorResult) *ReportResponse {
	if res == nil {
		return &ReportResponse{}
	}
	return &ReportResponse{
		Counted:    res.State != models.BreakerDisabled,
		Triggered:  res.Triggered,
		State:      res.State,
		ErrorCount: res.ErrorCount,
		Threshold:  res.Threshold,
	}
}
