// Package observability holds the decision-point logging helper shared by the
// admission services.
package observability

import (
	"context"
	"log/slog"

	"relaygate/internal/admission/models"
	"relaygate/pkg/requestcontext"
)

// LogDecision logs an admission decision with the account key and request id.
// Denials and degradations log at warn, everything else at info.
func LogDecision(ctx context.Context, logger *slog.Logger, level slog.Level, event string, key models.AccountKey, attrs ...any) {
	if logger == nil {
		return
	}
	args := make([]any, 0, len(attrs)+6)
	args = append(args, "account_type", string(key.Type), "account_id", key.ID)
	args = append(args, attrs...)
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	logger.Log(ctx, level, event, args...)
}
