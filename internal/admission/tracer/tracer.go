// Package tracer is a small tracing abstraction for the admission services.
// Services depend on Tracer; production wires the OpenTelemetry adapter and
// tests use NoopTracer.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span. End must be called exactly once.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanPacingCheck      = "admission.pacing.check"
	SpanRateLimitAcquire = "admission.ratelimit.acquire"
	SpanBreakerRecord    = "admission.breaker.record_403"
	SpanBreakerRecover   = "admission.breaker.recover"
	SpanBreakerSweep     = "admission.breaker.sweep"
)

// Attribute keys.
const (
	AttrAccountType = "account.type"
	AttrAccountID   = "account.id"
	AttrAllowed     = "allowed"
	AttrWaitMs      = "wait_ms"
	AttrRetries     = "retries"
	AttrDegraded    = "degraded"
	AttrState       = "breaker.state"
	AttrErrorCount  = "breaker.error_count"
	AttrOutcome     = "outcome"
)

// Event names.
const (
	EventFallbackUsed  = "fallback.used"
	EventQueued        = "ratelimit.queued"
	EventBreakerOpened = "breaker.opened"
)
