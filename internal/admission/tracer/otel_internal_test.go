package tracer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestToOTelAttributes(t *testing.T) {
	assert.Nil(t, toOTelAttributes(nil))

	got := toOTelAttributes([]Attribute{
		String(AttrAccountType, "claude"),
		Bool(AttrAllowed, true),
		Int(AttrRetries, 3),
		Duration(AttrWaitMs, 1500*time.Millisecond),
		{Key: "ignored", Value: struct{}{}},
	})
	assert.Equal(t, []attribute.KeyValue{
		attribute.String(AttrAccountType, "claude"),
		attribute.Bool(AttrAllowed, true),
		attribute.Int(AttrRetries, 3),
		attribute.Int64(AttrWaitMs, 1500),
	}, got)
}
