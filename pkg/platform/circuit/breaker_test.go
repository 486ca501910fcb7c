package circuit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errStore = errors.New("connection refused")

func TestBreaker_DefaultsOpenOnFirstFailure(t *testing.T) {
	b := New("pacing")
	assert.Equal(t, "pacing", b.Name())

	assert.True(t, b.Observe(errStore).Opened)
	assert.True(t, b.IsOpen())
	assert.Equal(t, "open", b.State().String())

	assert.False(t, b.Observe(errStore).Opened, "already open breakers report no transition")

	assert.True(t, b.Observe(nil).Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_Thresholds(t *testing.T) {
	b := New("breaker", WithFailureThreshold(3), WithSuccessThreshold(2))

	b.Observe(errStore)
	b.Observe(errStore)
	assert.False(t, b.IsOpen())
	assert.True(t, b.Observe(errStore).Opened)

	assert.False(t, b.Observe(nil).Closed)
	assert.True(t, b.Observe(nil).Closed)
}

func TestBreaker_StreaksMustBeConsecutive(t *testing.T) {
	b := New("registry", WithFailureThreshold(2), WithSuccessThreshold(2))
	b.Observe(errStore)
	b.Observe(nil)
	b.Observe(errStore)
	assert.False(t, b.IsOpen())

	b.Observe(errStore)
	assert.True(t, b.IsOpen())
	b.Observe(nil)
	b.Observe(errStore)
	b.Observe(nil)
	assert.True(t, b.IsOpen(), "a failure while open restarts the recovery streak")
}
