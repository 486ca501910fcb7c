package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountKey(t *testing.T) {
	t.Run("builds namespaced keys", func(t *testing.T) {
		key, err := NewAccountKey(AccountTypeClaude, "acc-1")
		require.NoError(t, err)
		assert.Equal(t, "request_interval_guard:claude:acc-1", key.PacingKey())
		assert.Equal(t, "account_rate_limit:claude:acc-1", key.RateLimitKey())
		assert.Equal(t, "account_403_errors:claude:acc-1", key.ErrorWindowKey())
		assert.Equal(t, "claude:account:acc-1", key.RegistryKey())
	})

	t.Run("ids with delimiters do not collide", func(t *testing.T) {
		a := AccountKey{Type: AccountTypeGemini, ID: "x:y"}
		b := AccountKey{Type: AccountTypeGemini, ID: "x_cy"}
		assert.NotEqual(t, a.PacingKey(), b.PacingKey())
	})

	t.Run("rejects empty id and unknown type", func(t *testing.T) {
		_, err := NewAccountKey(AccountTypeClaude, "  ")
		assert.Error(t, err)
		_, err = NewAccountKey(AccountType("nope"), "id")
		assert.Error(t, err)
	})
}

func TestAccountTypes(t *testing.T) {
	seen := map[string]bool{}
	for _, at := range AllAccountTypes() {
		assert.True(t, at.IsValid())
		assert.NotEmpty(t, at.Prefix())
		assert.False(t, seen[at.Prefix()], "duplicate prefix %s", at.Prefix())
		seen[at.Prefix()] = true
	}

	parsed, err := ParseAccountType("bedrock")
	require.NoError(t, err)
	assert.Equal(t, AccountTypeBedrock, parsed)
}

func TestBreakerRecordRemaining(t *testing.T) {
	assert.Equal(t, BreakerClosed, ParseBreakerState(""))
	assert.Equal(t, BreakerHalfOpen, ParseBreakerState("half_open"))
	assert.Zero(t, BreakerRecord{State: BreakerClosed}.Remaining(time.Now()))

	now := time.Now()
	until := now.Add(90 * time.Second)
	rec := BreakerRecord{State: BreakerOpen, OpenAt: &now, OpenUntil: &until}
	assert.Equal(t, 90*time.Second, rec.Remaining(now))
	assert.Zero(t, rec.Remaining(until.Add(time.Second)))
}
