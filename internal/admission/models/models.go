package models

import (
	"fmt"
	"time"
)

// AccountType identifies an upstream provider partition. Each type owns its
// own registry key prefix so accounts of different providers never collide.
type AccountType string

const (
	AccountTypeClaude        AccountType = "claude"
	AccountTypeClaudeConsole AccountType = "claude_console"
	AccountTypeBedrock       AccountType = "bedrock"
	AccountTypeGemini        AccountType = "gemini"
	AccountTypeOpenAI        AccountType = "openai"
	AccountTypeAzureOpenAI   AccountType = "azure_openai"
	AccountTypeDroid         AccountType = "droid"
	AccountTypeCCR           AccountType = "ccr"
)

var accountPrefixes = map[AccountType]string{
	AccountTypeClaude:        "claude:account:",
	AccountTypeClaudeConsole: "claude_console_account:",
	AccountTypeBedrock:       "bedrock_account:",
	AccountTypeGemini:        "gemini_account:",
	AccountTypeOpenAI:        "openai:account:",
	AccountTypeAzureOpenAI:   "azure_openai:account:",
	AccountTypeDroid:         "droid:account:",
	AccountTypeCCR:           "ccr_account:",
}

// AllAccountTypes returns every account type in lookup order.
func AllAccountTypes() []AccountType {
	return []AccountType{
		AccountTypeClaude,
		AccountTypeClaudeConsole,
		AccountTypeBedrock,
		AccountTypeGemini,
		AccountTypeOpenAI,
		AccountTypeAzureOpenAI,
		AccountTypeDroid,
		AccountTypeCCR,
	}
}

// IsValid reports whether the account type is one of the known partitions.
func (t AccountType) IsValid() bool {
	_, ok := accountPrefixes[t]
	return ok
}

// Prefix returns the registry hash key prefix for this partition.
func (t AccountType) Prefix() string {
	return accountPrefixes[t]
}

func (t AccountType) String() string {
	return string(t)
}

// ParseAccountType converts a string into an AccountType.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown account type %q", s)
	}
	return t, nil
}

// BreakerState is the persisted circuit breaker state of an account.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
	// BreakerDisabled is reported, never persisted, when the feature is off.
	BreakerDisabled BreakerState = "disabled"
)

// ParseBreakerState maps a stored value to a state. Unknown or empty values
// are treated as closed.
func ParseBreakerState(s string) BreakerState {
	switch BreakerState(s) {
	case BreakerOpen:
		return BreakerOpen
	case BreakerHalfOpen:
		return BreakerHalfOpen
	default:
		return BreakerClosed
	}
}

// BreakerRecord is the breaker portion of an account record.
type BreakerRecord struct {
	State     BreakerState
	OpenAt    *time.Time
	OpenUntil *time.Time
}

// Remaining returns the cooldown left at now, or zero.
func (r BreakerRecord) Remaining(now time.Time) time.Duration {
	if r.State != BreakerOpen || r.OpenUntil == nil {
		return 0
	}
	if d := r.OpenUntil.Sub(now); d > 0 {
		return d
	}
	return 0
}

// AccountRecord is a registry entry: a flat field map as stored in the hash.
type AccountRecord struct {
	Type   AccountType
	ID     string
	Fields map[string]string
}

// Registry hash fields owned by the admission layer.
const (
	FieldBreakerState     = "circuitBreakerState"
	FieldBreakerOpenAt    = "circuitBreakerOpenAt"
	FieldBreakerOpenUntil = "circuitBreakerOpenUntil"
	FieldRateLimitConfig  = "rateLimitConfig"
	FieldBreakerConfig    = "circuitBreakerConfig"
)
