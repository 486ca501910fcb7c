package models

import (
	"fmt"
	"strings"
)

const (
	keyPrefixPacing    = "request_interval_guard"
	keyPrefixRateLimit = "account_rate_limit"
	keyPrefixErrors403 = "account_403_errors"
)

// AccountKey identifies all per-account admission state.
type AccountKey struct {
	Type AccountType
	ID   string
}

// NewAccountKey validates and builds an AccountKey.
func NewAccountKey(accountType AccountType, accountID string) (AccountKey, error) {
	if !accountType.IsValid() {
		return AccountKey{}, fmt.Errorf("unknown account type %q", accountType)
	}
	if strings.TrimSpace(accountID) == "" {
		return AccountKey{}, fmt.Errorf("account id is required")
	}
	return AccountKey{Type: accountType, ID: accountID}, nil
}

// Validate reports whether the key addresses a real account.
func (k AccountKey) Validate() error {
	_, err := NewAccountKey(k.Type, k.ID)
	return err
}

func (k AccountKey) String() string {
	return fmt.Sprintf("%s:%s", k.Type, sanitizeKeySegment(k.ID))
}

// PacingKey is the store key holding the last admitted timestamp.
func (k AccountKey) PacingKey() string {
	return keyPrefixPacing + ":" + k.String()
}

// RateLimitKey is the store key of the request sliding window.
func (k AccountKey) RateLimitKey() string {
	return keyPrefixRateLimit + ":" + k.String()
}

// ErrorWindowKey is the store key of the 403 error window.
func (k AccountKey) ErrorWindowKey() string {
	return keyPrefixErrors403 + ":" + k.String()
}

// RegistryKey is the account record hash shared with the account registry.
func (k AccountKey) RegistryKey() string {
	return k.Type.Prefix() + k.ID
}

// sanitizeKeySegment escapes delimiter characters so an id containing ':'
// cannot address another account's state.
//
//   - "a:b" -> "a_cb"
//   - "a_b" -> "a__b"
func sanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}
