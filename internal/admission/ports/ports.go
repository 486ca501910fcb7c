//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

package ports

import (
	"context"
	"time"

	"relaygate/internal/admission/config"
	"relaygate/internal/admission/models"
)

// ConfigProvider supplies the global admission config. Implementations must
// be cheap to call on every operation.
type ConfigProvider interface {
	Global() *config.Config
}

// AccountRegistry is the keyed account record store shared with account
// selection. Updates are scoped to the named fields only.
type AccountRegistry interface {
	Get(ctx context.Context, key models.AccountKey) (*models.AccountRecord, error)
	Find(ctx context.Context, accountID string) (*models.AccountRecord, error)
	// UpdateFields sets each field; a nil value deletes the field.
	UpdateFields(ctx context.Context, key models.AccountKey, fields map[string]*string) error
	// CompareAndUpdate applies fields only while every guard field still holds
	// its expected value. A missing field compares equal to "".
	CompareAndUpdate(ctx context.Context, key models.AccountKey, expected map[string]string, fields map[string]*string) (bool, error)
	ListAccountIDs(ctx context.Context, accountType models.AccountType) ([]string, error)
}

// PacingStore reserves admission slots for the pacing guard.
type PacingStore interface {
	// Reserve atomically computes the earliest allowed time for key. When the
	// wait is within maxWait the slot is claimed and the wait returned;
	// otherwise nothing is mutated and allowed is false.
	Reserve(ctx context.Context, key string, now time.Time, minInterval, maxWait time.Duration) (allowed bool, wait time.Duration, err error)
	// Stamp records now as the last admitted instant without gating.
	Stamp(ctx context.Context, key string, now time.Time, ttl time.Duration) error
}

// WindowStore is an atomic sliding-window counter.
type WindowStore interface {
	// TryAdd evicts expired entries and adds member only while count < limit.
	// limit <= 0 always adds.
	TryAdd(ctx context.Context, key, member string, now time.Time, window time.Duration, limit int) (*models.WindowAttempt, error)
	// Remove deletes the oldest entry whose member is member itself or is
	// tagged member + models.SlotSeparator.
	Remove(ctx context.Context, key, member string) (bool, error)
	Count(ctx context.Context, key string, now time.Time, window time.Duration) (*models.WindowAttempt, error)
	Clear(ctx context.Context, key string) error
}
