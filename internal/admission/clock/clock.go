// Package clock holds the time hooks injected into admission services so
// cooldowns and waits can be driven deterministically in tests.
package clock

import (
	"context"
	"time"
)

// NowFunc returns the current time.
type NowFunc func() time.Time

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
