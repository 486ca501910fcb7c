package accountlimit

import "time"

const (
	backoffBase   = 50 * time.Millisecond
	backoffFactor = 1.5
	backoffCap    = 500 * time.Millisecond
	jitterRatio   = 0.15
)

// Backoff returns the un-jittered poll interval for the given retry (0-based).
func Backoff(retry int) time.Duration {
	d := float64(backoffBase)
	for i := 0; i < retry; i++ {
		d *= backoffFactor
		if d >= float64(backoffCap) {
			return backoffCap
		}
	}
	return time.Duration(d)
}

// Jitter scales d by a factor in [0.85, 1.15]. r must be in [0, 1).
func Jitter(d time.Duration, r float64) time.Duration {
	factor := 1 + (2*r-1)*jitterRatio
	return time.Duration(float64(d) * factor)
}
