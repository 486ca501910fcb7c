package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Config holds the admission layer configuration.
type Config struct {
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit" yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker" yaml:"circuit_breaker"`
	Pacing         PacingConfig         `mapstructure:"pacing" yaml:"pacing"`
	Sweep          SweepConfig          `mapstructure:"sweep" yaml:"sweep"`
	Fallback       FallbackConfig       `mapstructure:"fallback" yaml:"fallback"`
}

// RateLimitConfig bounds requests per account in a rolling window.
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	WindowSeconds  int  `mapstructure:"window_seconds" yaml:"window_seconds" json:"windowSeconds"`
	MaxRequests    int  `mapstructure:"max_requests" yaml:"max_requests" json:"maxRequests"`
	QueueTimeoutMs int  `mapstructure:"queue_timeout_ms" yaml:"queue_timeout_ms" json:"queueTimeoutMs"`
	EnableQueueing bool `mapstructure:"enable_queueing" yaml:"enable_queueing" json:"enableQueueing"`
}

// Window returns the window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// QueueTimeout returns the queue budget as a duration.
func (c RateLimitConfig) QueueTimeout() time.Duration {
	return time.Duration(c.QueueTimeoutMs) * time.Millisecond
}

// CircuitBreakerConfig controls 403-triggered account suspension.
type CircuitBreakerConfig struct {
	Enabled                bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Threshold              int  `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	WindowSeconds          int  `mapstructure:"window_seconds" yaml:"window_seconds" json:"windowSeconds"`
	BreakerDurationMinutes int  `mapstructure:"breaker_duration_minutes" yaml:"breaker_duration_minutes" json:"breakerDurationMinutes"`
	AutoRecovery           bool `mapstructure:"auto_recovery" yaml:"auto_recovery" json:"autoRecovery"`
}

// Window returns the error observation window.
func (c CircuitBreakerConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Duration returns how long a breaker stays open.
func (c CircuitBreakerConfig) Duration() time.Duration {
	return time.Duration(c.BreakerDurationMinutes) * time.Minute
}

// PacingConfig holds the default pacing parameters used by the gate.
type PacingConfig struct {
	MaxWaitMs     int `mapstructure:"max_wait_ms" yaml:"max_wait_ms"`
	MinIntervalMs int `mapstructure:"min_interval_ms" yaml:"min_interval_ms"` // 0 = not in the same second
}

// SweepConfig controls the breaker auto-recovery worker.
type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	// AccountsPerSecond bounds per-account store calls during a sweep. 0 = unbounded.
	AccountsPerSecond float64 `mapstructure:"accounts_per_second" yaml:"accounts_per_second"`
}

// FallbackConfig controls the process-local degraded-mode cache.
type FallbackConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		RateLimit: RateLimitConfig{
			Enabled:        false,
			WindowSeconds:  60,
			MaxRequests:    60,
			QueueTimeoutMs: 30000,
			EnableQueueing: true,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:                false,
			Threshold:              3,
			WindowSeconds:          300,
			BreakerDurationMinutes: 30,
			AutoRecovery:           true,
		},
		Pacing: PacingConfig{
			MaxWaitMs:     2000,
			MinIntervalMs: 0,
		},
		Sweep: SweepConfig{
			Interval:          5 * time.Minute,
			AccountsPerSecond: 200,
		},
		Fallback: FallbackConfig{
			SweepInterval: 30 * time.Second,
		},
	}
}

// Validate rejects values the services cannot operate with.
func (c *Config) Validate() error {
	var problems []string
	if c.RateLimit.WindowSeconds <= 0 {
		problems = append(problems, "rate_limit.window_seconds must be positive")
	}
	if c.RateLimit.MaxRequests <= 0 {
		problems = append(problems, "rate_limit.max_requests must be positive")
	}
	if c.RateLimit.QueueTimeoutMs < 0 {
		problems = append(problems, "rate_limit.queue_timeout_ms must not be negative")
	}
	if c.CircuitBreaker.Threshold <= 0 {
		problems = append(problems, "circuit_breaker.threshold must be positive")
	}
	if c.CircuitBreaker.WindowSeconds <= 0 {
		problems = append(problems, "circuit_breaker.window_seconds must be positive")
	}
	if c.CircuitBreaker.BreakerDurationMinutes <= 0 {
		problems = append(problems, "circuit_breaker.breaker_duration_minutes must be positive")
	}
	if c.Pacing.MaxWaitMs < 0 || c.Pacing.MinIntervalMs < 0 {
		problems = append(problems, "pacing values must not be negative")
	}
	if c.Sweep.Interval <= 0 {
		problems = append(problems, "sweep.interval must be positive")
	}
	if c.Sweep.AccountsPerSecond < 0 {
		problems = append(problems, "sweep.accounts_per_second must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid admission config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// RateLimitOverride is the per-account subset of RateLimitConfig.
// Queue timeout and queueing stay global.
type RateLimitOverride struct {
	Enabled       *bool `json:"enabled,omitempty"`
	WindowSeconds *int  `json:"windowSeconds,omitempty"`
	MaxRequests   *int  `json:"maxRequests,omitempty"`
}

// CircuitBreakerOverride is the per-account subset of CircuitBreakerConfig.
// Window and auto recovery stay global.
type CircuitBreakerOverride struct {
	Enabled                *bool `json:"enabled,omitempty"`
	Threshold              *int  `json:"threshold,omitempty"`
	BreakerDurationMinutes *int  `json:"breakerDurationMinutes,omitempty"`
}

// ParseRateLimitOverride decodes the JSON stored on an account record.
// An empty value yields no override.
func ParseRateLimitOverride(raw string) (*RateLimitOverride, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var o RateLimitOverride
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, fmt.Errorf("decode rate limit override: %w", err)
	}
	return &o, nil
}

// ParseCircuitBreakerOverride decodes the JSON stored on an account record.
func ParseCircuitBreakerOverride(raw string) (*CircuitBreakerOverride, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var o CircuitBreakerOverride
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, fmt.Errorf("decode circuit breaker override: %w", err)
	}
	return &o, nil
}

// ResolveRateLimit merges an optional account override onto the global config.
// Non-positive override values are ignored.
func ResolveRateLimit(global RateLimitConfig, o *RateLimitOverride) RateLimitConfig {
	resolved := global
	if o == nil {
		return resolved
	}
	if o.Enabled != nil {
		resolved.Enabled = *o.Enabled
	}
	if o.WindowSeconds != nil && *o.WindowSeconds > 0 {
		resolved.WindowSeconds = *o.WindowSeconds
	}
	if o.MaxRequests != nil && *o.MaxRequests > 0 {
		resolved.MaxRequests = *o.MaxRequests
	}
	return resolved
}

// ResolveCircuitBreaker merges an optional account override onto the global config.
func ResolveCircuitBreaker(global CircuitBreakerConfig, o *CircuitBreakerOverride) CircuitBreakerConfig {
	resolved := global
	if o == nil {
		return resolved
	}
	if o.Enabled != nil {
		resolved.Enabled = *o.Enabled
	}
	if o.Threshold != nil && *o.Threshold > 0 {
		resolved.Threshold = *o.Threshold
	}
	if o.BreakerDurationMinutes != nil && *o.BreakerDurationMinutes > 0 {
		resolved.BreakerDurationMinutes = *o.BreakerDurationMinutes
	}
	return resolved
}
