package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. RELAYGATE_RATE_LIMIT_ENABLED.
const EnvPrefix = "RELAYGATE"

// Static serves a fixed configuration.
type Static struct {
	cfg *Config
}

// NewStatic wraps cfg; nil selects DefaultConfig.
func NewStatic(cfg *Config) *Static {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Static{cfg: cfg}
}

func (s *Static) Global() *Config {
	return s.cfg
}

// Provider layers defaults, an optional YAML file and environment variables
// through viper. The decoded config is cached so Global is cheap.
type Provider struct {
	v       *viper.Viper
	logger  *slog.Logger
	current atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []func(*Config)
}

type ProviderOption func(*Provider)

func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider loads configuration from path (optional) and the environment.
func NewProvider(path string, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		v:      viper.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	setDefaults(p.v, DefaultConfig())
	p.v.SetEnvPrefix(EnvPrefix)
	p.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	p.v.AutomaticEnv()

	if path != "" {
		p.v.SetConfigFile(path)
		if err := p.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read admission config %s: %w", path, err)
		}
	}

	cfg, err := p.decode()
	if err != nil {
		return nil, err
	}
	p.current.Store(cfg)
	return p, nil
}

// Global returns the current effective configuration.
func (p *Provider) Global() *Config {
	return p.current.Load()
}

// OnChange registers fn to run after every successful reload.
func (p *Provider) OnChange(fn func(*Config)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Watch reloads the config file whenever it changes on disk. Invalid files
// are logged and the previous config stays active.
func (p *Provider) Watch() {
	if p.v.ConfigFileUsed() == "" {
		return
	}
	p.v.OnConfigChange(func(e fsnotify.Event) {
		if err := p.Reload(); err != nil {
			p.logger.Error("admission_config_reload_failed", "file", e.Name, "op", e.Op.String(), "error", err)
			return
		}
		p.logger.Info("admission_config_reloaded", "file", e.Name)
	})
	p.v.WatchConfig()
}

// Reload re-reads the config file and swaps the cached config.
func (p *Provider) Reload() error {
	if p.v.ConfigFileUsed() != "" {
		if err := p.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read admission config: %w", err)
		}
	}
	cfg, err := p.decode()
	if err != nil {
		return err
	}
	p.current.Store(cfg)

	p.mu.Lock()
	listeners := append([]func(*Config){}, p.listeners...)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

// Set overrides one key at runtime, e.g. from the CLI.
func (p *Provider) Set(key string, value any) error {
	p.v.Set(key, value)
	cfg, err := p.decode()
	if err != nil {
		return err
	}
	p.current.Store(cfg)
	return nil
}

func (p *Provider) decode() (*Config, error) {
	cfg := &Config{}
	err := p.v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode admission config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.window_seconds", d.RateLimit.WindowSeconds)
	v.SetDefault("rate_limit.max_requests", d.RateLimit.MaxRequests)
	v.SetDefault("rate_limit.queue_timeout_ms", d.RateLimit.QueueTimeoutMs)
	v.SetDefault("rate_limit.enable_queueing", d.RateLimit.EnableQueueing)

	v.SetDefault("circuit_breaker.enabled", d.CircuitBreaker.Enabled)
	v.SetDefault("circuit_breaker.threshold", d.CircuitBreaker.Threshold)
	v.SetDefault("circuit_breaker.window_seconds", d.CircuitBreaker.WindowSeconds)
	v.SetDefault("circuit_breaker.breaker_duration_minutes", d.CircuitBreaker.BreakerDurationMinutes)
	v.SetDefault("circuit_breaker.auto_recovery", d.CircuitBreaker.AutoRecovery)

	v.SetDefault("pacing.max_wait_ms", d.Pacing.MaxWaitMs)
	v.SetDefault("pacing.min_interval_ms", d.Pacing.MinIntervalMs)

	v.SetDefault("sweep.interval", d.Sweep.Interval)
	v.SetDefault("sweep.accounts_per_second", d.Sweep.AccountsPerSecond)

	v.SetDefault("fallback.sweep_interval", d.Fallback.SweepInterval)
}
