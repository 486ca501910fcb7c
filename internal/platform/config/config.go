package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces server settings, e.g. RELAYGATE_SERVER_ADDR.
const EnvPrefix = "RELAYGATE"

// Server captures process level configuration. Admission behaviour lives in
// the file referenced by AdmissionConfigPath.
type Server struct {
	Addr                string        `mapstructure:"addr"`
	AdminToken          string        `mapstructure:"admin_token"`
	LogLevel            string        `mapstructure:"log_level"`
	Environment         string        `mapstructure:"environment"`
	AdmissionConfigPath string        `mapstructure:"admission_config"`
	ShutdownTimeout     time.Duration `mapstructure:"shutdown_timeout"`
	PoolStatsInterval   time.Duration `mapstructure:"pool_stats_interval"`
	Redis               RedisConfig   `mapstructure:"redis"`
}

// RedisConfig configures the shared state store connection.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Load reads server settings from the environment and, when path is set, a
// YAML file. Environment values win over the file.
func Load(path string) (*Server, error) {
	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("admin_token", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("environment", "development")
	v.SetDefault("admission_config", "")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("pool_stats_interval", 15*time.Second)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read server config %s: %w", path, err)
		}
	}

	cfg := &Server{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode server config: %w", err)
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("server addr must not be empty")
	}
	if cfg.ShutdownTimeout <= 0 || cfg.PoolStatsInterval <= 0 {
		return nil, fmt.Errorf("shutdown_timeout and pool_stats_interval must be positive")
	}
	return cfg, nil
}
