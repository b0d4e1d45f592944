// Package config loads tempo's runtime configuration.
//
// Values come from three layers, later layers winning:
//   - defaults registered by SetDefaults
//   - an optional YAML file
//   - TEMPO_* environment variables (e.g. TEMPO_SERVER_PORT, TEMPO_REDIS_ADDR)
//
// Command line flags bound to the same viper keys override all three.
package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/common/validation"
	"github.com/vnykmshr/tempo/pkg/ratelimit/throttle"
)

const module = "config"

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Control ControlConfig `mapstructure:"control"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ControlConfig configures the per-key controls the server creates
type ControlConfig struct {
	DebounceDelay    time.Duration `mapstructure:"debounce_delay"`
	DebounceMaxWait  time.Duration `mapstructure:"debounce_max_wait"`
	DebounceLeading  bool          `mapstructure:"debounce_leading"`
	ThrottleInterval time.Duration `mapstructure:"throttle_interval"`
	ThrottlePolicy   string        `mapstructure:"throttle_policy"`
}

// Policy returns the parsed throttle policy.
func (c ControlConfig) Policy() (throttle.Policy, error) {
	return throttle.ParsePolicy(c.ThrottlePolicy)
}

// RedisConfig enables cluster-wide throttling when Addr is set
type RedisConfig struct {
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	Timeout         time.Duration `mapstructure:"timeout"`
	FallbackToLocal bool          `mapstructure:"fallback_to_local"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// SweepConfig controls idle key eviction
type SweepConfig struct {
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
	Spec    string        `mapstructure:"spec"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.NewValidationError(module, "server.port", c.Server.Port, "out of range").
			WithHint("use a port between 1 and 65535")
	}

	durations := []struct {
		field string
		value time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"control.debounce_delay", c.Control.DebounceDelay},
		{"control.debounce_max_wait", c.Control.DebounceMaxWait},
		{"control.throttle_interval", c.Control.ThrottleInterval},
		{"redis.timeout", c.Redis.Timeout},
	}
	for _, d := range durations {
		if err := validation.ValidateNonNegativeDuration(module, d.field, d.value); err != nil {
			return err
		}
	}

	if c.Control.DebounceMaxWait > 0 && c.Control.DebounceMaxWait < c.Control.DebounceDelay {
		return errors.NewValidationError(module, "control.debounce_max_wait", c.Control.DebounceMaxWait, "shorter than debounce_delay").
			WithHint("set debounce_max_wait to 0 or at least debounce_delay")
	}
	policy, err := c.Control.Policy()
	if err != nil {
		return err
	}
	if c.Redis.Enabled() && policy != throttle.Basic {
		return errors.NewValidationError(module, "control.throttle_policy", c.Control.ThrottlePolicy, "not supported with redis").
			WithHint("distributed throttling only drops calls; use basic or unset redis.addr")
	}
	if c.Redis.Enabled() && c.Control.ThrottleInterval == 0 {
		return errors.NewValidationError(module, "control.throttle_interval", 0, "must be positive with redis").
			WithHint("distributed throttling needs a window length")
	}

	if err := validation.ValidatePositiveDuration(module, "sweep.idle_ttl", c.Sweep.IdleTTL); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.Sweep.Spec); err != nil {
		return errors.NewValidationError(module, "sweep.spec", c.Sweep.Spec, err.Error()).
			WithHint("use a cron expression or a descriptor such as @every 1m")
	}

	return validation.ValidateOneOf(module, "logging.level", c.Logging.Level, "debug", "info", "warn", "error")
}
