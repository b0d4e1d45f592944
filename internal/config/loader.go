package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable tempo reads.
const EnvPrefix = "TEMPO"

// SetDefaults registers default values on v. Every key must have a default
// so that environment variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Control defaults
	v.SetDefault("control.debounce_delay", 500*time.Millisecond)
	v.SetDefault("control.debounce_max_wait", 0)
	v.SetDefault("control.debounce_leading", false)
	v.SetDefault("control.throttle_interval", time.Second)
	v.SetDefault("control.throttle_policy", "basic")

	// Redis defaults (disabled unless addr is set)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "tempo")
	v.SetDefault("redis.timeout", 500*time.Millisecond)
	v.SetDefault("redis.fallback_to_local", true)

	// Sweep defaults
	v.SetDefault("sweep.idle_ttl", 5*time.Minute)
	v.SetDefault("sweep.spec", "@every 1m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// Load reads configuration into a validated Config. file may be empty, in
// which case only defaults and the environment are used.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration produced by the defaults alone.
func Default() *Config {
	cfg, err := Load(viper.New(), "")
	if err != nil {
		// The defaults are valid; reaching this is a programming error.
		panic(err)
	}
	return cfg
}
