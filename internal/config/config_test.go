package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tperrors "github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/ratelimit/throttle"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, 500*time.Millisecond, cfg.Control.DebounceDelay)
	assert.Equal(t, time.Second, cfg.Control.ThrottleInterval)
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Redis.FallbackToLocal)
	assert.Equal(t, "@every 1m", cfg.Sweep.Spec)
	assert.Equal(t, "info", cfg.Logging.Level)

	policy, err := cfg.Control.Policy()
	require.NoError(t, err)
	assert.Equal(t, throttle.Basic, policy)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("TEMPO_SERVER_PORT", "9999")
	t.Setenv("TEMPO_CONTROL_THROTTLE_POLICY", "leading-trailing")
	t.Setenv("TEMPO_CONTROL_DEBOUNCE_DELAY", "250ms")
	t.Setenv("TEMPO_REDIS_KEY_PREFIX", "svc")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "leading-trailing", cfg.Control.ThrottlePolicy)
	assert.Equal(t, 250*time.Millisecond, cfg.Control.DebounceDelay)
	assert.Equal(t, "svc", cfg.Redis.KeyPrefix)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadEnvironmentRedis(t *testing.T) {
	t.Setenv("TEMPO_REDIS_ADDR", "redis:6379")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.True(t, cfg.Redis.Enabled())

	t.Setenv("TEMPO_CONTROL_THROTTLE_POLICY", "leading-trailing")
	_, err = Load(viper.New(), "")
	assert.True(t, tperrors.IsValidationError(err))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tempo.yaml")
	content := `
server:
  port: 7070
control:
  debounce_delay: 2s
  debounce_max_wait: 10s
  debounce_leading: true
sweep:
  idle_ttl: 30m
  spec: "*/5 * * * *"
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Control.DebounceDelay)
	assert.Equal(t, 10*time.Second, cfg.Control.DebounceMaxWait)
	assert.True(t, cfg.Control.DebounceLeading)
	assert.Equal(t, 30*time.Minute, cfg.Sweep.IdleTTL)
	assert.Equal(t, "*/5 * * * *", cfg.Sweep.Spec)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"negative delay", func(c *Config) { c.Control.DebounceDelay = -time.Second }, "control.debounce_delay"},
		{"max wait below delay", func(c *Config) { c.Control.DebounceMaxWait = time.Millisecond }, "control.debounce_max_wait"},
		{"unknown policy", func(c *Config) { c.Control.ThrottlePolicy = "trailing" }, "policy"},
		{"redis without interval", func(c *Config) {
			c.Redis.Addr = "localhost:6379"
			c.Control.ThrottleInterval = 0
		}, "control.throttle_interval"},
		{"leading-trailing with redis", func(c *Config) {
			c.Redis.Addr = "localhost:6379"
			c.Control.ThrottlePolicy = "leading-trailing"
		}, "control.throttle_policy"},
		{"zero idle ttl", func(c *Config) { c.Sweep.IdleTTL = 0 }, "sweep.idle_ttl"},
		{"bad sweep spec", func(c *Config) { c.Sweep.Spec = "sometimes" }, "sweep.spec"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tperrors.ErrInvalidArgument)

			var verr *tperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
