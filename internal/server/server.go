// Package server exposes per-key debounce and throttle controls over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vnykmshr/tempo/internal/config"
	"github.com/vnykmshr/tempo/pkg/common/clock"
	tperrors "github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/metrics"
	"github.com/vnykmshr/tempo/pkg/ratelimit/debounce"
	"github.com/vnykmshr/tempo/pkg/ratelimit/distributed"
	"github.com/vnykmshr/tempo/pkg/ratelimit/keyed"
	"github.com/vnykmshr/tempo/pkg/ratelimit/throttle"
)

// Options carries dependencies that are not part of the file configuration.
type Options struct {
	// Logger receives request and execution logs. If nil, logging is disabled.
	Logger *zap.Logger

	// Redis is used for throttling when set. If nil and cfg.Redis.Addr is
	// set, a client is created from the configuration.
	Redis redis.UniversalClient

	// Clock drives the controls. If nil, clock.System is used.
	Clock clock.Clock

	// Gatherer serves /metrics. If nil, prometheus.DefaultGatherer is used.
	Gatherer prometheus.Gatherer

	// Metrics configures control instrumentation. The zero value reports
	// to metrics.DefaultRegistry.
	Metrics metrics.Config

	// Version is reported by /healthz.
	Version string
}

// Server represents the HTTP server
type Server struct {
	cfg       *config.Config
	opts      Options
	logger    *zap.Logger
	router    *chi.Mux
	server    *http.Server
	redis     redis.UniversalClient
	ownsRedis bool

	debounced *keyed.Group[string, string]
	throttled *keyed.Group[string, string]
}

// New creates a new HTTP server instance
func New(cfg *config.Config, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	opts.Metrics.Enabled = true

	s := &Server{
		cfg:    cfg,
		opts:   opts,
		logger: opts.Logger,
		redis:  opts.Redis,
	}
	if s.redis == nil && cfg.Redis.Enabled() {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.ownsRedis = true
	}

	throttleFactory, err := s.throttleFactory()
	if err != nil {
		if s.ownsRedis {
			_ = s.redis.Close()
		}
		return nil, err
	}
	if s.debounced, err = keyed.New(s.debounceFactory(), s.groupConfig("http_debounce")); err != nil {
		return nil, err
	}
	if s.throttled, err = keyed.New(throttleFactory, s.groupConfig("http_throttle")); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	s.router = r
	s.registerRoutes()

	return s, nil
}

func (s *Server) groupConfig(name string) keyed.Config {
	return keyed.Config{
		IdleTTL:   s.cfg.Sweep.IdleTTL,
		SweepSpec: s.cfg.Sweep.Spec,
		Name:      name,
		Clock:     s.opts.Clock,
		Logger:    s.logger,
		Metrics:   s.opts.Metrics,
	}
}

func (s *Server) debounceFactory() keyed.Factory[string, string] {
	cfg := debounce.Config{
		Delay:   s.cfg.Control.DebounceDelay,
		MaxWait: s.cfg.Control.DebounceMaxWait,
		Leading: s.cfg.Control.DebounceLeading,
		Name:    "http_debounce",
		Clock:   s.opts.Clock,
		Logger:  s.logger,
	}
	return func(key string) (keyed.Member[string], error) {
		d, err := debounce.NewWithConfigAndMetrics(keyed.Bind(s.executed(metrics.TypeDebounce), key), cfg, cfg.Name, s.opts.Metrics)
		if err != nil {
			return nil, err
		}
		return keyed.Debounced(d), nil
	}
}

func (s *Server) throttleFactory() (keyed.Factory[string, string], error) {
	policy, err := s.cfg.Control.Policy()
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if policy != throttle.Basic {
			return nil, tperrors.NewValidationError("server", "control.throttle_policy", s.cfg.Control.ThrottlePolicy,
				"not supported with redis")
		}
		return func(key string) (keyed.Member[string], error) {
			t, err := distributed.NewThrottler(keyed.Bind(s.executed(metrics.TypeDistributedThrottle), key),
				s.cfg.Control.ThrottleInterval, distributed.Config{
					Redis:           s.redis,
					Key:             s.cfg.Redis.KeyPrefix + ":throttle:" + key,
					FallbackToLocal: s.cfg.Redis.FallbackToLocal,
					RedisTimeout:    s.cfg.Redis.Timeout,
					Name:            "http_throttle",
					Clock:           s.opts.Clock,
					Logger:          s.logger,
					Metrics:         s.opts.Metrics,
				})
			if err != nil {
				return nil, err
			}
			return &remoteMember{throttler: t, logger: s.logger.With(zap.String("key", key))}, nil
		}, nil
	}

	cfg := throttle.Config{
		Interval: s.cfg.Control.ThrottleInterval,
		Policy:   policy,
		Name:     "http_throttle",
		Clock:    s.opts.Clock,
		Logger:   s.logger,
	}
	return func(key string) (keyed.Member[string], error) {
		return throttle.NewWithConfigAndMetrics(keyed.Bind(s.executed(metrics.TypeThrottle), key), cfg, cfg.Name, s.opts.Metrics)
	}, nil
}

// executed returns the function every control runs: it logs the execution.
func (s *Server) executed(control string) func(key, arg string) {
	return func(key, arg string) {
		s.logger.Info("execution",
			zap.String("control", control),
			zap.String("key", key),
			zap.String("arg", arg))
	}
}

// remoteMember adapts a distributed.Throttler to keyed.Member. Backend
// errors are logged and reported as a call that did not execute.
type remoteMember struct {
	throttler *distributed.Throttler[string]
	logger    *zap.Logger
}

func (m *remoteMember) Call(arg string) bool {
	executed, err := m.throttler.Call(context.Background(), arg)
	if err != nil {
		m.logger.Warn("distributed throttle failed", zap.Error(err))
	}
	return executed
}

func (m *remoteMember) Pending() bool { return false }

func (m *remoteMember) Stop() { _ = m.throttler.Close() }

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.debounced.Start(); err != nil {
		return err
	}
	if err := s.throttled.Start(); err != nil {
		return err
	}

	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer cancel()
	err := s.Shutdown(shutdownCtx)
	<-errCh
	return err
}

// Shutdown gracefully shuts down the HTTP server and the controls.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.Close()
	return err
}

// Close stops every control and releases the Redis client if the server created it.
// Pending debounced calls are dropped.
func (s *Server) Close() {
	s.debounced.Stop()
	s.throttled.Stop()
	if s.ownsRedis {
		_ = s.redis.Close()
	}
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.cfg.Server.ShutdownTimeout > 0 {
		return s.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

// metricsHandler serves the Prometheus exposition format.
func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})
}
