package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vnykmshr/tempo/internal/config"
	"github.com/vnykmshr/tempo/internal/testutil"
	tperrors "github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/metrics"
)

type harness struct {
	server *Server
	clock  *testutil.MockClock
	logs   *observer.ObservedLogs
}

func newHarness(t *testing.T, cfg *config.Config, client redis.UniversalClient) *harness {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	clk := testutil.NewMockClock(time.Time{})
	reg := prometheus.NewRegistry()

	s, err := New(cfg, Options{
		Logger:   zap.New(core),
		Redis:    client,
		Clock:    clk,
		Gatherer: reg,
		Metrics:  metrics.Config{Registry: reg},
		Version:  "test",
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return &harness{server: s, clock: clk, logs: logs}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *harness) executions() []string {
	var args []string
	for _, entry := range h.logs.FilterMessage("execution").All() {
		args = append(args, entry.ContextMap()["key"].(string)+"="+entry.ContextMap()["arg"].(string))
	}
	return args
}

func decodeCall(t *testing.T, rec *httptest.ResponseRecorder) bool {
	t.Helper()
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp CallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Executed
}

func TestThrottleEndpoint(t *testing.T) {
	h := newHarness(t, config.Default(), nil)

	assert.True(t, decodeCall(t, h.do(t, http.MethodPost, "/v1/throttle/user-1", "a")))
	assert.False(t, decodeCall(t, h.do(t, http.MethodPost, "/v1/throttle/user-1", "b")))
	assert.True(t, decodeCall(t, h.do(t, http.MethodPost, "/v1/throttle/user-2", "c")), "keys are throttled independently")

	h.clock.Advance(time.Second)
	assert.True(t, decodeCall(t, h.do(t, http.MethodPost, "/v1/throttle/user-1", "d")))

	assert.Equal(t, []string{"user-1=a", "user-2=c", "user-1=d"}, h.executions())
}

func TestDebounceEndpoint(t *testing.T) {
	h := newHarness(t, config.Default(), nil)

	for _, arg := range []string{"t", "te", "tem"} {
		assert.False(t, decodeCall(t, h.do(t, http.MethodPost, "/v1/debounce/search", arg)))
		h.clock.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, h.executions())

	h.clock.Advance(400 * time.Millisecond)
	assert.Equal(t, []string{"search=tem"}, h.executions())
}

func TestLeadingTrailingPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Control.ThrottlePolicy = "leading-trailing"
	h := newHarness(t, cfg, nil)

	assert.True(t, decodeCall(t, h.do(t, http.MethodPost, "/v1/throttle/k", "a")))
	assert.False(t, decodeCall(t, h.do(t, http.MethodPost, "/v1/throttle/k", "b")))
	assert.False(t, decodeCall(t, h.do(t, http.MethodPost, "/v1/throttle/k", "c")))

	h.clock.Advance(time.Second)
	assert.Equal(t, []string{"k=a", "k=c"}, h.executions())
}

func TestKeysEndpoint(t *testing.T) {
	h := newHarness(t, config.Default(), nil)

	h.do(t, http.MethodPost, "/v1/throttle/b", "")
	h.do(t, http.MethodPost, "/v1/throttle/a", "")
	h.do(t, http.MethodPost, "/v1/debounce/z", "")

	rec := h.do(t, http.MethodGet, "/v1/keys", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp KeysResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"z"}, resp.Debounce)
	assert.Equal(t, []string{"a", "b"}, resp.Throttle)
}

func TestArgumentTooLarge(t *testing.T) {
	h := newHarness(t, config.Default(), nil)

	rec := h.do(t, http.MethodPost, "/v1/throttle/k", strings.Repeat("x", maxArgBytes+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, h.executions())
}

func TestClosedServerRejectsCalls(t *testing.T) {
	h := newHarness(t, config.Default(), nil)
	h.server.Close()

	rec := h.do(t, http.MethodPost, "/v1/throttle/k", "a")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "closed")
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		h := newHarness(t, config.Default(), nil)
		rec := h.do(t, http.MethodGet, "/healthz", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "test", resp.Version)
		assert.Empty(t, resp.Checks)
	})

	tests := []struct {
		name       string
		fallback   bool
		down       bool
		wantCode   int
		wantStatus string
	}{
		{"redis up", false, false, http.StatusOK, "healthy"},
		{"redis down with fallback", true, true, http.StatusOK, "degraded"},
		{"redis down without fallback", false, true, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, client := setupRedis(t)
			cfg := config.Default()
			cfg.Redis.FallbackToLocal = tt.fallback
			h := newHarness(t, cfg, client)
			if tt.down {
				mr.Close()
			}

			rec := h.do(t, http.MethodGet, "/healthz", "")
			assert.Equal(t, tt.wantCode, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Contains(t, resp.Checks, "redis")
		})
	}
}

func TestDistributedThrottle(t *testing.T) {
	mr, client := setupRedis(t)
	cfg := config.Default()

	// Two servers sharing one Redis behave as one throttle.
	first := newHarness(t, cfg, client)
	second := newHarness(t, cfg, client)

	assert.True(t, decodeCall(t, first.do(t, http.MethodPost, "/v1/throttle/job", "a")))
	assert.False(t, decodeCall(t, second.do(t, http.MethodPost, "/v1/throttle/job", "b")))
	assert.True(t, mr.Exists("tempo:throttle:job:gate"))

	mr.FastForward(time.Second)
	assert.True(t, decodeCall(t, second.do(t, http.MethodPost, "/v1/throttle/job", "c")))

	assert.Equal(t, []string{"job=a"}, first.executions())
	assert.Equal(t, []string{"job=c"}, second.executions())
}

func TestDistributedRejectsLeadingTrailing(t *testing.T) {
	_, client := setupRedis(t)
	cfg := config.Default()
	cfg.Control.ThrottlePolicy = "leading-trailing"

	s, err := New(cfg, Options{Redis: client, Clock: testutil.NewMockClock(time.Time{})})
	assert.Nil(t, s)
	assert.True(t, tperrors.IsValidationError(err))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, config.Default(), nil)
	h.do(t, http.MethodPost, "/v1/throttle/k", "a")
	h.do(t, http.MethodPost, "/v1/throttle/k", "b")

	rec := h.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `tempo_control_calls_total{control_name="http_throttle",control_type="throttle"} 2`)
	assert.Contains(t, body, `tempo_control_suppressed_total{control_name="http_throttle",control_type="throttle"} 1`)
	assert.Contains(t, body, `tempo_keyed_active_keys{group_name="http_throttle"} 1`)
}

func TestPendingGaugeCountsEveryKey(t *testing.T) {
	h := newHarness(t, config.Default(), nil)
	pending := func() string {
		rec := h.do(t, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Body.String()
	}
	const series = `tempo_control_pending{control_name="http_debounce",control_type="debounce"} `

	h.do(t, http.MethodPost, "/v1/debounce/a", "1")
	h.clock.Advance(300 * time.Millisecond)
	h.do(t, http.MethodPost, "/v1/debounce/b", "2")
	assert.Contains(t, pending(), series+"2")

	// a fires at 500ms, b stays pending until 800ms.
	h.clock.Advance(250 * time.Millisecond)
	assert.Equal(t, []string{"a=1"}, h.executions())
	assert.Contains(t, pending(), series+"1")

	h.clock.Advance(250 * time.Millisecond)
	assert.Equal(t, []string{"a=1", "b=2"}, h.executions())
	assert.Contains(t, pending(), series+"0")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	h := newHarness(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.server.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	rec := h.do(t, http.MethodPost, "/v1/throttle/k", "a")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
