package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vnykmshr/tempo/pkg/ratelimit/keyed"
)

// maxArgBytes caps the request body used as the call argument.
const maxArgBytes = 64 << 10

// CallResponse is returned by the control endpoints.
type CallResponse struct {
	Executed bool `json:"executed"`
}

// KeysResponse lists the live keys per control.
type KeysResponse struct {
	Debounce []string `json:"debounce"`
	Throttle []string `json:"throttle"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/metrics", s.metricsHandler().ServeHTTP)

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/debounce/{key}", s.handleCall(s.debounced))
		r.Post("/throttle/{key}", s.handleCall(s.throttled))
		r.Get("/keys", s.handleKeys)
	})
}

func (s *Server) handleCall(group *keyed.Group[string, string]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		body, err := io.ReadAll(io.LimitReader(r.Body, maxArgBytes+1))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read body"})
			return
		}
		if len(body) > maxArgBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "argument too large"})
			return
		}

		executed, err := group.Call(key, string(body))
		if err != nil {
			s.logger.Error("call failed",
				zap.String("key", key),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, CallResponse{Executed: executed})
	}
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	resp := KeysResponse{
		Debounce: s.debounced.Keys(),
		Throttle: s.throttled.Keys(),
	}
	sort.Strings(resp.Debounce)
	sort.Strings(resp.Throttle)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Version: s.opts.Version}
	status := http.StatusOK

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		resp.Checks = map[string]string{"redis": "healthy"}
		if err := s.redis.Ping(ctx).Err(); err != nil {
			resp.Checks["redis"] = "unhealthy"
			if s.cfg.Redis.FallbackToLocal {
				resp.Status = "degraded"
			} else {
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
			}
		}
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
