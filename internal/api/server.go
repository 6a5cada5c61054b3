// Package api exposes the availability and booking operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"mesa/internal/models"
	"mesa/internal/service"
)

// HTTPServer serves the public booking API.
type HTTPServer struct {
	svc             *service.ReservationService
	log             zerolog.Logger
	apiKey          string
	limiter         *rate.Limiter
	defaultDayCount int
	maxDayCount     int
	server          *http.Server
}

// ServerConfig carries the listener settings.
type ServerConfig struct {
	Port            int
	APIKey          string
	RatePerSec      float64
	RateBurst       int
	DefaultDayCount int
	MaxDayCount     int
}

// NewHTTPServer builds the server and its routes. Start must be called to
// begin listening.
func NewHTTPServer(svc *service.ReservationService, cfg ServerConfig, log zerolog.Logger) *HTTPServer {
	defaultDays := cfg.DefaultDayCount
	if defaultDays <= 0 {
		defaultDays = 14
	}
	s := &HTTPServer{
		svc:             svc,
		log:             log,
		apiKey:          cfg.APIKey,
		defaultDayCount: defaultDays,
		maxDayCount:     cfg.MaxDayCount,
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int(cfg.RatePerSec)
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/v1/businesses/", s.protected(s.handleBusinesses))
	mux.HandleFunc("/api/v1/reservations", s.protected(s.handleCreateReservation))
	mux.HandleFunc("/api/v1/reservations/", s.protected(s.handleReservationStatus))

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start listens until the server is shut down.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("api server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the mux; used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// protected enforces the API key and the global rate limit.
func (s *HTTPServer) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrNoAvailability), errors.Is(err, models.ErrCapacityExceeded):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *HTTPServer) serviceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	// Ready when the service layer can reach storage; a cheap probe.
	if _, err := s.svc.ListAvailableDates(r.Context(), 0, 1); err != nil && !errors.Is(err, models.ErrValidation) && !errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// parseDuration reads the duration query parameters: either
// duration_minutes=N or duration=no_limit|all_day|all_evening.
func parseDuration(q map[string][]string) (models.Duration, error) {
	get := func(key string) string {
		if vs := q[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}
	if v := get("duration_minutes"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return models.Duration{}, fmt.Errorf("%w: duration_minutes must be a positive integer", models.ErrValidation)
		}
		return models.MinutesDuration(minutes), nil
	}
	if v := get("duration"); v != "" {
		kind, err := models.ParseDurationKind(v)
		if err != nil || kind == models.DurationMinutes {
			return models.Duration{}, fmt.Errorf("%w: duration must be no_limit, all_day or all_evening", models.ErrValidation)
		}
		return models.Duration{Kind: kind}, nil
	}
	return models.Duration{}, fmt.Errorf("%w: duration_minutes or duration is required", models.ErrValidation)
}

// businessPath splits "/api/v1/businesses/{id}/{op}" into its parts. The
// export operation lives one level deeper, under {id}/reservations/export.
func businessPath(path string) (int64, string, error) {
	const prefix = "/api/v1/businesses/"
	if !strings.HasPrefix(path, prefix) {
		return 0, "", fmt.Errorf("%w: invalid path", models.ErrValidation)
	}
	parts := strings.Split(strings.Trim(path[len(prefix):], "/"), "/")
	op := ""
	switch {
	case len(parts) == 2:
		op = parts[1]
	case len(parts) == 3 && parts[1] == "reservations" && parts[2] == "export":
		op = "export"
	default:
		return 0, "", fmt.Errorf("%w: expected /api/v1/businesses/{id}/{operation}", models.ErrValidation)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("%w: invalid business id", models.ErrValidation)
	}
	return id, op, nil
}
