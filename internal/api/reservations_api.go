package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"mesa/internal/metrics"
	"mesa/internal/models"
	"mesa/internal/service"
)

// CreateReservationRequest is the body for POST /api/v1/reservations.
type CreateReservationRequest struct {
	BusinessID      int64  `json:"business_id"`
	ResourceID      *int64 `json:"resource_id,omitempty"`
	ServiceID       *int64 `json:"service_id,omitempty"`
	CustomerID      int64  `json:"customer_id"`
	Date            string `json:"date"` // YYYY-MM-DD
	Time            string `json:"time"` // HH:MM
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	DurationKind    string `json:"duration_kind,omitempty"` // no_limit, all_day, all_evening
	PartySize       int    `json:"party_size"`
	Notes           string `json:"notes,omitempty"`
}

// StatusRequest is the body for POST /api/v1/reservations/{id}/status.
type StatusRequest struct {
	Status    string `json:"status"`
	ActorKind string `json:"actor_kind"` // business, customer, system
	ActorID   int64  `json:"actor_id"`
}

// handleCreateReservation books a slot.
// POST /api/v1/reservations
func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_reservation")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CreateReservationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BusinessID <= 0 {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}
	if req.Date == "" || req.Time == "" {
		writeError(w, http.StatusBadRequest, "date and time are required")
		return
	}

	var duration models.Duration
	switch {
	case req.DurationMinutes > 0:
		duration = models.MinutesDuration(req.DurationMinutes)
	case req.DurationKind != "":
		kind, err := models.ParseDurationKind(req.DurationKind)
		if err != nil || kind == models.DurationMinutes {
			writeError(w, http.StatusBadRequest, "duration_kind must be no_limit, all_day or all_evening")
			return
		}
		duration = models.Duration{Kind: kind}
	case req.ServiceID == nil:
		writeError(w, http.StatusBadRequest, "duration_minutes, duration_kind or service_id is required")
		return
	}

	created, err := s.svc.CreateReservation(r.Context(), service.CreateRequest{
		BusinessID: req.BusinessID,
		ResourceID: req.ResourceID,
		ServiceID:  req.ServiceID,
		CustomerID: req.CustomerID,
		Date:       req.Date,
		Time:       req.Time,
		Duration:   duration,
		PartySize:  req.PartySize,
		Notes:      req.Notes,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleReservationStatus applies a lifecycle transition.
// POST /api/v1/reservations/{id}/status
func (s *HTTPServer) handleReservationStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_status")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	const prefix = "/api/v1/reservations/"
	parts := strings.Split(strings.Trim(r.URL.Path[len(prefix):], "/"), "/")
	if len(parts) != 2 || parts[1] != "status" {
		writeError(w, http.StatusNotFound, "expected /api/v1/reservations/{id}/status")
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	var req StatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	status := models.Status(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	actor, err := parseActor(req.ActorKind, req.ActorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.svc.SetReservationStatus(r.Context(), id, status, actor)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func parseActor(kind string, id int64) (models.Actor, error) {
	switch models.ActorKind(kind) {
	case models.ActorBusiness, models.ActorCustomer:
		if id <= 0 {
			return models.Actor{}, errActorID
		}
		return models.Actor{Kind: models.ActorKind(kind), ID: id}, nil
	case models.ActorSystem:
		return models.Actor{Kind: models.ActorSystem}, nil
	}
	return models.Actor{}, errActorKind
}

var (
	errActorKind = errors.New("actor_kind must be business, customer or system")
	errActorID   = errors.New("actor_id is required for business and customer actors")
)
