package api

import (
	"fmt"
	"net/http"
	"strconv"

	"mesa/internal/export"
	"mesa/internal/metrics"
	"mesa/internal/models"
)

// DatesResponse is the response for GET /api/v1/businesses/{id}/dates.
type DatesResponse struct {
	BusinessID int64    `json:"business_id"`
	Days       int      `json:"days"`
	Dates      []string `json:"dates"`
}

// SlotsResponse is the response for GET /api/v1/businesses/{id}/slots.
type SlotsResponse struct {
	BusinessID int64    `json:"business_id"`
	Date       string   `json:"date"`
	Duration   string   `json:"duration"`
	Slots      []string `json:"slots"`
}

// ResourcesResponse is the response for GET /api/v1/businesses/{id}/resources.
type ResourcesResponse struct {
	BusinessID int64             `json:"business_id"`
	Date       string            `json:"date"`
	Time       string            `json:"time"`
	Resources  []models.Resource `json:"resources"`
}

// handleBusinesses dispatches /api/v1/businesses/{id}/{dates|slots|resources|export}.
func (s *HTTPServer) handleBusinesses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	businessID, op, err := businessPath(r.URL.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch op {
	case "dates":
		s.handleListDates(w, r, businessID)
	case "slots":
		s.handleListSlots(w, r, businessID)
	case "resources":
		s.handleListResources(w, r, businessID)
	case "export":
		s.handleExport(w, r, businessID)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown operation %q", op))
	}
}

// handleListDates returns upcoming dates with at least one open window.
// GET /api/v1/businesses/{id}/dates?days=N
func (s *HTTPServer) handleListDates(w http.ResponseWriter, r *http.Request, businessID int64) {
	metrics.IncHTTP("list_dates")

	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	if days == 0 {
		days = s.defaultDayCount
	}
	if s.maxDayCount > 0 && days > s.maxDayCount {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("days exceeds maximum of %d", s.maxDayCount))
		return
	}

	dates, err := s.svc.ListAvailableDates(r.Context(), businessID, days)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DatesResponse{BusinessID: businessID, Days: days, Dates: dates})
}

// handleListSlots returns bookable start times for a date and duration.
// GET /api/v1/businesses/{id}/slots?date=YYYY-MM-DD&duration_minutes=N
func (s *HTTPServer) handleListSlots(w http.ResponseWriter, r *http.Request, businessID int64) {
	metrics.IncHTTP("list_slots")

	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	duration, err := parseDuration(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slots, err := s.svc.ListAvailableSlots(r.Context(), businessID, date, duration)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SlotsResponse{
		BusinessID: businessID,
		Date:       date,
		Duration:   duration.String(),
		Slots:      slots,
	})
}

// handleListResources returns resources free for an interval.
// GET /api/v1/businesses/{id}/resources?date=YYYY-MM-DD&time=HH:MM&duration_minutes=N
func (s *HTTPServer) handleListResources(w http.ResponseWriter, r *http.Request, businessID int64) {
	metrics.IncHTTP("list_resources")

	q := r.URL.Query()
	date, clock := q.Get("date"), q.Get("time")
	if date == "" || clock == "" {
		writeError(w, http.StatusBadRequest, "date and time are required")
		return
	}
	duration, err := parseDuration(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resources, err := s.svc.ListAvailableResources(r.Context(), businessID, date, clock, duration)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ResourcesResponse{
		BusinessID: businessID,
		Date:       date,
		Time:       clock,
		Resources:  resources,
	})
}

// handleExport streams a reservations workbook for a date range.
// GET /api/v1/businesses/{id}/reservations/export?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, businessID int64) {
	metrics.IncHTTP("export")

	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	rows, err := s.svc.ReservationsForExport(r.Context(), businessID, from, to)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	book, err := export.Reservations(fmt.Sprintf("Business %d", businessID), rows)
	if err != nil {
		s.log.Error().Err(err).Int64("business_id", businessID).Msg("export build failed")
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	filename := fmt.Sprintf("reservations_%d_%s_%s.xlsx", businessID, from, to)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := book.Save(w); err != nil {
		s.log.Error().Err(err).Msg("export write failed")
	}
}
