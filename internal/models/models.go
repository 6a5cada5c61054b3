package models

import "time"

// Status of a reservation. Transitions are governed by the lifecycle
// machine in internal/booking; nothing else mutates status directly.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

// IsActive reports whether the reservation still occupies its resource
// interval and counts for conflict checks.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Business is a bookable venue operating in a single fixed timezone.
type Business struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	MaxCapacity int       `json:"max_capacity"` // largest party the venue can seat, informational
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WeeklyHours is the operating window for one day of week (0=Sunday..6=Saturday).
// At most one row exists per (business, day_of_week). Times are "HH:MM".
type WeeklyHours struct {
	ID         int64     `json:"id"`
	BusinessID int64     `json:"business_id"`
	DayOfWeek  int       `json:"day_of_week"`
	IsClosed   bool      `json:"is_closed"`
	OpenTime   string    `json:"open_time"`
	CloseTime  string    `json:"close_time"`
	BreakStart string    `json:"break_start,omitempty"`
	BreakEnd   string    `json:"break_end,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Closure marks a specific date as fully closed, overriding WeeklyHours.
type Closure struct {
	ID         int64     `json:"id"`
	BusinessID int64     `json:"business_id"`
	Date       string    `json:"date"` // YYYY-MM-DD
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service is an offering with a fixed or symbolic duration.
type Service struct {
	ID         int64     `json:"id"`
	BusinessID int64     `json:"business_id"`
	Name       string    `json:"name"`
	Duration   Duration  `json:"duration"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Resource is a capacity-bearing booking target, a table.
type Resource struct {
	ID         int64     `json:"id"`
	BusinessID int64     `json:"business_id"`
	Name       string    `json:"name"`
	Capacity   int       `json:"capacity"`
	Category   string    `json:"category,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Reservation occupies [StartTime, EndTime) on Date for an optional resource.
// Symbolic durations are resolved to a concrete EndTime when the reservation
// is written, so overlap checks always work on stored intervals.
type Reservation struct {
	ID         int64     `json:"id"`
	Reference  string    `json:"reference"` // uuid, external-facing
	BusinessID int64     `json:"business_id"`
	ResourceID *int64    `json:"resource_id,omitempty"`
	ServiceID  *int64    `json:"service_id,omitempty"`
	CustomerID int64     `json:"customer_id"`
	Date       string    `json:"date"` // YYYY-MM-DD
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Duration   Duration  `json:"duration"`
	PartySize  int       `json:"party_size"`
	Status     Status    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OverlapsWith checks interval overlap against another reservation using
// half-open [start, end) semantics: A < D && C < B.
func (r *Reservation) OverlapsWith(other *Reservation) bool {
	return r.StartTime.Before(other.EndTime) && other.StartTime.Before(r.EndTime)
}

// Overlaps checks the reservation's interval against an arbitrary [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && start.Before(r.EndTime)
}

// Window is an open interval of a business day, [Start, End), both "HH:MM"
// minutes-of-day resolved onto a concrete date by the caller.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Minutes returns the window length in whole minutes.
func (w Window) Minutes() int {
	return int(w.End.Sub(w.Start) / time.Minute)
}

// Actor identifies who requests a status transition.
type ActorKind string

const (
	ActorBusiness ActorKind = "business"
	ActorCustomer ActorKind = "customer"
	ActorSystem   ActorKind = "system"
)

type Actor struct {
	Kind ActorKind
	ID   int64
}
