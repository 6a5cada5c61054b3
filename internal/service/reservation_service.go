// Package service orchestrates the availability read path and the guarded
// booking write path over injected repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mesa/internal/availability"
	"mesa/internal/booking"
	"mesa/internal/cache"
	"mesa/internal/calendar"
	"mesa/internal/metrics"
	"mesa/internal/models"
	"mesa/internal/slots"
)

// Repository is the persistence surface the service depends on. *database.DB
// implements it; tests substitute mocks.
type Repository interface {
	GetBusiness(ctx context.Context, id int64) (*models.Business, error)
	GetWeeklyHours(ctx context.Context, businessID int64, dayOfWeek int) (*models.WeeklyHours, error)
	CountWeeklyHours(ctx context.Context, businessID int64) (int, error)
	HasClosure(ctx context.Context, businessID int64, date string) (bool, error)
	ActiveResources(ctx context.Context, businessID int64) ([]models.Resource, error)
	GetResource(ctx context.Context, id int64) (*models.Resource, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	ActiveReservationsByDate(ctx context.Context, businessID int64, date string) ([]models.Reservation, error)
	CreateReservationGuarded(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id, version int64, status models.Status) error
	SweepLapsed(ctx context.Context, now time.Time) (completed, noShow int64, err error)
	ReservationsByDateRange(ctx context.Context, businessID int64, from, to string) ([]models.Reservation, error)
}

// Options tune slot generation, symbolic-duration resolution and the
// booking horizon.
type Options struct {
	Granularity    time.Duration
	EveningStart   string // "HH:MM", start of the all_evening span
	MaxAdvanceDays int    // how far ahead a reservation may be placed
}

// ReservationService implements the engine's exposed operations.
type ReservationService struct {
	repo         Repository
	resolver     *calendar.Resolver
	calc         *availability.Calculator
	lifecycle    *booking.Lifecycle
	locks        *booking.ResourceLocks
	cache        *cache.Cache
	logger       *zerolog.Logger
	granularity  time.Duration
	eveningStart string
	maxAdvance   int
	now          func() time.Time
}

// NewReservationService wires the calculator and lifecycle over the
// repository. The cache may be nil.
func NewReservationService(repo Repository, loc *time.Location, opts Options, c *cache.Cache, logger *zerolog.Logger) *ReservationService {
	granularity := opts.Granularity
	if granularity <= 0 {
		granularity = slots.DefaultGranularity
	}
	evening := opts.EveningStart
	if evening == "" {
		evening = "17:00"
	}
	maxAdvance := opts.MaxAdvanceDays
	if maxAdvance <= 0 {
		maxAdvance = 90
	}
	return &ReservationService{
		repo:         repo,
		resolver:     calendar.NewResolver(repo, loc),
		calc:         availability.NewCalculator(repo, repo),
		lifecycle:    booking.NewLifecycle(),
		locks:        booking.NewResourceLocks(),
		cache:        c,
		logger:       logger,
		granularity:  granularity,
		eveningStart: evening,
		maxAdvance:   maxAdvance,
		now:          time.Now,
	}
}

// SetClock overrides the time source; used by tests.
func (s *ReservationService) SetClock(now func() time.Time) { s.now = now }

// ListAvailableDates returns the dates within the next dayCount days that
// have at least one open window, as YYYY-MM-DD strings.
func (s *ReservationService) ListAvailableDates(ctx context.Context, businessID int64, dayCount int) ([]string, error) {
	if dayCount <= 0 {
		return nil, fmt.Errorf("%w: day count must be positive", models.ErrValidation)
	}
	if _, err := s.repo.GetBusiness(ctx, businessID); err != nil {
		return nil, err
	}

	key := cache.DatesKey(businessID, dayCount)
	var cached []string
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	today := s.today()
	dates := make([]string, 0, dayCount)
	for i := 0; i < dayCount; i++ {
		day := today.AddDate(0, 0, i)
		sched, err := s.resolver.Resolve(ctx, businessID, day)
		if err != nil {
			return nil, err
		}
		if sched.Open() {
			dates = append(dates, day.Format("2006-01-02"))
		}
	}

	s.cache.Set(ctx, key, dates)
	return dates, nil
}

// ListAvailableSlots returns sorted deduplicated "HH:MM" start times for the
// requested duration on a date. A closed date yields an empty list.
func (s *ReservationService) ListAvailableSlots(ctx context.Context, businessID int64, date string, duration models.Duration) ([]string, error) {
	if err := duration.Validate(); err != nil {
		return nil, err
	}
	day, err := calendar.ParseDate(date, s.resolver.Location())
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetBusiness(ctx, businessID); err != nil {
		return nil, err
	}

	key := cache.SlotsKey(businessID, date, duration.Minutes)
	var cached []string
	if duration.Kind == models.DurationMinutes && s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	sched, err := s.resolver.Resolve(ctx, businessID, day)
	if err != nil {
		return nil, err
	}
	if !sched.Open() {
		return []string{}, nil
	}

	windows := sched.Windows
	perSlot := duration.Std()
	if sched.Fallback {
		// Unconfigured hours: offer the reference grid over the fallback
		// window rather than fitting the duration.
		perSlot = s.granularity
	}
	if duration.IsSymbolic() {
		// A symbolic reservation runs to the end of its window, so every
		// grid point that leaves at least one granularity step is a slot.
		perSlot = s.granularity
		if duration.Kind == models.DurationAllEvening {
			if windows, err = s.eveningWindows(day, windows); err != nil {
				return nil, err
			}
		}
	}

	out := slots.Format(slots.Generate(windows, perSlot, s.granularity))
	if duration.Kind == models.DurationMinutes {
		s.cache.Set(ctx, key, out)
	}
	return out, nil
}

// ListAvailableResources returns the active resources free for the interval
// starting at "HH:MM" on date.
func (s *ReservationService) ListAvailableResources(ctx context.Context, businessID int64, date, clock string, duration models.Duration) ([]models.Resource, error) {
	if err := duration.Validate(); err != nil {
		return nil, err
	}
	day, err := calendar.ParseDate(date, s.resolver.Location())
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetBusiness(ctx, businessID); err != nil {
		return nil, err
	}

	sched, err := s.resolver.Resolve(ctx, businessID, day)
	if err != nil {
		return nil, err
	}
	start, end, err := s.resolveInterval(sched, day, clock, duration)
	if err != nil {
		return nil, err
	}

	return s.calc.AvailableResources(ctx, businessID, day.Format("2006-01-02"), start, end)
}

// CreateRequest is a booking candidate. Duration may be omitted when a
// service id is given; the service's duration applies then.
type CreateRequest struct {
	BusinessID int64
	ResourceID *int64
	ServiceID  *int64
	CustomerID int64
	Date       string // YYYY-MM-DD
	Time       string // HH:MM
	Duration   models.Duration
	PartySize  int
	Notes      string
}

// CreateReservation is the conflict-guarded write path. The candidate is
// fully re-validated against the calendar and capacity; client-supplied
// slots are never trusted as still valid.
func (s *ReservationService) CreateReservation(ctx context.Context, req CreateRequest) (*models.Reservation, error) {
	if req.PartySize <= 0 {
		return nil, fmt.Errorf("%w: party size must be positive", models.ErrValidation)
	}
	day, err := calendar.ParseDate(req.Date, s.resolver.Location())
	if err != nil {
		return nil, err
	}
	today := s.today()
	if day.Before(today) {
		return nil, fmt.Errorf("%w: date %s is in the past", models.ErrValidation, req.Date)
	}
	if day.After(today.AddDate(0, 0, s.maxAdvance)) {
		return nil, fmt.Errorf("%w: date %s is more than %d days ahead", models.ErrValidation, req.Date, s.maxAdvance)
	}
	if _, err := s.repo.GetBusiness(ctx, req.BusinessID); err != nil {
		return nil, err
	}

	duration := req.Duration
	if req.ServiceID != nil {
		svc, err := s.repo.GetService(ctx, *req.ServiceID)
		if err != nil {
			return nil, err
		}
		if svc.BusinessID != req.BusinessID {
			return nil, fmt.Errorf("%w: service %d", models.ErrNotFound, *req.ServiceID)
		}
		if duration.Kind == "" {
			duration = svc.Duration
		}
	}
	if err := duration.Validate(); err != nil {
		return nil, err
	}

	sched, err := s.resolver.Resolve(ctx, req.BusinessID, day)
	if err != nil {
		return nil, err
	}
	start, end, err := s.resolveInterval(sched, day, req.Time, duration)
	if err != nil {
		return nil, err
	}

	active, err := s.repo.ActiveResources(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}

	var chosen *models.Resource
	if req.ResourceID != nil {
		chosen, err = s.repo.GetResource(ctx, *req.ResourceID)
		if err != nil {
			return nil, err
		}
		if chosen.BusinessID != req.BusinessID || !chosen.IsActive {
			return nil, fmt.Errorf("%w: resource %d", models.ErrNotFound, *req.ResourceID)
		}
	}
	if err := availability.ValidateCapacity(chosen, active, req.PartySize); err != nil {
		return nil, err
	}

	r := &models.Reservation{
		Reference:  uuid.NewString(),
		BusinessID: req.BusinessID,
		ResourceID: req.ResourceID,
		ServiceID:  req.ServiceID,
		CustomerID: req.CustomerID,
		Date:       day.Format("2006-01-02"),
		StartTime:  start,
		EndTime:    end,
		Duration:   duration,
		PartySize:  req.PartySize,
		Notes:      req.Notes,
	}

	if req.ResourceID != nil {
		release := s.locks.Lock(*req.ResourceID, r.Date)
		defer release()
	}

	if err := s.repo.CreateReservationGuarded(ctx, r); err != nil {
		if errors.Is(err, models.ErrConflict) {
			metrics.IncBookingConflict()
			s.logger.Info().
				Int64("business_id", req.BusinessID).
				Str("date", r.Date).
				Msg("booking conflict, candidate lost the race")
		}
		return nil, err
	}

	assignment := "unassigned"
	if req.ResourceID != nil {
		assignment = "resource"
	}
	metrics.IncReservationCreated(assignment)
	s.cache.InvalidateBusiness(ctx, req.BusinessID)

	s.logger.Info().
		Int64("reservation_id", r.ID).
		Str("reference", r.Reference).
		Int64("business_id", r.BusinessID).
		Str("date", r.Date).
		Msg("reservation created")
	return r, nil
}

// SetReservationStatus applies a lifecycle transition on behalf of an actor.
func (s *ReservationService) SetReservationStatus(ctx context.Context, id int64, to models.Status, actor models.Actor) (*models.Reservation, error) {
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Kind == models.ActorBusiness && actor.ID != r.BusinessID {
		return nil, fmt.Errorf("%w: reservation belongs to another business", models.ErrUnauthorized)
	}
	if err := s.lifecycle.Authorize(r, to, actor, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateReservationStatus(ctx, r.ID, r.Version, to); err != nil {
		return nil, err
	}

	metrics.IncStatusTransition(string(to))
	s.cache.InvalidateBusiness(ctx, r.BusinessID)
	s.logger.Info().
		Int64("reservation_id", r.ID).
		Str("from", string(r.Status)).
		Str("to", string(to)).
		Str("actor", string(actor.Kind)).
		Msg("reservation status changed")

	return s.repo.GetReservation(ctx, r.ID)
}

// SweepLapsedReservations lapses reservations whose end time has fully
// elapsed and returns how many rows were transitioned. Safe to run
// repeatedly and concurrently.
func (s *ReservationService) SweepLapsedReservations(ctx context.Context, now time.Time) (int64, error) {
	completed, noShow, err := s.repo.SweepLapsed(ctx, now)
	if err != nil {
		return completed + noShow, fmt.Errorf("sweep lapsed: %w", err)
	}
	if completed > 0 {
		metrics.AddSweepTransitioned("completed", completed)
	}
	if noShow > 0 {
		metrics.AddSweepTransitioned("no_show", noShow)
	}
	if completed+noShow > 0 {
		s.logger.Info().
			Int64("completed", completed).
			Int64("no_show", noShow).
			Msg("swept lapsed reservations")
	}
	return completed + noShow, nil
}

// CanMessage reports whether messaging is still open for a reservation.
func (s *ReservationService) CanMessage(ctx context.Context, id int64) (bool, error) {
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return false, err
	}
	return booking.CanMessage(r.Status), nil
}

// ReservationsForExport lists a business's reservations in a date range.
func (s *ReservationService) ReservationsForExport(ctx context.Context, businessID int64, from, to string) ([]models.Reservation, error) {
	if _, err := calendar.ParseDate(from, s.resolver.Location()); err != nil {
		return nil, err
	}
	if _, err := calendar.ParseDate(to, s.resolver.Location()); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetBusiness(ctx, businessID); err != nil {
		return nil, err
	}
	return s.repo.ReservationsByDateRange(ctx, businessID, from, to)
}

// resolveInterval turns (date, "HH:MM", duration) into the concrete
// [start, end) the reservation occupies, rejecting anything outside the
// day's open windows.
func (s *ReservationService) resolveInterval(sched calendar.DaySchedule, day time.Time, clock string, duration models.Duration) (time.Time, time.Time, error) {
	start, err := calendar.ParseClock(day, clock)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !sched.Open() {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: business is closed on %s", models.ErrNoAvailability, day.Format("2006-01-02"))
	}

	if duration.Kind == models.DurationMinutes {
		end := start.Add(duration.Std())
		if !slots.FitsWindows(sched.Windows, start, duration.Std()) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %s+%s is outside open hours", models.ErrNoAvailability, clock, duration)
		}
		return start, end, nil
	}

	window := sched.WindowContaining(start)
	if window == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s is outside open hours", models.ErrNoAvailability, clock)
	}

	switch duration.Kind {
	case models.DurationNoLimit:
		// Occupies the remainder of its window.
		return start, window.End, nil
	case models.DurationAllDay:
		return start, sched.LastClose(), nil
	case models.DurationAllEvening:
		evening, err := calendar.ParseClock(day, s.eveningStart)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if start.Before(evening) {
			start = evening
		}
		if !start.Before(sched.LastClose()) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: no evening hours on %s", models.ErrNoAvailability, day.Format("2006-01-02"))
		}
		return start, sched.LastClose(), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown duration kind %q", models.ErrValidation, duration.Kind)
}

// eveningWindows clips windows to the evening span for all_evening slots.
func (s *ReservationService) eveningWindows(day time.Time, windows []models.Window) ([]models.Window, error) {
	evening, err := calendar.ParseClock(day, s.eveningStart)
	if err != nil {
		return nil, err
	}
	var out []models.Window
	for _, w := range windows {
		if !w.End.After(evening) {
			continue
		}
		if w.Start.Before(evening) {
			w.Start = evening
		}
		out = append(out, w)
	}
	return out, nil
}

func (s *ReservationService) today() time.Time {
	now := s.now().In(s.resolver.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
