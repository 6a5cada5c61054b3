// Package booking governs the reservation lifecycle and serializes the
// check-and-insert write path per (resource, date).
package booking

import (
	"fmt"
	"time"

	"mesa/internal/models"
)

// Lifecycle validates status transitions against a fixed graph and
// authorizes them per actor. No state is ever skipped silently.
type Lifecycle struct {
	transitions map[models.Status][]models.Status
}

// NewLifecycle creates the machine with the reservation transition graph.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		transitions: map[models.Status][]models.Status{
			models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled, models.StatusCompleted, models.StatusNoShow},
			models.StatusConfirmed: {models.StatusCancelled, models.StatusCompleted, models.StatusNoShow},
			models.StatusCancelled: {},
			models.StatusCompleted: {},
			models.StatusNoShow:    {},
		},
	}
}

// CanTransition checks if the transition is allowed by the graph.
func (l *Lifecycle) CanTransition(from, to models.Status) bool {
	for _, s := range l.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Authorize verifies the transition is both structurally valid and permitted
// for the acting party at the given time.
func (l *Lifecycle) Authorize(r *models.Reservation, to models.Status, actor models.Actor, now time.Time) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", models.ErrValidation, to)
	}
	if !l.CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, r.Status, to)
	}

	switch to {
	case models.StatusConfirmed:
		if actor.Kind != models.ActorBusiness {
			return fmt.Errorf("%w: only the business may confirm", models.ErrUnauthorized)
		}
	case models.StatusCancelled:
		switch actor.Kind {
		case models.ActorBusiness:
			// Business may cancel at any time.
		case models.ActorCustomer:
			if actor.ID != r.CustomerID {
				return fmt.Errorf("%w: not the reservation owner", models.ErrUnauthorized)
			}
			if !now.Before(r.StartTime) {
				return fmt.Errorf("%w: customer cancellation after start time", models.ErrUnauthorized)
			}
		default:
			return fmt.Errorf("%w: %s may not cancel", models.ErrUnauthorized, actor.Kind)
		}
	case models.StatusCompleted:
		if actor.Kind != models.ActorSystem {
			return fmt.Errorf("%w: completion happens via the sweep", models.ErrUnauthorized)
		}
		if now.Before(r.EndTime) {
			return fmt.Errorf("%w: completion before end time", models.ErrInvalidTransition)
		}
	case models.StatusNoShow:
		switch actor.Kind {
		case models.ActorSystem:
		case models.ActorBusiness:
			// Staff may record a no-show once the start time has passed.
			if now.Before(r.StartTime) {
				return fmt.Errorf("%w: cannot mark no-show before start time", models.ErrUnauthorized)
			}
		default:
			return fmt.Errorf("%w: %s may not mark no-show", models.ErrUnauthorized, actor.Kind)
		}
	}
	return nil
}

// LapsedOutcome maps an active status to its terminal state when the sweep
// finds the reservation past its end time: confirmed visits are assumed
// completed, reservations the business never confirmed lapse as no-shows.
func LapsedOutcome(s models.Status) (models.Status, bool) {
	switch s {
	case models.StatusConfirmed:
		return models.StatusCompleted, true
	case models.StatusPending:
		return models.StatusNoShow, true
	}
	return "", false
}

// CanMessage reports whether customer/business messaging is still open for a
// reservation. Exposed here so callers never re-derive the rule.
func CanMessage(s models.Status) bool {
	return s.IsActive()
}
