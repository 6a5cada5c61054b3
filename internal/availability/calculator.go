// Package availability computes which resources are free for a requested
// interval and validates party sizes against capacity. Read-only; the
// authoritative re-check happens inside the booking conflict guard.
package availability

import (
	"context"
	"fmt"
	"time"

	"mesa/internal/models"
)

// ResourceSource lists a business's active resources.
type ResourceSource interface {
	ActiveResources(ctx context.Context, businessID int64) ([]models.Resource, error)
}

// ReservationSource lists reservations that still occupy their interval.
type ReservationSource interface {
	// ActiveReservationsByDate returns reservations with status in
	// {pending, confirmed} for the business on a YYYY-MM-DD date.
	ActiveReservationsByDate(ctx context.Context, businessID int64, date string) ([]models.Reservation, error)
}

// Calculator determines free resources by overlap against active reservations.
type Calculator struct {
	resources    ResourceSource
	reservations ReservationSource
}

func NewCalculator(resources ResourceSource, reservations ReservationSource) *Calculator {
	return &Calculator{resources: resources, reservations: reservations}
}

// AvailableResources returns the active resources with no active reservation
// overlapping [start, end) on date. An empty result for a business with zero
// active resources means the caller proceeds without resource assignment.
func (c *Calculator) AvailableResources(ctx context.Context, businessID int64, date string, start, end time.Time) ([]models.Resource, error) {
	resources, err := c.resources.ActiveResources(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	if len(resources) == 0 {
		return nil, nil
	}

	reservations, err := c.reservations.ActiveReservationsByDate(ctx, businessID, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	busy := make(map[int64]bool)
	for i := range reservations {
		r := &reservations[i]
		if r.ResourceID == nil || !r.Status.IsActive() {
			continue
		}
		if r.Overlaps(start, end) {
			busy[*r.ResourceID] = true
		}
	}

	free := make([]models.Resource, 0, len(resources))
	for _, res := range resources {
		if !busy[res.ID] {
			free = append(free, res)
		}
	}
	return free, nil
}
