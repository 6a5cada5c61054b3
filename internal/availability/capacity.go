package availability

import (
	"fmt"

	"mesa/internal/models"
)

// ValidateCapacity constrains a party size to the chosen resource's capacity,
// or to the maximum capacity across the business's active resources when no
// resource is chosen. A business with no resources accepts any positive size.
func ValidateCapacity(chosen *models.Resource, active []models.Resource, partySize int) error {
	if partySize <= 0 {
		return fmt.Errorf("%w: party size must be positive", models.ErrValidation)
	}

	if chosen != nil {
		if partySize > chosen.Capacity {
			return fmt.Errorf("%w: party of %d exceeds capacity %d of %s",
				models.ErrCapacityExceeded, partySize, chosen.Capacity, chosen.Name)
		}
		return nil
	}

	if len(active) == 0 {
		return nil
	}

	// Some resource must eventually be assignable.
	if partySize > MaxCapacity(active) {
		return fmt.Errorf("%w: party of %d exceeds largest table capacity %d",
			models.ErrCapacityExceeded, partySize, MaxCapacity(active))
	}
	return nil
}

// MaxCapacity returns the largest capacity among the given resources.
func MaxCapacity(resources []models.Resource) int {
	max := 0
	for _, r := range resources {
		if r.Capacity > max {
			max = r.Capacity
		}
	}
	return max
}
