package models

import (
	"fmt"
	"time"
)

// DurationKind discriminates the duration union. Exactly one representation
// is populated: minutes carry a positive count, symbolic kinds carry none.
type DurationKind string

const (
	DurationMinutes    DurationKind = "minutes"
	DurationNoLimit    DurationKind = "no_limit"
	DurationAllDay     DurationKind = "all_day"
	DurationAllEvening DurationKind = "all_evening"
)

// Duration is either a minute count or a symbolic category. The zero value
// is invalid; construct through Minutes or the symbolic constructors.
type Duration struct {
	Kind    DurationKind `json:"kind"`
	Minutes int          `json:"minutes,omitempty"`
}

// MinutesDuration returns a numeric duration of n minutes.
func MinutesDuration(n int) Duration {
	return Duration{Kind: DurationMinutes, Minutes: n}
}

func NoLimit() Duration    { return Duration{Kind: DurationNoLimit} }
func AllDay() Duration     { return Duration{Kind: DurationAllDay} }
func AllEvening() Duration { return Duration{Kind: DurationAllEvening} }

// IsSymbolic reports whether the duration has no fixed minute count.
func (d Duration) IsSymbolic() bool {
	return d.Kind == DurationNoLimit || d.Kind == DurationAllDay || d.Kind == DurationAllEvening
}

// Validate checks the exactly-one-representation invariant.
func (d Duration) Validate() error {
	switch d.Kind {
	case DurationMinutes:
		if d.Minutes <= 0 {
			return fmt.Errorf("%w: duration minutes must be positive", ErrValidation)
		}
	case DurationNoLimit, DurationAllDay, DurationAllEvening:
		if d.Minutes != 0 {
			return fmt.Errorf("%w: symbolic duration cannot carry minutes", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown duration kind %q", ErrValidation, d.Kind)
	}
	return nil
}

// Std returns the duration as time.Duration. Only valid for minute durations.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Minutes) * time.Minute
}

// ParseDurationKind maps a stored kind string back to the union tag.
func ParseDurationKind(s string) (DurationKind, error) {
	switch DurationKind(s) {
	case DurationMinutes, DurationNoLimit, DurationAllDay, DurationAllEvening:
		return DurationKind(s), nil
	}
	return "", fmt.Errorf("%w: unknown duration kind %q", ErrValidation, s)
}

// String formats the duration for logs and exports.
func (d Duration) String() string {
	if d.Kind == DurationMinutes {
		return fmt.Sprintf("%dm", d.Minutes)
	}
	return string(d.Kind)
}
