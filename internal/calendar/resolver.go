// Package calendar resolves a business's operating calendar into concrete
// open time windows for a date. Closures override weekly hours; a business
// with no weekly hours configured at all gets a documented fallback window
// so a freshly created business stays bookable.
package calendar

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mesa/internal/models"
)

// Fallback window used when a business has zero weekly-hours rows.
const (
	FallbackOpenTime  = "09:00"
	FallbackCloseTime = "22:00"
)

// HoursRepository supplies the calendar inputs. Implemented by the sqlite
// layer; tests substitute in-memory fakes.
type HoursRepository interface {
	// GetWeeklyHours returns the row for (business, dayOfWeek) or nil if absent.
	GetWeeklyHours(ctx context.Context, businessID int64, dayOfWeek int) (*models.WeeklyHours, error)
	// CountWeeklyHours returns how many weekly-hours rows the business has.
	CountWeeklyHours(ctx context.Context, businessID int64) (int, error)
	// HasClosure reports whether the date (YYYY-MM-DD) is fully closed.
	HasClosure(ctx context.Context, businessID int64, date string) (bool, error)
}

// DaySchedule is the resolved calendar for one date.
type DaySchedule struct {
	// Windows are disjoint open intervals in chronological order. Empty
	// means closed.
	Windows []models.Window
	// Fallback marks the degraded mode where no weekly hours are configured
	// and the default window was substituted.
	Fallback bool
}

// Open reports whether the date has at least one open window.
func (d DaySchedule) Open() bool { return len(d.Windows) > 0 }

// LastClose returns the end of the final window, or the zero time when closed.
func (d DaySchedule) LastClose() time.Time {
	if len(d.Windows) == 0 {
		return time.Time{}
	}
	return d.Windows[len(d.Windows)-1].End
}

// WindowContaining returns the window containing t, or nil.
func (d DaySchedule) WindowContaining(t time.Time) *models.Window {
	for i := range d.Windows {
		if d.Windows[i].Contains(t) {
			return &d.Windows[i]
		}
	}
	return nil
}

// Resolver merges weekly hours, closures and the fallback default.
type Resolver struct {
	repo HoursRepository
	loc  *time.Location
}

// NewResolver creates a resolver operating in the deployment timezone.
func NewResolver(repo HoursRepository, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{repo: repo, loc: loc}
}

// Location returns the deployment operating timezone.
func (r *Resolver) Location() *time.Location { return r.loc }

// Resolve returns the open windows for a business on a date.
func (r *Resolver) Resolve(ctx context.Context, businessID int64, date time.Time) (DaySchedule, error) {
	date = date.In(r.loc)

	closed, err := r.repo.HasClosure(ctx, businessID, date.Format("2006-01-02"))
	if err != nil {
		return DaySchedule{}, fmt.Errorf("check closure: %w", err)
	}
	if closed {
		return DaySchedule{}, nil
	}

	configured, err := r.repo.CountWeeklyHours(ctx, businessID)
	if err != nil {
		return DaySchedule{}, fmt.Errorf("count weekly hours: %w", err)
	}
	if configured == 0 {
		w, err := windowFromClocks(date, FallbackOpenTime, FallbackCloseTime)
		if err != nil {
			return DaySchedule{}, err
		}
		return DaySchedule{Windows: []models.Window{w}, Fallback: true}, nil
	}

	hours, err := r.repo.GetWeeklyHours(ctx, businessID, int(date.Weekday()))
	if err != nil {
		return DaySchedule{}, fmt.Errorf("get weekly hours: %w", err)
	}
	if hours == nil || hours.IsClosed {
		return DaySchedule{}, nil
	}

	windows, err := buildWindows(date, hours)
	if err != nil {
		return DaySchedule{}, err
	}
	return DaySchedule{Windows: windows}, nil
}

func buildWindows(date time.Time, hours *models.WeeklyHours) ([]models.Window, error) {
	full, err := windowFromClocks(date, hours.OpenTime, hours.CloseTime)
	if err != nil {
		return nil, err
	}
	if !full.Start.Before(full.End) {
		return nil, nil
	}

	if hours.BreakStart == "" || hours.BreakEnd == "" {
		return []models.Window{full}, nil
	}

	breakStart, err := ParseClock(date, hours.BreakStart)
	if err != nil {
		return nil, err
	}
	breakEnd, err := ParseClock(date, hours.BreakEnd)
	if err != nil {
		return nil, err
	}

	// The break span is subtracted from the window: strictly interior breaks
	// split it in two, edge-touching breaks clip it. Empty or inverted breaks
	// and breaks entirely outside the operating hours are ignored.
	if !breakStart.Before(breakEnd) || !breakStart.Before(full.End) || !breakEnd.After(full.Start) {
		return []models.Window{full}, nil
	}

	var windows []models.Window
	if full.Start.Before(breakStart) {
		windows = append(windows, models.Window{Start: full.Start, End: breakStart})
	}
	if breakEnd.Before(full.End) {
		windows = append(windows, models.Window{Start: breakEnd, End: full.End})
	}
	return windows, nil
}

func windowFromClocks(date time.Time, open, close string) (models.Window, error) {
	start, err := ParseClock(date, open)
	if err != nil {
		return models.Window{}, err
	}
	end, err := ParseClock(date, close)
	if err != nil {
		return models.Window{}, err
	}
	return models.Window{Start: start, End: end}, nil
}

// ParseClock places an "HH:MM" clock value on the given date, keeping the
// date's location.
func ParseClock(date time.Time, clock string) (time.Time, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("%w: invalid time format %q", models.ErrValidation, clock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("%w: invalid hour in %q", models.ErrValidation, clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("%w: invalid minute in %q", models.ErrValidation, clock)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}

// ParseDate validates a YYYY-MM-DD value in the given location.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date format %q; expected YYYY-MM-DD", models.ErrValidation, value)
	}
	return d, nil
}
