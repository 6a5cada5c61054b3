package calendar

import (
	"context"
	"testing"
	"time"

	"mesa/internal/models"
)

// fakeHoursRepo implements HoursRepository in memory.
type fakeHoursRepo struct {
	hours    map[int]*models.WeeklyHours // keyed by day of week
	closures map[string]bool
}

func (f *fakeHoursRepo) GetWeeklyHours(ctx context.Context, businessID int64, dayOfWeek int) (*models.WeeklyHours, error) {
	return f.hours[dayOfWeek], nil
}

func (f *fakeHoursRepo) CountWeeklyHours(ctx context.Context, businessID int64) (int, error) {
	return len(f.hours), nil
}

func (f *fakeHoursRepo) HasClosure(ctx context.Context, businessID int64, date string) (bool, error) {
	return f.closures[date], nil
}

func clock(t *testing.T, date time.Time, hhmm string) time.Time {
	t.Helper()
	v, err := ParseClock(date, hhmm)
	if err != nil {
		t.Fatalf("parse clock %q: %v", hhmm, err)
	}
	return v
}

func TestResolve(t *testing.T) {
	// 2026-03-10 is a Tuesday (Weekday 2).
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		repo         *fakeHoursRepo
		wantWindows  []string // "HH:MM-HH:MM"
		wantFallback bool
	}{
		{
			name: "plain open day",
			repo: &fakeHoursRepo{
				hours: map[int]*models.WeeklyHours{
					2: {DayOfWeek: 2, OpenTime: "09:00", CloseTime: "18:00"},
				},
				closures: map[string]bool{},
			},
			wantWindows: []string{"09:00-18:00"},
		},
		{
			name: "break splits the window",
			repo: &fakeHoursRepo{
				hours: map[int]*models.WeeklyHours{
					2: {DayOfWeek: 2, OpenTime: "09:00", CloseTime: "18:00", BreakStart: "13:00", BreakEnd: "14:00"},
				},
				closures: map[string]bool{},
			},
			wantWindows: []string{"09:00-13:00", "14:00-18:00"},
		},
		{
			name: "break ending at close clips the tail",
			repo: &fakeHoursRepo{
				hours: map[int]*models.WeeklyHours{
					2: {DayOfWeek: 2, OpenTime: "09:00", CloseTime: "18:00", BreakStart: "16:00", BreakEnd: "18:00"},
				},
				closures: map[string]bool{},
			},
			wantWindows: []string{"09:00-16:00"},
		},
		{
			name: "break starting at open clips the head",
			repo: &fakeHoursRepo{
				hours: map[int]*models.WeeklyHours{
					2: {DayOfWeek: 2, OpenTime: "09:00", CloseTime: "18:00", BreakStart: "09:00", BreakEnd: "10:00"},
				},
				closures: map[string]bool{},
			},
			wantWindows: []string{"10:00-18:00"},
		},
		{
			name: "break outside hours is ignored",
			repo: &fakeHoursRepo{
				hours: map[int]*models.WeeklyHours{
					2: {DayOfWeek: 2, OpenTime: "09:00", CloseTime: "12:00", BreakStart: "13:00", BreakEnd: "14:00"},
				},
				closures: map[string]bool{},
			},
			wantWindows: []string{"09:00-12:00"},
		},
		{
			name: "closed day of week",
			repo: &fakeHoursRepo{
				hours: map[int]*models.WeeklyHours{
					2: {DayOfWeek: 2, IsClosed: true, OpenTime: "09:00", CloseTime: "18:00"},
				},
				closures: map[string]bool{},
			},
			wantWindows: nil,
		},
		{
			name: "no row for this day of week",
			repo: &fakeHoursRepo{
				hours: map[int]*models.WeeklyHours{
					3: {DayOfWeek: 3, OpenTime: "09:00", CloseTime: "18:00"},
				},
				closures: map[string]bool{},
			},
			wantWindows: nil,
		},
		{
			name: "closure overrides weekly hours",
			repo: &fakeHoursRepo{
				hours: map[int]*models.WeeklyHours{
					2: {DayOfWeek: 2, OpenTime: "09:00", CloseTime: "18:00"},
				},
				closures: map[string]bool{"2026-03-10": true},
			},
			wantWindows: nil,
		},
		{
			name:         "no weekly hours at all falls back",
			repo:         &fakeHoursRepo{hours: map[int]*models.WeeklyHours{}, closures: map[string]bool{}},
			wantWindows:  []string{"09:00-22:00"},
			wantFallback: true,
		},
		{
			name: "closure beats fallback too",
			repo: &fakeHoursRepo{
				hours:    map[int]*models.WeeklyHours{},
				closures: map[string]bool{"2026-03-10": true},
			},
			wantWindows: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewResolver(tt.repo, time.UTC)
			sched, err := resolver.Resolve(context.Background(), 1, date)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if sched.Fallback != tt.wantFallback {
				t.Errorf("fallback = %v, want %v", sched.Fallback, tt.wantFallback)
			}
			if len(sched.Windows) != len(tt.wantWindows) {
				t.Fatalf("got %d windows, want %d", len(sched.Windows), len(tt.wantWindows))
			}
			for i, want := range tt.wantWindows {
				got := sched.Windows[i].Start.Format("15:04") + "-" + sched.Windows[i].End.Format("15:04")
				if got != want {
					t.Errorf("window %d = %s, want %s", i, got, want)
				}
			}
		})
	}
}

func TestDaySchedule_WindowContaining(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	sched := DaySchedule{Windows: []models.Window{
		{Start: clock(t, date, "09:00"), End: clock(t, date, "13:00")},
		{Start: clock(t, date, "14:00"), End: clock(t, date, "18:00")},
	}}

	if w := sched.WindowContaining(clock(t, date, "10:00")); w == nil || !w.End.Equal(clock(t, date, "13:00")) {
		t.Errorf("expected morning window for 10:00, got %v", w)
	}
	if w := sched.WindowContaining(clock(t, date, "13:30")); w != nil {
		t.Errorf("expected no window during break, got %v", w)
	}
	if !sched.LastClose().Equal(clock(t, date, "18:00")) {
		t.Errorf("last close = %v", sched.LastClose())
	}
}

func TestParseClock_Invalid(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, bad := range []string{"", "9", "25:00", "09:60", "ab:cd", "09:00:00"} {
		if _, err := ParseClock(date, bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
