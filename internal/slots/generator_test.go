package slots

import (
	"testing"
	"time"

	"mesa/internal/models"
)

func window(t *testing.T, date time.Time, start, end string) models.Window {
	t.Helper()
	parse := func(hhmm string) time.Time {
		v, err := time.Parse("15:04", hhmm)
		if err != nil {
			t.Fatalf("parse %q: %v", hhmm, err)
		}
		return time.Date(date.Year(), date.Month(), date.Day(), v.Hour(), v.Minute(), 0, 0, date.Location())
	}
	return models.Window{Start: parse(start), End: parse(end)}
}

func TestGenerate(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		windows     []models.Window
		duration    time.Duration
		granularity time.Duration
		want        []string
	}{
		{
			name:        "full day 60 minute duration",
			windows:     []models.Window{window(t, date, "09:00", "18:00")},
			duration:    60 * time.Minute,
			granularity: 30 * time.Minute,
			// 17:00 fits (ends exactly at close), 17:30 does not.
			want: []string{
				"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
				"12:00", "12:30", "13:00", "13:30", "14:00", "14:30",
				"15:00", "15:30", "16:00", "16:30", "17:00",
			},
		},
		{
			name: "split windows stay chronological",
			windows: []models.Window{
				window(t, date, "14:00", "16:00"),
				window(t, date, "09:00", "11:00"),
			},
			duration:    60 * time.Minute,
			granularity: 60 * time.Minute,
			want:        []string{"09:00", "10:00", "14:00", "15:00"},
		},
		{
			name:        "no windows means no slots",
			windows:     nil,
			duration:    60 * time.Minute,
			granularity: 30 * time.Minute,
			want:        nil,
		},
		{
			name:        "duration longer than any window",
			windows:     []models.Window{window(t, date, "09:00", "10:00")},
			duration:    90 * time.Minute,
			granularity: 30 * time.Minute,
			want:        nil,
		},
		{
			name:        "zero granularity falls back to default",
			windows:     []models.Window{window(t, date, "09:00", "10:30")},
			duration:    30 * time.Minute,
			granularity: 0,
			want:        []string{"09:00", "09:30", "10:00"},
		},
		{
			name:        "duration equal to window produces one slot",
			windows:     []models.Window{window(t, date, "09:00", "10:00")},
			duration:    60 * time.Minute,
			granularity: 30 * time.Minute,
			want:        []string{"09:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(Generate(tt.windows, tt.duration, tt.granularity))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d slots %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("slot %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	windows := []models.Window{
		window(t, date, "09:00", "13:00"),
		window(t, date, "14:00", "18:00"),
	}

	first := Generate(windows, 45*time.Minute, 30*time.Minute)
	second := Generate(windows, 45*time.Minute, 30*time.Minute)

	if len(first) != len(second) {
		t.Fatalf("non-deterministic length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Errorf("slot %d differs: %v vs %v", i, first[i], second[i])
		}
		if i > 0 && !first[i-1].Before(first[i]) {
			t.Errorf("slots not sorted at %d: %v >= %v", i, first[i-1], first[i])
		}
	}
}

func TestFitsWindows(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	windows := []models.Window{
		window(t, date, "09:00", "13:00"),
		window(t, date, "14:00", "18:00"),
	}

	at := func(hhmm string) time.Time {
		w := window(t, date, hhmm, hhmm)
		return w.Start
	}

	if !FitsWindows(windows, at("09:00"), 4*time.Hour) {
		t.Error("expected 09:00+4h to fit the morning window exactly")
	}
	if FitsWindows(windows, at("12:30"), time.Hour) {
		t.Error("expected 12:30+1h to spill past the break")
	}
	if FitsWindows(windows, at("08:00"), 30*time.Minute) {
		t.Error("expected slot before opening to be rejected")
	}
	if !FitsWindows(windows, at("17:00"), time.Hour) {
		t.Error("expected 17:00+1h to fit the evening window")
	}
}
