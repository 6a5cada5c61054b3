package database

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesa/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "mesa_test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedBusiness(t *testing.T, db *DB) *models.Business {
	t.Helper()
	b := &models.Business{Name: "Trattoria " + uuid.NewString()[:8], MaxCapacity: 20, IsActive: true}
	require.NoError(t, db.CreateBusiness(context.Background(), b))
	return b
}

func seedResource(t *testing.T, db *DB, businessID int64, capacity int) *models.Resource {
	t.Helper()
	r := &models.Resource{BusinessID: businessID, Name: "T" + uuid.NewString()[:4], Capacity: capacity, IsActive: true}
	require.NoError(t, db.CreateResource(context.Background(), r))
	return r
}

func testReservation(businessID int64, resourceID *int64, date string, start, end time.Time) *models.Reservation {
	return &models.Reservation{
		Reference:  uuid.NewString(),
		BusinessID: businessID,
		ResourceID: resourceID,
		CustomerID: 42,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		Duration:   models.MinutesDuration(int(end.Sub(start) / time.Minute)),
		PartySize:  2,
	}
}

func TestWeeklyHoursRoundtrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := seedBusiness(t, db)

	count, err := db.CountWeeklyHours(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	hours := &models.WeeklyHours{
		BusinessID: b.ID, DayOfWeek: 2,
		OpenTime: "09:00", CloseTime: "18:00",
		BreakStart: "13:00", BreakEnd: "14:00",
	}
	require.NoError(t, db.UpsertWeeklyHours(ctx, hours))

	got, err := db.GetWeeklyHours(ctx, b.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "09:00", got.OpenTime)
	assert.Equal(t, "13:00", got.BreakStart)

	// Upsert replaces rather than duplicating (one row per day-of-week).
	hours.CloseTime = "20:00"
	require.NoError(t, db.UpsertWeeklyHours(ctx, hours))
	count, err = db.CountWeeklyHours(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err = db.GetWeeklyHours(ctx, b.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "20:00", got.CloseTime)

	missing, err := db.GetWeeklyHours(ctx, b.ID, 5)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClosures(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := seedBusiness(t, db)

	closed, err := db.HasClosure(ctx, b.ID, "2026-05-01")
	require.NoError(t, err)
	assert.False(t, closed)

	require.NoError(t, db.AddClosure(ctx, &models.Closure{BusinessID: b.ID, Date: "2026-05-01", Reason: "holiday"}))
	closed, err = db.HasClosure(ctx, b.ID, "2026-05-01")
	require.NoError(t, err)
	assert.True(t, closed)

	list, err := db.ListClosures(ctx, b.ID, "2026-01-01", "2026-12-31")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "holiday", list[0].Reason)

	require.NoError(t, db.RemoveClosure(ctx, b.ID, "2026-05-01"))
	closed, err = db.HasClosure(ctx, b.ID, "2026-05-01")
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestCreateReservationGuarded_Conflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := seedBusiness(t, db)
	table := seedResource(t, db, b.ID, 4)

	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	first := testReservation(b.ID, &table.ID, "2026-03-10", start, start.Add(2*time.Hour))
	require.NoError(t, db.CreateReservationGuarded(ctx, first))
	assert.NotZero(t, first.ID)
	assert.Equal(t, models.StatusPending, first.Status)

	// Overlapping interval on the same resource is rejected.
	overlap := testReservation(b.ID, &table.ID, "2026-03-10", start.Add(time.Hour), start.Add(3*time.Hour))
	err := db.CreateReservationGuarded(ctx, overlap)
	assert.ErrorIs(t, err, models.ErrConflict)

	// Adjacent interval is fine (half-open).
	adjacent := testReservation(b.ID, &table.ID, "2026-03-10", start.Add(2*time.Hour), start.Add(3*time.Hour))
	assert.NoError(t, db.CreateReservationGuarded(ctx, adjacent))

	// Cancelling releases the interval.
	require.NoError(t, db.UpdateReservationStatus(ctx, first.ID, first.Version, models.StatusCancelled))
	again := testReservation(b.ID, &table.ID, "2026-03-10", start, start.Add(time.Hour))
	assert.NoError(t, db.CreateReservationGuarded(ctx, again))
}

func TestCreateReservationGuarded_NoResource(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := seedBusiness(t, db)

	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	first := testReservation(b.ID, nil, "2026-03-10", start, start.Add(time.Hour))
	second := testReservation(b.ID, nil, "2026-03-10", start, start.Add(time.Hour))

	// Unassigned reservations never conflict with each other.
	assert.NoError(t, db.CreateReservationGuarded(ctx, first))
	assert.NoError(t, db.CreateReservationGuarded(ctx, second))
}

func TestCreateReservationGuarded_ConcurrentRace(t *testing.T) {
	db := newTestDB(t)
	b := seedBusiness(t, db)
	table := seedResource(t, db, b.ID, 4)

	start := time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := testReservation(b.ID, &table.ID, "2026-03-10", start, start.Add(2*time.Hour))
			errs[i] = db.CreateReservationGuarded(context.Background(), r)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, models.ErrConflict) {
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent writer must win")

	rows, err := db.ActiveReservationsByDate(context.Background(), b.ID, "2026-03-10")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestUpdateReservationStatus_VersionGuard(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := seedBusiness(t, db)
	table := seedResource(t, db, b.ID, 4)

	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r := testReservation(b.ID, &table.ID, "2026-03-10", start, start.Add(time.Hour))
	require.NoError(t, db.CreateReservationGuarded(ctx, r))

	require.NoError(t, db.UpdateReservationStatus(ctx, r.ID, 1, models.StatusConfirmed))

	// Stale version loses.
	err := db.UpdateReservationStatus(ctx, r.ID, 1, models.StatusCancelled)
	assert.ErrorIs(t, err, models.ErrConflict)

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestSweepLapsed_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := seedBusiness(t, db)
	table := seedResource(t, db, b.ID, 4)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	confirmed := testReservation(b.ID, &table.ID, "2026-03-10", base, base.Add(time.Hour))
	require.NoError(t, db.CreateReservationGuarded(ctx, confirmed))
	require.NoError(t, db.UpdateReservationStatus(ctx, confirmed.ID, 1, models.StatusConfirmed))

	pending := testReservation(b.ID, &table.ID, "2026-03-10", base.Add(2*time.Hour), base.Add(3*time.Hour))
	require.NoError(t, db.CreateReservationGuarded(ctx, pending))

	upcoming := testReservation(b.ID, &table.ID, "2026-03-10", base.Add(8*time.Hour), base.Add(9*time.Hour))
	require.NoError(t, db.CreateReservationGuarded(ctx, upcoming))

	now := base.Add(4 * time.Hour)
	completed, noShow, err := db.SweepLapsed(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed)
	assert.Equal(t, int64(1), noShow)

	// Second run finds nothing: same final state as running once.
	completed, noShow, err = db.SweepLapsed(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, completed)
	assert.Zero(t, noShow)

	gotConfirmed, err := db.GetReservation(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, gotConfirmed.Status)

	gotPending, err := db.GetReservation(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoShow, gotPending.Status)

	gotUpcoming, err := db.GetReservation(ctx, upcoming.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, gotUpcoming.Status)
}

func TestResourcesAndServices(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	b := seedBusiness(t, db)

	r1 := seedResource(t, db, b.ID, 2)
	r2 := seedResource(t, db, b.ID, 6)

	active, err := db.ActiveResources(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.NoError(t, db.DeactivateResource(ctx, r1.ID))
	active, err = db.ActiveResources(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, r2.ID, active[0].ID)

	svc := &models.Service{BusinessID: b.ID, Name: "Dinner", Duration: models.AllEvening(), IsActive: true}
	require.NoError(t, db.CreateService(ctx, svc))
	got, err := db.GetService(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DurationAllEvening, got.Duration.Kind)

	_, err = db.GetService(ctx, 99999)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = db.GetResource(ctx, 99999)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = db.GetReservation(ctx, 99999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
