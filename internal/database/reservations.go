package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mesa/internal/models"
)

// CreateReservationGuarded atomically verifies no active reservation claims
// an overlapping interval on the same resource, then inserts as pending.
// The transaction takes sqlite's write lock immediately (see the DSN), so
// two concurrent callers cannot both observe "free" and both insert: the
// loser of the race gets ErrConflict and no row is written.
func (db *DB) CreateReservationGuarded(ctx context.Context, r *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin guard transaction: %w", err)
	}
	defer tx.Rollback()

	if r.ResourceID != nil {
		var count int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM reservations
			WHERE resource_id = ? AND date = ?
			AND status IN ('pending', 'confirmed')
			AND start_time < ? AND end_time > ?`,
			*r.ResourceID, r.Date, r.EndTime, r.StartTime,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("check conflicts: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: resource %d already booked on %s", models.ErrConflict, *r.ResourceID, r.Date)
		}
	}

	now := time.Now()
	r.Status = models.StatusPending
	r.Version = 1
	res, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (
			reference, business_id, resource_id, service_id, customer_id,
			date, start_time, end_time, duration_kind, duration_minutes,
			party_size, status, notes, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Reference, r.BusinessID, r.ResourceID, r.ServiceID, r.CustomerID,
		r.Date, r.StartTime, r.EndTime, string(r.Duration.Kind), r.Duration.Minutes,
		r.PartySize, string(r.Status), nullable(r.Notes), r.Version, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reservation: %w", err)
	}
	return nil
}

// GetReservation returns a reservation by id.
func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, selectReservation+" WHERE id = ?", id)
	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: reservation %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ActiveReservationsByDate returns pending/confirmed reservations for the
// business on a YYYY-MM-DD date, ordered by start time.
func (db *DB) ActiveReservationsByDate(ctx context.Context, businessID int64, date string) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, selectReservation+`
		WHERE business_id = ? AND date = ?
		AND status IN ('pending', 'confirmed')
		ORDER BY start_time`,
		businessID, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ReservationsByDateRange returns all reservations for a business with date
// in [from, to] regardless of status, ordered by date and start time.
func (db *DB) ReservationsByDateRange(ctx context.Context, businessID int64, from, to string) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, selectReservation+`
		WHERE business_id = ? AND date >= ? AND date <= ?
		ORDER BY date, start_time`,
		businessID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// UpdateReservationStatus transitions status only if the stored version
// still matches, guarding against concurrent modification.
func (db *DB) UpdateReservationStatus(ctx context.Context, id, version int64, status models.Status) error {
	res, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(status), time.Now(), id, version,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: reservation %d modified concurrently", models.ErrConflict, id)
	}
	return nil
}

// SweepLapsed transitions reservations whose end time has fully elapsed:
// confirmed become completed, pending become no_show. Both updates are
// conditional on the current status, so overlapping or repeated runs are
// harmless and converge to the same state.
func (db *DB) SweepLapsed(ctx context.Context, now time.Time) (completed, noShow int64, err error) {
	touched := time.Now()

	res, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'completed', version = version + 1, updated_at = ?
		WHERE status = 'confirmed' AND end_time <= ?`,
		touched, now,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("sweep confirmed: %w", err)
	}
	if completed, err = res.RowsAffected(); err != nil {
		return 0, 0, err
	}

	res, err = db.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'no_show', version = version + 1, updated_at = ?
		WHERE status = 'pending' AND end_time <= ?`,
		touched, now,
	)
	if err != nil {
		return completed, 0, fmt.Errorf("sweep pending: %w", err)
	}
	if noShow, err = res.RowsAffected(); err != nil {
		return completed, 0, err
	}

	return completed, noShow, nil
}

const selectReservation = `
	SELECT id, reference, business_id, resource_id, service_id, customer_id,
	       date, start_time, end_time, duration_kind, duration_minutes,
	       party_size, status, notes, version, created_at, updated_at
	FROM reservations`

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var resourceID, serviceID sql.NullInt64
	var notes sql.NullString
	var kind, status string
	err := row.Scan(
		&r.ID, &r.Reference, &r.BusinessID, &resourceID, &serviceID, &r.CustomerID,
		&r.Date, &r.StartTime, &r.EndTime, &kind, &r.Duration.Minutes,
		&r.PartySize, &status, &notes, &r.Version, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if resourceID.Valid {
		r.ResourceID = &resourceID.Int64
	}
	if serviceID.Valid {
		r.ServiceID = &serviceID.Int64
	}
	if notes.Valid {
		r.Notes = notes.String
	}
	r.Status = models.Status(status)
	if r.Duration.Kind, err = models.ParseDurationKind(kind); err != nil {
		return nil, err
	}
	return &r, nil
}

func collectReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var reservations []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}
