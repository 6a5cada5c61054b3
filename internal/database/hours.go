package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mesa/internal/models"
)

// GetWeeklyHours returns the weekly-hours row for (business, dayOfWeek),
// or nil when none is configured for that day.
func (db *DB) GetWeeklyHours(ctx context.Context, businessID int64, dayOfWeek int) (*models.WeeklyHours, error) {
	var h models.WeeklyHours
	var breakStart, breakEnd sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, business_id, day_of_week, is_closed, open_time, close_time,
		       break_start, break_end, created_at, updated_at
		FROM weekly_hours
		WHERE business_id = ? AND day_of_week = ?
		LIMIT 1`,
		businessID, dayOfWeek,
	).Scan(
		&h.ID, &h.BusinessID, &h.DayOfWeek, &h.IsClosed, &h.OpenTime, &h.CloseTime,
		&breakStart, &breakEnd, &h.CreatedAt, &h.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if breakStart.Valid {
		h.BreakStart = breakStart.String
	}
	if breakEnd.Valid {
		h.BreakEnd = breakEnd.String
	}
	return &h, nil
}

// CountWeeklyHours returns how many weekly-hours rows a business has. Zero
// distinguishes "never configured" from "closed that day".
func (db *DB) CountWeeklyHours(ctx context.Context, businessID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM weekly_hours WHERE business_id = ?",
		businessID,
	).Scan(&count)
	return count, err
}

// UpsertWeeklyHours creates or replaces the row for (business, day_of_week).
func (db *DB) UpsertWeeklyHours(ctx context.Context, h *models.WeeklyHours) error {
	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO weekly_hours (
			business_id, day_of_week, is_closed, open_time, close_time,
			break_start, break_end, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(business_id, day_of_week) DO UPDATE SET
			is_closed = excluded.is_closed,
			open_time = excluded.open_time,
			close_time = excluded.close_time,
			break_start = excluded.break_start,
			break_end = excluded.break_end,
			updated_at = excluded.updated_at`,
		h.BusinessID, h.DayOfWeek, h.IsClosed, h.OpenTime, h.CloseTime,
		nullable(h.BreakStart), nullable(h.BreakEnd), now, now,
	)
	return err
}

// HasClosure reports whether the business is fully closed on date (YYYY-MM-DD).
func (db *DB) HasClosure(ctx context.Context, businessID int64, date string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM closures WHERE business_id = ? AND date = ?",
		businessID, date,
	).Scan(&count)
	return count > 0, err
}

// AddClosure records a full-day closure; repeated calls update the reason.
func (db *DB) AddClosure(ctx context.Context, c *models.Closure) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO closures (business_id, date, reason, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(business_id, date) DO UPDATE SET reason = excluded.reason`,
		c.BusinessID, c.Date, nullable(c.Reason), time.Now(),
	)
	return err
}

// RemoveClosure reopens a date.
func (db *DB) RemoveClosure(ctx context.Context, businessID int64, date string) error {
	_, err := db.ExecContext(ctx,
		"DELETE FROM closures WHERE business_id = ? AND date = ?",
		businessID, date,
	)
	return err
}

// ListClosures returns closures within [from, to] ordered by date.
func (db *DB) ListClosures(ctx context.Context, businessID int64, from, to string) ([]models.Closure, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, business_id, date, reason, created_at
		FROM closures
		WHERE business_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		businessID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var closures []models.Closure
	for rows.Next() {
		var c models.Closure
		var reason sql.NullString
		if err := rows.Scan(&c.ID, &c.BusinessID, &c.Date, &reason, &c.CreatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			c.Reason = reason.String
		}
		closures = append(closures, c)
	}
	return closures, rows.Err()
}

// GetBusiness returns a business by id.
func (db *DB) GetBusiness(ctx context.Context, id int64) (*models.Business, error) {
	var b models.Business
	err := db.QueryRowContext(ctx, `
		SELECT id, name, max_capacity, is_active, created_at, updated_at
		FROM businesses WHERE id = ?`,
		id,
	).Scan(&b.ID, &b.Name, &b.MaxCapacity, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: business %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBusiness inserts a business and sets its id.
func (db *DB) CreateBusiness(ctx context.Context, b *models.Business) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO businesses (name, max_capacity, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		b.Name, b.MaxCapacity, b.IsActive, now, now,
	)
	if err != nil {
		return err
	}
	b.ID, err = res.LastInsertId()
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
