package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mesa/internal/models"
)

// ActiveResources returns the business's active resources ordered by id.
func (db *DB) ActiveResources(ctx context.Context, businessID int64) ([]models.Resource, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, business_id, name, capacity, category, is_active, created_at, updated_at
		FROM resources
		WHERE business_id = ? AND is_active = 1
		ORDER BY id`,
		businessID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, *r)
	}
	return resources, rows.Err()
}

// GetResource returns a resource by id.
func (db *DB) GetResource(ctx context.Context, id int64) (*models.Resource, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, business_id, name, capacity, category, is_active, created_at, updated_at
		FROM resources WHERE id = ?`,
		id,
	)
	r, err := scanResource(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: resource %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateResource inserts a resource and sets its id.
func (db *DB) CreateResource(ctx context.Context, r *models.Resource) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO resources (business_id, name, capacity, category, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.BusinessID, r.Name, r.Capacity, nullable(r.Category), r.IsActive, now, now,
	)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

// DeactivateResource takes a resource out of scheduling without deleting it.
func (db *DB) DeactivateResource(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx,
		"UPDATE resources SET is_active = 0, updated_at = ? WHERE id = ?",
		time.Now(), id,
	)
	return err
}

// GetService returns a service by id.
func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	var s models.Service
	var kind string
	err := db.QueryRowContext(ctx, `
		SELECT id, business_id, name, duration_kind, duration_minutes, is_active, created_at, updated_at
		FROM services WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.BusinessID, &s.Name, &kind, &s.Duration.Minutes, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: service %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	s.Duration.Kind, err = models.ParseDurationKind(kind)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateService inserts a service and sets its id.
func (db *DB) CreateService(ctx context.Context, s *models.Service) error {
	if err := s.Duration.Validate(); err != nil {
		return err
	}
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO services (business_id, name, duration_kind, duration_minutes, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.BusinessID, s.Name, string(s.Duration.Kind), s.Duration.Minutes, s.IsActive, now, now,
	)
	if err != nil {
		return err
	}
	s.ID, err = res.LastInsertId()
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*models.Resource, error) {
	var r models.Resource
	var category sql.NullString
	err := row.Scan(&r.ID, &r.BusinessID, &r.Name, &r.Capacity, &category, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if category.Valid {
		r.Category = category.String
	}
	return &r, nil
}
