package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/flavor-entertainers/booking-platform/internal/model"
)

// ServiceRepo manages the service catalog.
type ServiceRepo struct {
	db *sql.DB
}

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

const serviceColumns = "id, name, category, description, rate_cents, rate_type, min_duration_minutes, is_active"

// List returns catalog entries ordered by category and name.  When
// activeOnly is set inactive services are skipped.
func (r *ServiceRepo) List(ctx context.Context, activeOnly bool) ([]model.Service, error) {
	q := "SELECT " + serviceColumns + " FROM services"
	if activeOnly {
		q += " WHERE is_active = 1"
	}
	q += " ORDER BY category, name"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByIDs loads the services with the given ids.  Missing ids are simply
// absent from the result; callers compare lengths.
func (r *ServiceRepo) GetByIDs(ctx context.Context, ids []uint64) ([]model.Service, error) {
	if len(ids) == 0 {
		return []model.Service{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+serviceColumns+" FROM services WHERE id IN ("+placeholders+") ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Service, 0, len(ids))
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID returns one service or ErrNotFound.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (model.Service, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+serviceColumns+" FROM services WHERE id = ?", id)
	s, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// Create inserts a service and returns its id.
func (r *ServiceRepo) Create(ctx context.Context, s model.Service) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO services (name, category, description, rate_cents, rate_type, min_duration_minutes, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.Name, s.Category, s.Description, s.RateCents, s.RateType, s.MinDurationMinutes, s.IsActive)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// Update overwrites every editable column of a service.
func (r *ServiceRepo) Update(ctx context.Context, s model.Service) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE services SET name=?, category=?, description=?, rate_cents=?, rate_type=?,
		 min_duration_minutes=?, is_active=? WHERE id=?`,
		s.Name, s.Category, s.Description, s.RateCents, s.RateType, s.MinDurationMinutes, s.IsActive, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// Deactivate hides a service from the catalog without breaking the
// bookings that reference it.
func (r *ServiceRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE services SET is_active = 0 WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanService(s scanner) (model.Service, error) {
	var out model.Service
	err := s.Scan(&out.ID, &out.Name, &out.Category, &out.Description, &out.RateCents,
		&out.RateType, &out.MinDurationMinutes, &out.IsActive)
	return out, err
}
