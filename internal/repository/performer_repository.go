package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/flavor-entertainers/booking-platform/internal/model"
)

// PerformerRepo provides CRUD operations for performers and the
// performer_services join table.
type PerformerRepo struct {
	db *sql.DB
}

// NewPerformerRepo returns a new PerformerRepo bound to the given database.
func NewPerformerRepo(db *sql.DB) *PerformerRepo { return &PerformerRepo{db: db} }

const performerColumns = "p.id, p.user_id, p.stage_name, p.bio, p.location, p.phone, p.photo_url, p.status, p.created_at, p.updated_at"

// List returns performers matching the filter ordered by stage name.  The
// category filter matches performers offering at least one active service
// of that category.
func (r *PerformerRepo) List(ctx context.Context, f model.PerformerFilter) ([]model.Performer, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, strings.ToUpper(f.Status))
	}
	if f.Location != "" {
		where = append(where, "p.location LIKE ?")
		args = append(args, "%"+f.Location+"%")
	}
	if f.Category != "" {
		where = append(where, `EXISTS (SELECT 1 FROM performer_services ps
			JOIN services s ON s.id = ps.service_id
			WHERE ps.performer_id = p.id AND s.category = ? AND s.is_active = 1)`)
		args = append(args, f.Category)
	}
	q := "SELECT " + performerColumns + " FROM performers p"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY p.stage_name"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := []model.Performer{}
	for rows.Next() {
		p, err := scanPerformer(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for i := range out {
		ids, err := r.serviceIDs(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].ServiceIDs = ids
	}
	return out, nil
}

// GetByID returns a performer with its service ids, or ErrNotFound.
func (r *PerformerRepo) GetByID(ctx context.Context, id uint64) (model.Performer, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+performerColumns+" FROM performers p WHERE p.id = ?", id)
	return r.loadOne(ctx, row)
}

// GetByUserID returns the performer profile linked to a user account.
func (r *PerformerRepo) GetByUserID(ctx context.Context, userID uint64) (model.Performer, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+performerColumns+" FROM performers p WHERE p.user_id = ?", userID)
	return r.loadOne(ctx, row)
}

// GetByIDs loads several performers at once.  Missing ids are absent from
// the result.
func (r *PerformerRepo) GetByIDs(ctx context.Context, ids []uint64) ([]model.Performer, error) {
	out := make([]model.Performer, 0, len(ids))
	for _, id := range ids {
		p, err := r.GetByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Create inserts a performer and its service links in one transaction.
func (r *PerformerRepo) Create(ctx context.Context, p model.Performer) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	id, err := insertPerformerTx(ctx, tx, p)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// insertPerformerTx inserts the profile row and its service links.
func insertPerformerTx(ctx context.Context, tx *sql.Tx, p model.Performer) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO performers (user_id, stage_name, bio, location, phone, photo_url, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullableID(p.UserID), p.StageName, p.Bio, p.Location, p.Phone, p.PhotoURL, p.Status)
	if err != nil {
		if isDuplicate(err) {
			return 0, fmt.Errorf("user already has a performer profile: %w", ErrConflict)
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := replaceServicesTx(ctx, tx, uint64(id), p.ServiceIDs); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update overwrites the profile columns and, when services is non-nil, the
// service links.
func (r *PerformerRepo) Update(ctx context.Context, p model.Performer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM performers WHERE id = ?)", p.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE performers SET stage_name=?, bio=?, location=?, phone=?, photo_url=?, status=? WHERE id=?`,
		p.StageName, p.Bio, p.Location, p.Phone, p.PhotoURL, p.Status, p.ID); err != nil {
		return err
	}
	if p.ServiceIDs != nil {
		if err := replaceServicesTx(ctx, tx, p.ID, p.ServiceIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Delete removes a performer.  Performers referenced by bookings cannot be
// deleted; set them OFFLINE instead.
func (r *PerformerRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM performers WHERE id = ?", id)
	if err != nil {
		if isForeignKey(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PerformerRepo) loadOne(ctx context.Context, row *sql.Row) (model.Performer, error) {
	p, err := scanPerformer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.ServiceIDs, err = r.serviceIDs(ctx, p.ID)
	return p, err
}

func (r *PerformerRepo) serviceIDs(ctx context.Context, performerID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT service_id FROM performer_services WHERE performer_id = ? ORDER BY service_id", performerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func replaceServicesTx(ctx context.Context, tx *sql.Tx, performerID uint64, serviceIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM performer_services WHERE performer_id = ?", performerID); err != nil {
		return err
	}
	if len(serviceIDs) == 0 {
		return nil
	}
	query := "INSERT INTO performer_services (performer_id, service_id) VALUES "
	args := make([]interface{}, 0, len(serviceIDs)*2)
	for i, sid := range serviceIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, performerID, sid)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isForeignKey(err) {
			return fmt.Errorf("unknown service id: %w", ErrNotFound)
		}
		return err
	}
	return nil
}

func scanPerformer(s scanner) (model.Performer, error) {
	var (
		p      model.Performer
		userID sql.NullInt64
	)
	err := s.Scan(&p.ID, &userID, &p.StageName, &p.Bio, &p.Location, &p.Phone, &p.PhotoURL,
		&p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if userID.Valid {
		uid := uint64(userID.Int64)
		p.UserID = &uid
	}
	return p, nil
}

func nullableID(id *uint64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
