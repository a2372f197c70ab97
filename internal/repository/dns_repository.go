package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/flavor-entertainers/booking-platform/internal/model"
)

// DNSRepo stores the Do-Not-Serve list.
type DNSRepo struct {
	db *sql.DB
}

func NewDNSRepo(db *sql.DB) *DNSRepo { return &DNSRepo{db: db} }

const dnsColumns = "id, client_name, client_email, client_phone, reason, submitted_by, status, reviewed_by, created_at, updated_at"

// Create inserts an entry.  Email is lower-cased and phone reduced to its
// digits so lookups in IsBlocked match regardless of formatting.
func (r *DNSRepo) Create(ctx context.Context, e model.DoNotServeEntry) (uint64, error) {
	status := e.Status
	if status == "" {
		status = model.DNSPending
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO do_not_serve (client_name, client_email, client_phone, reason, submitted_by, status, reviewed_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ClientName, NormalizeEmail(e.ClientEmail), NormalizePhone(e.ClientPhone), e.Reason,
		e.SubmittedBy, status, nullableID(e.ReviewedBy))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// List returns entries, optionally restricted to one review status.
func (r *DNSRepo) List(ctx context.Context, status string) ([]model.DoNotServeEntry, error) {
	q := "SELECT " + dnsColumns + " FROM do_not_serve"
	var args []interface{}
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, strings.ToUpper(status))
	}
	q += " ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.DoNotServeEntry{}
	for rows.Next() {
		e, err := scanDNS(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetByID returns one entry or ErrNotFound.
func (r *DNSRepo) GetByID(ctx context.Context, id uint64) (model.DoNotServeEntry, error) {
	e, err := scanDNS(r.db.QueryRowContext(ctx, "SELECT "+dnsColumns+" FROM do_not_serve WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	return e, err
}

// SetStatus records an admin review decision.
func (r *DNSRepo) SetStatus(ctx context.Context, id uint64, status string, reviewer uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE do_not_serve SET status = ?, reviewed_by = ? WHERE id = ?", status, reviewer, id)
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

// Delete removes an entry.
func (r *DNSRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM do_not_serve WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsBlocked reports whether an APPROVED entry matches the email or phone.
// Empty identifiers never match.
func (r *DNSRepo) IsBlocked(ctx context.Context, email, phone string) (bool, error) {
	email = NormalizeEmail(email)
	phone = NormalizePhone(phone)
	if email == "" && phone == "" {
		return false, nil
	}
	var (
		conds []string
		args  = []interface{}{model.DNSApproved}
	)
	if email != "" {
		conds = append(conds, "client_email = ?")
		args = append(args, email)
	}
	if phone != "" {
		conds = append(conds, "client_phone = ?")
		args = append(args, phone)
	}
	var blocked bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM do_not_serve WHERE status = ? AND ("+strings.Join(conds, " OR ")+"))",
		args...).Scan(&blocked)
	return blocked, err
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func scanDNS(s scanner) (model.DoNotServeEntry, error) {
	var (
		e        model.DoNotServeEntry
		reviewer sql.NullInt64
	)
	err := s.Scan(&e.ID, &e.ClientName, &e.ClientEmail, &e.ClientPhone, &e.Reason, &e.SubmittedBy,
		&e.Status, &reviewer, &e.CreatedAt, &e.UpdatedAt)
	if reviewer.Valid {
		id := uint64(reviewer.Int64)
		e.ReviewedBy = &id
	}
	return e, err
}
