package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flavor-entertainers/booking-platform/internal/booking"
	"github.com/flavor-entertainers/booking-platform/internal/model"
)

// BookingRepo persists bookings, their service links and the audit trail.
// Status changes go through ApplyTransition, which performs a
// compare-and-set on the current status so two concurrent actions on the
// same booking cannot both succeed.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Transition describes one compare-and-set status change.  Nil patch
// fields leave the column untouched.  Audit rows are written in the same
// transaction as the update.
type Transition struct {
	BookingID       uint64
	From            booking.Status
	To              booking.Status
	At              time.Time
	PaymentMethod   *string
	PaymentRef      *string
	DepositReceipt  *string
	RejectionReason *string
	Audit           []model.AuditLog
}

const bookingColumns = `id, reference, request_group, client_id, performer_id, client_name, client_email,
	client_phone, event_type, event_address, event_date, event_time, duration_minutes, guest_count, notes,
	status, performer_count, total_cost_cents, deposit_cents, referral_fee_cents, payment_method,
	payment_ref, deposit_receipt, rejection_reason, created_at, updated_at, status_changed_at`

// CreateGroup inserts every booking of one request, their service links
// and a "create" audit row each, atomically.  IDs are written back into
// the given bookings.
func (r *BookingRepo) CreateGroup(ctx context.Context, bookings []*model.Booking, actorID uint64, actorRole string) error {
	if len(bookings) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const ins = `INSERT INTO bookings (reference, request_group, client_id, performer_id, client_name,
		client_email, client_phone, event_type, event_address, event_date, event_time, duration_minutes,
		guest_count, notes, status, performer_count, total_cost_cents, deposit_cents, referral_fee_cents,
		rejection_reason, created_at, updated_at, status_changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?, ?)`

	for _, b := range bookings {
		res, err := tx.ExecContext(ctx, ins,
			b.Reference, b.RequestGroup, b.ClientID, b.PerformerID, b.ClientName,
			b.ClientEmail, b.ClientPhone, b.EventType, b.EventAddress, b.EventDate.Format("2006-01-02"),
			b.EventTime, b.DurationMinutes, b.GuestCount, b.Notes, string(b.Status), b.PerformerCount,
			b.TotalCostCents, b.DepositCents, b.ReferralFeeCents,
			b.CreatedAt.UTC(), b.UpdatedAt.UTC(), b.StatusChangedAt.UTC())
		if err != nil {
			if isForeignKey(err) {
				return fmt.Errorf("create booking: %w", ErrNotFound)
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.ID = uint64(id)

		if err := insertBookingServicesTx(ctx, tx, b.ID, b.ServiceIDs); err != nil {
			return err
		}
		actor := actorID
		if err := insertAuditTx(ctx, tx, model.AuditLog{
			BookingID: b.ID,
			ActorID:   &actor,
			ActorRole: actorRole,
			Action:    string(booking.ActionCreate),
			ToStatus:  string(b.Status),
			CreatedAt: b.CreatedAt,
		}); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ApplyTransition moves a booking from t.From to t.To.  When the stored
// status no longer equals t.From the update affects no rows and
// ErrStaleStatus is returned; when the booking does not exist ErrNotFound
// is returned.  Nothing is written in either case.
func (r *BookingRepo) ApplyTransition(ctx context.Context, t Transition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sets := []string{"status = ?", "status_changed_at = ?", "updated_at = ?"}
	args := []interface{}{string(t.To), t.At.UTC(), t.At.UTC()}
	patch := []struct {
		col string
		val *string
	}{
		{"payment_method", t.PaymentMethod},
		{"payment_ref", t.PaymentRef},
		{"deposit_receipt", t.DepositReceipt},
		{"rejection_reason", t.RejectionReason},
	}
	for _, p := range patch {
		if p.val != nil {
			sets = append(sets, p.col+" = ?")
			args = append(args, *p.val)
		}
	}
	args = append(args, t.BookingID, string(t.From))

	res, err := tx.ExecContext(ctx,
		"UPDATE bookings SET "+strings.Join(sets, ", ")+" WHERE id = ? AND status = ?", args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM bookings WHERE id = ?)", t.BookingID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStaleStatus
	}
	for _, a := range t.Audit {
		if err := insertAuditTx(ctx, tx, a); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID returns one booking with its service ids or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	if err != nil {
		return b, err
	}
	ids, err := r.serviceIDs(ctx, []uint64{b.ID})
	if err != nil {
		return b, err
	}
	b.ServiceIDs = ids[b.ID]
	if b.ServiceIDs == nil {
		b.ServiceIDs = []uint64{}
	}
	return b, nil
}

// ListByClient returns a client's bookings, newest first.
func (r *BookingRepo) ListByClient(ctx context.Context, clientID uint64) ([]model.Booking, error) {
	return r.query(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE client_id = ? ORDER BY created_at DESC, id DESC", clientID)
}

// ListByPerformer returns a performer's bookings ordered by event date.
func (r *BookingRepo) ListByPerformer(ctx context.Context, performerID uint64) ([]model.Booking, error) {
	return r.query(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE performer_id = ? ORDER BY event_date, event_time, id", performerID)
}

// List returns bookings matching an admin filter, newest first.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.PerformerID != 0 {
		where = append(where, "performer_id = ?")
		args = append(args, f.PerformerID)
	}
	if f.ClientEmail != "" {
		where = append(where, "client_email = ?")
		args = append(args, strings.ToLower(f.ClientEmail))
	}
	q := "SELECT " + bookingColumns + " FROM bookings"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)
	return r.query(ctx, q, args...)
}

// ListStale returns bookings that have been in status since before cutoff.
func (r *BookingRepo) ListStale(ctx context.Context, status booking.Status, cutoff time.Time) ([]model.Booking, error) {
	return r.query(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE status = ? AND status_changed_at < ? ORDER BY status_changed_at",
		string(status), cutoff.UTC())
}

// HasVerifiedHistory reports whether the client account has at least one
// confirmed or completed booking.
func (r *BookingRepo) HasVerifiedHistory(ctx context.Context, clientID uint64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM bookings WHERE client_id = ? AND status IN (?, ?))",
		clientID, string(booking.StatusConfirmed), string(booking.StatusCompleted)).Scan(&ok)
	return ok, err
}

// Stats aggregates bookings per status along with confirmed revenue,
// referral fees and outstanding deposits.
func (r *BookingRepo) Stats(ctx context.Context) (model.BookingStats, error) {
	out := model.BookingStats{ByStatus: map[booking.Status]int{}}
	for _, s := range booking.AllStatuses {
		out.ByStatus[s] = 0
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT status, COUNT(*), COALESCE(SUM(total_cost_cents),0), COALESCE(SUM(referral_fee_cents),0), COALESCE(SUM(deposit_cents),0) FROM bookings GROUP BY status")
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status                   string
			count                    int
			total, referral, deposit int64
		)
		if err := rows.Scan(&status, &count, &total, &referral, &deposit); err != nil {
			return out, err
		}
		s := booking.Status(status)
		out.ByStatus[s] = count
		switch s {
		case booking.StatusConfirmed, booking.StatusCompleted:
			out.ConfirmedRevenueCents += total
			out.ReferralFeesCents += referral
		case booking.StatusDepositPending, booking.StatusPendingDepositCheck:
			out.PendingDepositsCents += deposit
		}
	}
	return out, rows.Err()
}

// AuditTrail returns the audit rows of a booking in the order written.
func (r *BookingRepo) AuditTrail(ctx context.Context, bookingID uint64) ([]model.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, booking_id, actor_id, actor_role, action, from_status, to_status, details, created_at
		 FROM audit_logs WHERE booking_id = ? ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AuditLog{}
	for rows.Next() {
		var (
			a       model.AuditLog
			actorID sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.BookingID, &actorID, &a.ActorRole, &a.Action,
			&a.FromStatus, &a.ToStatus, &a.Details, &a.CreatedAt); err != nil {
			return nil, err
		}
		if actorID.Valid {
			id := uint64(actorID.Int64)
			a.ActorID = &id
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *BookingRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	ids := make([]uint64, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	links, err := r.serviceIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].ServiceIDs = links[out[i].ID]
		if out[i].ServiceIDs == nil {
			out[i].ServiceIDs = []uint64{}
		}
	}
	return out, nil
}

func (r *BookingRepo) serviceIDs(ctx context.Context, bookingIDs []uint64) (map[uint64][]uint64, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(bookingIDs)), ",")
	args := make([]interface{}, len(bookingIDs))
	for i, id := range bookingIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT booking_id, service_id FROM booking_services WHERE booking_id IN ("+placeholders+") ORDER BY booking_id, service_id",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uint64][]uint64{}
	for rows.Next() {
		var bid, sid uint64
		if err := rows.Scan(&bid, &sid); err != nil {
			return nil, err
		}
		out[bid] = append(out[bid], sid)
	}
	return out, rows.Err()
}

func insertBookingServicesTx(ctx context.Context, tx *sql.Tx, bookingID uint64, serviceIDs []uint64) error {
	if len(serviceIDs) == 0 {
		return nil
	}
	query := "INSERT INTO booking_services (booking_id, service_id) VALUES "
	args := make([]interface{}, 0, len(serviceIDs)*2)
	for i, sid := range serviceIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, bookingID, sid)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func insertAuditTx(ctx context.Context, tx *sql.Tx, a model.AuditLog) error {
	at := a.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_logs (booking_id, actor_id, actor_role, action, from_status, to_status, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.BookingID, nullableID(a.ActorID), a.ActorRole, a.Action, a.FromStatus, a.ToStatus, a.Details, at.UTC())
	return err
}

func scanBooking(s scanner) (model.Booking, error) {
	var (
		b      model.Booking
		status string
	)
	err := s.Scan(&b.ID, &b.Reference, &b.RequestGroup, &b.ClientID, &b.PerformerID, &b.ClientName,
		&b.ClientEmail, &b.ClientPhone, &b.EventType, &b.EventAddress, &b.EventDate, &b.EventTime,
		&b.DurationMinutes, &b.GuestCount, &b.Notes, &status, &b.PerformerCount, &b.TotalCostCents,
		&b.DepositCents, &b.ReferralFeeCents, &b.PaymentMethod, &b.PaymentRef, &b.DepositReceipt,
		&b.RejectionReason, &b.CreatedAt, &b.UpdatedAt, &b.StatusChangedAt)
	b.Status = booking.Status(status)
	return b, err
}
