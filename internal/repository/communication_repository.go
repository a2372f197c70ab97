package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/flavor-entertainers/booking-platform/internal/model"
)

// CommunicationRepo is the outbound message log.
type CommunicationRepo struct {
	db *sql.DB
}

func NewCommunicationRepo(db *sql.DB) *CommunicationRepo { return &CommunicationRepo{db: db} }

// Create appends a message record and returns its id.
func (r *CommunicationRepo) Create(ctx context.Context, c model.Communication) (uint64, error) {
	at := c.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO communications (booking_id, sender_id, recipient, channel, body, status, provider_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableID(c.BookingID), nullableID(c.SenderID), c.Recipient, c.Channel, c.Body, c.Status,
		c.ProviderRef, at.UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// ListByBooking returns the messages about one booking, oldest first.
func (r *CommunicationRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]model.Communication, error) {
	return r.list(ctx, "WHERE booking_id = ? ORDER BY id", bookingID)
}

// ListRecent returns the latest messages across all bookings.
func (r *CommunicationRepo) ListRecent(ctx context.Context, limit int) ([]model.Communication, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return r.list(ctx, "ORDER BY id DESC LIMIT ?", limit)
}

func (r *CommunicationRepo) list(ctx context.Context, tail string, args ...interface{}) ([]model.Communication, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, booking_id, sender_id, recipient, channel, body, status, provider_ref, created_at FROM communications "+tail,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Communication{}
	for rows.Next() {
		var (
			c               model.Communication
			booking, sender sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &booking, &sender, &c.Recipient, &c.Channel, &c.Body, &c.Status,
			&c.ProviderRef, &c.CreatedAt); err != nil {
			return nil, err
		}
		if booking.Valid {
			id := uint64(booking.Int64)
			c.BookingID = &id
		}
		if sender.Valid {
			id := uint64(sender.Int64)
			c.SenderID = &id
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
