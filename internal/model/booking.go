package model

import (
	"time"

	"github.com/flavor-entertainers/booking-platform/internal/booking"
)

// Payment methods recorded on a booking once a deposit is submitted.
const (
	PaymentPayID  = "PAYID"
	PaymentStripe = "STRIPE"
)

// Booking records a client's request for one performer at one event.  A
// request that names several performers produces one Booking per performer
// sharing the same RequestGroup.  Each booking carries one performer's
// share of the cost; PerformerCount records the size of the group.
//
// Money fields are cents.  StatusChangedAt is the time of the last
// transition and drives the acceptance and deposit expiry windows.
type Booking struct {
	ID               uint64         `json:"id"`
	Reference        string         `json:"reference"`
	RequestGroup     string         `json:"request_group"`
	ClientID         uint64         `json:"client_id"`
	PerformerID      uint64         `json:"performer_id"`
	ClientName       string         `json:"client_name"`
	ClientEmail      string         `json:"client_email"`
	ClientPhone      string         `json:"client_phone"`
	EventType        string         `json:"event_type"`
	EventAddress     string         `json:"event_address"`
	EventDate        time.Time      `json:"event_date"`
	EventTime        string         `json:"event_time"`
	DurationMinutes  int            `json:"duration_minutes"`
	GuestCount       int            `json:"guest_count"`
	Notes            string         `json:"notes,omitempty"`
	ServiceIDs       []uint64       `json:"service_ids"`
	Status           booking.Status `json:"status"`
	PerformerCount   int            `json:"performer_count"`
	TotalCostCents   int64          `json:"total_cost_cents"`
	DepositCents     int64          `json:"deposit_cents"`
	ReferralFeeCents int64          `json:"referral_fee_cents"`
	PaymentMethod    string         `json:"payment_method,omitempty"`
	PaymentRef       string         `json:"payment_ref,omitempty"`
	DepositReceipt   string         `json:"deposit_receipt,omitempty"`
	RejectionReason  string         `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	StatusChangedAt  time.Time      `json:"status_changed_at"`
}

// BalanceDueCents is what the client still owes after the deposit.
func (b Booking) BalanceDueCents() int64 { return b.TotalCostCents - b.DepositCents }

// BookingFilter narrows admin booking listings.
type BookingFilter struct {
	Status      booking.Status
	PerformerID uint64
	ClientEmail string
	Limit       int
	Offset      int
}

// AuditLog is an immutable record of one booking action.
type AuditLog struct {
	ID         uint64    `json:"id"`
	BookingID  uint64    `json:"booking_id"`
	ActorID    *uint64   `json:"actor_id,omitempty"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// BookingStats summarises the booking book for the admin dashboard.
type BookingStats struct {
	ByStatus              map[booking.Status]int `json:"by_status"`
	ConfirmedRevenueCents int64                  `json:"confirmed_revenue_cents"`
	ReferralFeesCents     int64                  `json:"referral_fees_cents"`
	PendingDepositsCents  int64                  `json:"pending_deposits_cents"`
}
