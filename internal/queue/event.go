// Package queue defines message payloads exchanged over the message broker
// and the consumer that dispatches them.
package queue

import "time"

// StatusChangedQueue is the durable queue carrying BookingStatusChanged.
const StatusChangedQueue = "booking.status_changed"

// BookingStatusChanged is published after every committed booking
// transition, including creation (FromStatus empty).  It carries enough
// contact data for the notifier to message the client, the performer and
// the admin without querying the database.
type BookingStatusChanged struct {
	BookingID      uint64 `json:"booking_id"`
	Reference      string `json:"reference"`
	FromStatus     string `json:"from_status"`
	ToStatus       string `json:"to_status"`
	Action         string `json:"action"`
	ActorRole      string `json:"actor_role"`
	ClientName     string `json:"client_name"`
	ClientPhone    string `json:"client_phone"`
	ClientEmail    string `json:"client_email"`
	PerformerID    uint64 `json:"performer_id"`
	PerformerName  string `json:"performer_name"`
	PerformerPhone string `json:"performer_phone"`
	EventDate      string `json:"event_date"`
	EventTime      string `json:"event_time"`
	TotalCents     int64  `json:"total_cents"`
	DepositCents   int64  `json:"deposit_cents"`
	Currency       string `json:"currency"`
	Reason         string `json:"reason,omitempty"`
	// AutoVetted marks an accept whose vetting was approved by SYSTEM in
	// the same transition.
	AutoVetted bool      `json:"auto_vetted,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
