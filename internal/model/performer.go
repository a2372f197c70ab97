package model

import "time"

// Performer availability values stored in performers.status.
const (
	PerformerAvailable = "AVAILABLE"
	PerformerBusy      = "BUSY"
	PerformerOffline   = "OFFLINE"
)

// Performer is an entertainer that clients can book.  A performer may be
// linked to a user account (UserID) so they can accept or decline their own
// bookings; admin-managed performers without an account have UserID nil.
type Performer struct {
	ID         uint64    `json:"id"`
	UserID     *uint64   `json:"user_id,omitempty"`
	StageName  string    `json:"stage_name"`
	Bio        string    `json:"bio"`
	Location   string    `json:"location"`
	Phone      string    `json:"-"`
	PhotoURL   string    `json:"photo_url"`
	Status     string    `json:"status"`
	ServiceIDs []uint64  `json:"service_ids"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Service is a catalog entry a performer can offer, e.g. "Waitress (hourly)"
// or "Show (flat)".  RateType is HOURLY or FLAT.
type Service struct {
	ID                 uint64 `json:"id"`
	Name               string `json:"name"`
	Category           string `json:"category"`
	Description        string `json:"description"`
	RateCents          int64  `json:"rate_cents"`
	RateType           string `json:"rate_type"`
	MinDurationMinutes int    `json:"min_duration_minutes"`
	IsActive           bool   `json:"is_active"`
}

// PerformerFilter narrows the public performer listing.  Empty fields do
// not filter.
type PerformerFilter struct {
	Status   string
	Category string
	Location string
}
