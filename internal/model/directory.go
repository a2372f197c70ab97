package model

import "time"

// Do-Not-Serve entry review states.
const (
	DNSPending  = "PENDING"
	DNSApproved = "APPROVED"
	DNSRejected = "REJECTED"
)

// DoNotServeEntry is a client reported as unsafe or abusive.  Entries
// submitted by performers start PENDING and only block bookings once an
// admin approves them.
type DoNotServeEntry struct {
	ID          uint64    `json:"id"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email"`
	ClientPhone string    `json:"client_phone"`
	Reason      string    `json:"reason"`
	SubmittedBy uint64    `json:"submitted_by"`
	Status      string    `json:"status"`
	ReviewedBy  *uint64   `json:"reviewed_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Communication channels and delivery states.
const (
	ChannelSMS      = "SMS"
	ChannelWhatsApp = "WHATSAPP"
	ChannelLog      = "LOG"

	CommSent    = "SENT"
	CommFailed  = "FAILED"
	CommSkipped = "SKIPPED"
)

// Communication is one outbound message, either generated by a booking
// status change or sent manually by an admin.
type Communication struct {
	ID          uint64    `json:"id"`
	BookingID   *uint64   `json:"booking_id,omitempty"`
	SenderID    *uint64   `json:"sender_id,omitempty"`
	Recipient   string    `json:"recipient"`
	Channel     string    `json:"channel"`
	Body        string    `json:"body"`
	Status      string    `json:"status"`
	ProviderRef string    `json:"provider_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
