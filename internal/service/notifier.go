package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flavor-entertainers/booking-platform/internal/booking"
	"github.com/flavor-entertainers/booking-platform/internal/logging"
	"github.com/flavor-entertainers/booking-platform/internal/metrics"
	"github.com/flavor-entertainers/booking-platform/internal/model"
	"github.com/flavor-entertainers/booking-platform/internal/queue"
)

// CommunicationStore records outbound messages.
type CommunicationStore interface {
	Create(ctx context.Context, c model.Communication) (uint64, error)
}

// Notifier turns booking status changes into messages for the client, the
// performer and the platform admin, and records every attempt.
type Notifier struct {
	messenger  Messenger
	comms      CommunicationStore
	adminPhone string
	log        *slog.Logger
	now        func() time.Time
}

func NewNotifier(m Messenger, comms CommunicationStore, adminPhone string, log *slog.Logger) *Notifier {
	return &Notifier{
		messenger:  m,
		comms:      comms,
		adminPhone: adminPhone,
		log:        log,
		now:        time.Now,
	}
}

type outbound struct {
	to   string
	body string
}

// Handle sends the messages for one event.  Delivery failures are recorded
// as FAILED communications and do not fail the call; only a failure to
// record a communication is returned.
func (n *Notifier) Handle(ctx context.Context, ev queue.BookingStatusChanged) error {
	const op = "service.notifier.Handle"
	log := n.log.With(slog.String("op", op), slog.String("reference", ev.Reference))

	var errs []error
	for _, msg := range n.render(ev) {
		bid := ev.BookingID
		if _, err := n.deliver(ctx, &bid, nil, msg.to, msg.body); err != nil {
			log.Error("failed to record communication", logging.Err(err))
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SendManual sends an admin-written message and records it.
func (n *Notifier) SendManual(ctx context.Context, senderID uint64, bookingID *uint64, to, body string) (model.Communication, error) {
	const op = "service.notifier.SendManual"
	sender := senderID
	c, err := n.deliver(ctx, bookingID, &sender, to, body)
	if err != nil {
		return c, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (n *Notifier) deliver(ctx context.Context, bookingID, senderID *uint64, to, body string) (model.Communication, error) {
	c := model.Communication{
		BookingID: bookingID,
		SenderID:  senderID,
		Recipient: to,
		Channel:   n.messenger.Channel(),
		Body:      body,
		CreatedAt: n.now().UTC(),
	}
	switch {
	case strings.TrimSpace(to) == "":
		c.Status = model.CommSkipped
	default:
		ref, err := n.messenger.Send(ctx, to, body)
		if err != nil {
			n.log.Warn("message delivery failed", slog.String("channel", c.Channel), logging.Err(err))
			c.Status = model.CommFailed
		} else {
			c.Status = model.CommSent
			c.ProviderRef = ref
		}
	}
	metrics.RecordNotification(c.Channel, c.Status)

	id, err := n.comms.Create(ctx, c)
	if err != nil {
		return c, err
	}
	c.ID = id
	return c, nil
}

// render builds the messages for an event.  The action decides the wording
// where the resulting status alone is ambiguous (a rejected deposit returns
// the booking to deposit_pending).
func (n *Notifier) render(ev queue.BookingStatusChanged) []outbound {
	ref := ev.Reference
	when := strings.TrimSpace(ev.EventDate + " " + ev.EventTime)
	deposit := formatMoney(ev.DepositCents, ev.Currency)
	reason := ""
	if ev.Reason != "" {
		reason = " Reason: " + ev.Reason
	}

	var out []outbound
	client := func(body string) { out = append(out, outbound{to: ev.ClientPhone, body: body}) }
	performer := func(body string) { out = append(out, outbound{to: ev.PerformerPhone, body: body}) }
	admin := func(body string) { out = append(out, outbound{to: n.adminPhone, body: body}) }

	if booking.Action(ev.Action) == booking.ActionRejectDeposit {
		client(fmt.Sprintf("Your deposit for booking %s could not be verified.%s Please submit it again.", ref, reason))
		return out
	}

	switch booking.Status(ev.ToStatus) {
	case booking.StatusPendingAcceptance:
		performer(fmt.Sprintf("New booking request %s for %s. Please accept or decline.", ref, when))
		admin(fmt.Sprintf("New booking %s from %s for %s on %s.", ref, ev.ClientName, ev.PerformerName, when))
	case booking.StatusPendingVetting:
		if ev.AutoVetted {
			// the deposit_pending event that follows carries the news
			break
		}
		client(fmt.Sprintf("%s accepted your booking %s. It is now being reviewed.", ev.PerformerName, ref))
		admin(fmt.Sprintf("Booking %s is waiting for vetting.", ref))
	case booking.StatusDepositPending:
		client(fmt.Sprintf("Booking %s is approved. Please pay the deposit of %s using reference %s to secure it.", ref, deposit, ref))
	case booking.StatusPendingDepositCheck:
		admin(fmt.Sprintf("Deposit of %s submitted for booking %s. Please verify.", deposit, ref))
	case booking.StatusConfirmed:
		client(fmt.Sprintf("Booking %s with %s on %s is confirmed.", ref, ev.PerformerName, when))
		performer(fmt.Sprintf("Booking %s on %s is confirmed.", ref, when))
	case booking.StatusCompleted:
		client(fmt.Sprintf("Thanks for booking with us. Booking %s is complete.", ref))
	case booking.StatusRejected:
		client(fmt.Sprintf("Sorry, booking %s could not go ahead.%s", ref, reason))
	case booking.StatusCancelled:
		client(fmt.Sprintf("Booking %s has been cancelled.%s", ref, reason))
		if ev.FromStatus != string(booking.StatusPendingAcceptance) || booking.Action(ev.Action) != booking.ActionExpire {
			performer(fmt.Sprintf("Booking %s on %s has been cancelled.", ref, when))
		}
	}
	return out
}

func formatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	s := fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
	if currency != "" {
		s = currency + " " + s
	}
	return s
}
