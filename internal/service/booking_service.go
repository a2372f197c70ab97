// Package service implements the booking workflow on top of the
// repositories: creation, status transitions, deposits, expiry and the
// notifications that follow every change.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flavor-entertainers/booking-platform/internal/booking"
	"github.com/flavor-entertainers/booking-platform/internal/config"
	"github.com/flavor-entertainers/booking-platform/internal/logging"
	"github.com/flavor-entertainers/booking-platform/internal/metrics"
	"github.com/flavor-entertainers/booking-platform/internal/model"
	"github.com/flavor-entertainers/booking-platform/internal/queue"
	"github.com/flavor-entertainers/booking-platform/internal/repository"
)

var (
	ErrClientBlocked        = errors.New("client is on the do-not-serve list")
	ErrPerformerUnavailable = errors.New("performer is not available")
	ErrPaymentsDisabled     = errors.New("payment method not configured")
	ErrReasonRequired       = errors.New("a reason is required for this action")
	ErrReceiptRequired      = errors.New("a deposit receipt is required")
	ErrInvalidRequest       = errors.New("invalid booking request")
	ErrNotParticipant       = fmt.Errorf("%w: not a participant of this booking", repository.ErrForbidden)
)

// BookingStore is the persistence the workflow needs.
type BookingStore interface {
	CreateGroup(ctx context.Context, bookings []*model.Booking, actorID uint64, actorRole string) error
	ApplyTransition(ctx context.Context, t repository.Transition) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	ListByClient(ctx context.Context, clientID uint64) ([]model.Booking, error)
	ListByPerformer(ctx context.Context, performerID uint64) ([]model.Booking, error)
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	ListStale(ctx context.Context, status booking.Status, cutoff time.Time) ([]model.Booking, error)
	HasVerifiedHistory(ctx context.Context, clientID uint64) (bool, error)
	Stats(ctx context.Context) (model.BookingStats, error)
	AuditTrail(ctx context.Context, bookingID uint64) ([]model.AuditLog, error)
}

// ServiceCatalog resolves requested services.
type ServiceCatalog interface {
	GetByIDs(ctx context.Context, ids []uint64) ([]model.Service, error)
}

// PerformerDirectory resolves performers and performer accounts.
type PerformerDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.Performer, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]model.Performer, error)
	GetByUserID(ctx context.Context, userID uint64) (model.Performer, error)
}

// Blocklist answers Do-Not-Serve lookups.
type Blocklist interface {
	IsBlocked(ctx context.Context, email, phone string) (bool, error)
}

// Publisher sends status-change events to the broker.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, ev queue.BookingStatusChanged) error
}

// EventHandler consumes status-change events directly; used when the
// broker is unreachable.
type EventHandler interface {
	Handle(ctx context.Context, ev queue.BookingStatusChanged) error
}

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	UserID uint64
	Role   booking.Role
}

// SystemActor performs automatic transitions.
var SystemActor = Actor{Role: booking.RoleSystem}

// CreateRequest is a client's booking request.  One booking is created
// per performer.
type CreateRequest struct {
	PerformerIDs    []uint64 `json:"performer_ids" validate:"required,min=1,max=10,dive,gt=0"`
	ServiceIDs      []uint64 `json:"service_ids" validate:"required,min=1,max=20,dive,gt=0"`
	ClientName      string   `json:"client_name" validate:"required,max=255"`
	ClientEmail     string   `json:"client_email" validate:"required,email"`
	ClientPhone     string   `json:"client_phone" validate:"required,min=6,max=32"`
	EventType       string   `json:"event_type" validate:"required,max=128"`
	EventAddress    string   `json:"event_address" validate:"required,max=512"`
	EventDate       string   `json:"event_date" validate:"required,datetime=2006-01-02"`
	EventTime       string   `json:"event_time" validate:"required,datetime=15:04"`
	DurationMinutes int      `json:"duration_minutes" validate:"required,gt=0,lte=1440"`
	GuestCount      int      `json:"guest_count" validate:"gte=0"`
	Notes           string   `json:"notes" validate:"max=2000"`
}

// Normalize trims the free-text fields and lower-cases the email so that
// validation sees what will be stored.
func (r *CreateRequest) Normalize() {
	r.ClientName = strings.TrimSpace(r.ClientName)
	r.ClientEmail = strings.ToLower(strings.TrimSpace(r.ClientEmail))
	r.ClientPhone = strings.TrimSpace(r.ClientPhone)
	r.EventType = strings.TrimSpace(r.EventType)
	r.EventAddress = strings.TrimSpace(r.EventAddress)
	r.EventDate = strings.TrimSpace(r.EventDate)
	r.EventTime = strings.TrimSpace(r.EventTime)
	r.Notes = strings.TrimSpace(r.Notes)
}

// TransitionInput carries the optional data some actions need.
type TransitionInput struct {
	Reason     string
	Receipt    string
	PaymentRef string
}

// CreateResult is the outcome of a booking request.
type CreateResult struct {
	Bookings []model.Booking `json:"bookings"`
	Cost     booking.Cost    `json:"cost"`
}

// BookingService runs the booking workflow.
type BookingService struct {
	bookings   BookingStore
	catalog    ServiceCatalog
	performers PerformerDirectory
	blocklist  Blocklist
	cfg        config.BookingConfig
	log        *slog.Logger

	publisher Publisher
	fallback  EventHandler
	payments  config.PaymentConfig
	gateway   CardGateway

	now func() time.Time
}

func NewBookingService(
	bookings BookingStore,
	catalog ServiceCatalog,
	performers PerformerDirectory,
	blocklist Blocklist,
	cfg config.BookingConfig,
	log *slog.Logger,
) *BookingService {
	return &BookingService{
		bookings:   bookings,
		catalog:    catalog,
		performers: performers,
		blocklist:  blocklist,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// WithEvents sets the broker publisher and the handler used when
// publishing fails.  Either may be nil.
func (s *BookingService) WithEvents(p Publisher, fallback EventHandler) *BookingService {
	s.publisher = p
	s.fallback = fallback
	return s
}

// WithPayments configures the deposit rails.  gateway may be nil when card
// payments are disabled.
func (s *BookingService) WithPayments(cfg config.PaymentConfig, gateway CardGateway) *BookingService {
	s.payments = cfg
	s.gateway = gateway
	return s
}

// WithClock replaces time.Now.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// Create validates a request and stores one booking per requested
// performer, all sharing a request group and the same per-performer cost.
func (s *BookingService) Create(ctx context.Context, clientID uint64, req CreateRequest) (CreateResult, error) {
	const op = "service.booking.Create"
	log := s.log.With(slog.String("op", op), slog.Uint64("client_id", clientID))

	performerIDs := uniqueIDs(req.PerformerIDs)
	serviceIDs := uniqueIDs(req.ServiceIDs)
	if len(performerIDs) == 0 {
		return CreateResult{}, fmt.Errorf("%s: %w: at least one performer is required", op, ErrInvalidRequest)
	}
	if len(serviceIDs) == 0 {
		return CreateResult{}, fmt.Errorf("%s: %w", op, booking.ErrNoServices)
	}

	now := s.now().UTC()
	eventDate, err := time.Parse("2006-01-02", req.EventDate)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%s: %w: event_date must be YYYY-MM-DD", op, ErrInvalidRequest)
	}
	if eventDate.Before(now.Truncate(24 * time.Hour)) {
		return CreateResult{}, fmt.Errorf("%s: %w: event_date is in the past", op, ErrInvalidRequest)
	}

	blocked, err := s.blocklist.IsBlocked(ctx, req.ClientEmail, req.ClientPhone)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if blocked {
		log.Info("blocked client attempted booking")
		return CreateResult{}, fmt.Errorf("%s: %w", op, ErrClientBlocked)
	}

	services, err := s.catalog.GetByIDs(ctx, serviceIDs)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(services) != len(serviceIDs) {
		return CreateResult{}, fmt.Errorf("%s: unknown service: %w", op, repository.ErrNotFound)
	}
	priced := make([]booking.PricedService, 0, len(services))
	for _, svc := range services {
		if !svc.IsActive {
			return CreateResult{}, fmt.Errorf("%s: service %d is not offered: %w", op, svc.ID, booking.ErrServiceNotOffered)
		}
		priced = append(priced, booking.PricedService{
			ID:                 svc.ID,
			RateCents:          svc.RateCents,
			RateType:           booking.RateType(svc.RateType),
			MinDurationMinutes: svc.MinDurationMinutes,
		})
	}

	performers, err := s.performers.GetByIDs(ctx, performerIDs)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(performers) != len(performerIDs) {
		return CreateResult{}, fmt.Errorf("%s: unknown performer: %w", op, repository.ErrNotFound)
	}
	for _, p := range performers {
		if p.Status != model.PerformerAvailable {
			return CreateResult{}, fmt.Errorf("%s: %s: %w", op, p.StageName, ErrPerformerUnavailable)
		}
		if !containsAll(p.ServiceIDs, serviceIDs) {
			return CreateResult{}, fmt.Errorf("%s: %s: %w", op, p.StageName, booking.ErrServiceNotOffered)
		}
	}

	cost, err := booking.CalculateCost(priced, req.DurationMinutes, len(performers), booking.Rates{
		DepositBps:     s.cfg.DepositBps,
		ReferralFeeBps: s.cfg.ReferralFeeBps,
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("%s: %w", op, err)
	}
	// Each booking is one performer's share of the request.
	share, err := booking.CalculateCost(priced, req.DurationMinutes, 1, booking.Rates{
		DepositBps:     s.cfg.DepositBps,
		ReferralFeeBps: s.cfg.ReferralFeeBps,
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("%s: %w", op, err)
	}

	group := uuid.NewString()
	rows := make([]*model.Booking, 0, len(performers))
	for _, p := range performers {
		rows = append(rows, &model.Booking{
			Reference:        newReference(),
			RequestGroup:     group,
			ClientID:         clientID,
			PerformerID:      p.ID,
			ClientName:       strings.TrimSpace(req.ClientName),
			ClientEmail:      repository.NormalizeEmail(req.ClientEmail),
			ClientPhone:      strings.TrimSpace(req.ClientPhone),
			EventType:        strings.TrimSpace(req.EventType),
			EventAddress:     strings.TrimSpace(req.EventAddress),
			EventDate:        eventDate,
			EventTime:        req.EventTime,
			DurationMinutes:  req.DurationMinutes,
			GuestCount:       req.GuestCount,
			Notes:            strings.TrimSpace(req.Notes),
			ServiceIDs:       serviceIDs,
			Status:           booking.StatusPendingAcceptance,
			PerformerCount:   len(performers),
			TotalCostCents:   share.TotalCents,
			DepositCents:     share.DepositCents,
			ReferralFeeCents: share.ReferralFeeCents,
			CreatedAt:        now,
			UpdatedAt:        now,
			StatusChangedAt:  now,
		})
	}
	if err := s.bookings.CreateGroup(ctx, rows, clientID, string(booking.RoleClient)); err != nil {
		return CreateResult{}, fmt.Errorf("%s: %w", op, err)
	}

	out := CreateResult{Bookings: make([]model.Booking, 0, len(rows)), Cost: cost}
	for i, b := range rows {
		metrics.RecordTransition(string(booking.ActionCreate), string(b.Status))
		out.Bookings = append(out.Bookings, *b)
		s.publish(ctx, s.event(*b, performers[i], "", b.Status, booking.ActionCreate, booking.RoleClient, ""))
	}
	log.Info("booking request created", slog.String("group", group), slog.Int("bookings", len(rows)))
	return out, nil
}

// Transition applies action to a booking on behalf of actor.  The write is
// a compare-and-set on the status read here; a concurrent change makes it
// fail with repository.ErrStaleStatus and nothing is persisted.
func (s *BookingService) Transition(ctx context.Context, actor Actor, bookingID uint64, action booking.Action, in TransitionInput) (model.Booking, error) {
	const op = "service.booking.Transition"
	log := s.log.With(slog.String("op", op), slog.Uint64("booking_id", bookingID), slog.String("action", string(action)))

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	performer, err := s.authorize(ctx, actor, b)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	to, err := booking.Next(b.Status, action, actor.Role)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	reason := strings.TrimSpace(in.Reason)
	if booking.RequiresReason(action) && reason == "" {
		return model.Booking{}, fmt.Errorf("%s: %w", op, ErrReasonRequired)
	}

	now := s.now().UTC()
	t := repository.Transition{BookingID: b.ID, From: b.Status, To: to, At: now}
	switch action {
	case booking.ActionSubmitDeposit:
		receipt := strings.TrimSpace(in.Receipt)
		if receipt == "" {
			return model.Booking{}, fmt.Errorf("%s: %w", op, ErrReceiptRequired)
		}
		method := model.PaymentPayID
		t.PaymentMethod, t.DepositReceipt = &method, &receipt
	case booking.ActionRejectDeposit:
		empty := ""
		t.DepositReceipt = &empty
	case booking.ActionCardPayment:
		method, ref := model.PaymentStripe, strings.TrimSpace(in.PaymentRef)
		t.PaymentMethod, t.PaymentRef = &method, &ref
	}
	if reason != "" {
		t.RejectionReason = &reason
	}
	t.Audit = append(t.Audit, s.audit(b.ID, actor, action, b.Status, to, reason, now))

	steps := []step{{from: b.Status, to: to, action: action, role: actor.Role}}
	if action == booking.ActionAccept {
		auto, err := s.autoVet(ctx, b)
		if err != nil {
			log.Warn("auto-vetting check failed, leaving booking for manual vetting", logging.Err(err))
		}
		if auto {
			vetted, err := booking.Next(to, booking.ActionApproveVetting, booking.RoleSystem)
			if err != nil {
				return model.Booking{}, fmt.Errorf("%s: %w", op, err)
			}
			t.Audit = append(t.Audit, s.audit(b.ID, SystemActor, booking.ActionApproveVetting, to, vetted,
				"auto-vetted: returning client with a confirmed booking", now))
			steps = append(steps, step{from: to, to: vetted, action: booking.ActionApproveVetting, role: booking.RoleSystem})
			t.To = vetted
		}
	}

	if err := s.bookings.ApplyTransition(ctx, t); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			log.Info("lost status race", slog.String("from", string(b.Status)))
		}
		return model.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	b.Status = t.To
	b.StatusChangedAt = now
	b.UpdatedAt = now
	if t.PaymentMethod != nil {
		b.PaymentMethod = *t.PaymentMethod
	}
	if t.PaymentRef != nil {
		b.PaymentRef = *t.PaymentRef
	}
	if t.DepositReceipt != nil {
		b.DepositReceipt = *t.DepositReceipt
	}
	if t.RejectionReason != nil {
		b.RejectionReason = *t.RejectionReason
	}

	if performer.ID == 0 {
		performer, _ = s.performers.GetByID(ctx, b.PerformerID)
	}
	for _, st := range steps {
		metrics.RecordTransition(string(st.action), string(st.to))
		ev := s.event(b, performer, st.from, st.to, st.action, st.role, reason)
		ev.AutoVetted = len(steps) > 1
		s.publish(ctx, ev)
	}
	log.Info("booking transitioned", slog.String("to", string(b.Status)))
	return b, nil
}

type step struct {
	from   booking.Status
	to     booking.Status
	action booking.Action
	role   booking.Role
}

// Get returns a booking visible to actor.
func (s *BookingService) Get(ctx context.Context, actor Actor, bookingID uint64) (model.Booking, error) {
	const op = "service.booking.Get"
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.authorize(ctx, actor, b); err != nil {
		return model.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// History returns the audit trail of a booking visible to actor.
func (s *BookingService) History(ctx context.Context, actor Actor, bookingID uint64) ([]model.AuditLog, error) {
	const op = "service.booking.History"
	if _, err := s.Get(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	logs, err := s.bookings.AuditTrail(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return logs, nil
}

func (s *BookingService) ListForClient(ctx context.Context, clientID uint64) ([]model.Booking, error) {
	out, err := s.bookings.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("service.booking.ListForClient: %w", err)
	}
	return out, nil
}

// ListForPerformer lists the bookings of the performer profile linked to
// userID.
func (s *BookingService) ListForPerformer(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const op = "service.booking.ListForPerformer"
	p, err := s.performers.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := s.bookings.ListByPerformer(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *BookingService) ListAll(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	out, err := s.bookings.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("service.booking.ListAll: %w", err)
	}
	return out, nil
}

func (s *BookingService) Stats(ctx context.Context) (model.BookingStats, error) {
	st, err := s.bookings.Stats(ctx)
	if err != nil {
		return st, fmt.Errorf("service.booking.Stats: %w", err)
	}
	return st, nil
}

// PaymentInstructions returns the PayID details for a booking awaiting its
// deposit.
func (s *BookingService) PaymentInstructions(ctx context.Context, actor Actor, bookingID uint64) (PaymentInstructions, error) {
	const op = "service.booking.PaymentInstructions"
	b, err := s.Get(ctx, actor, bookingID)
	if err != nil {
		return PaymentInstructions{}, err
	}
	if b.Status != booking.StatusDepositPending {
		return PaymentInstructions{}, fmt.Errorf("%s: %w: no deposit is due for a booking that is %s",
			op, booking.ErrInvalidTransition, b.Status)
	}
	if s.payments.PayID == "" {
		return PaymentInstructions{}, fmt.Errorf("%s: %w", op, ErrPaymentsDisabled)
	}
	return PaymentInstructions{
		Method:      model.PaymentPayID,
		PayID:       s.payments.PayID,
		AccountName: s.payments.PayIDAccountName,
		AmountCents: b.DepositCents,
		Currency:    s.cfg.Currency,
		Reference:   b.Reference,
		DueBy:       b.StatusChangedAt.Add(s.cfg.DepositWindow).UTC(),
		CardEnabled: s.gateway != nil,
	}, nil
}

// StartCardCheckout opens a card checkout for the deposit of a booking.
func (s *BookingService) StartCardCheckout(ctx context.Context, actor Actor, bookingID uint64) (CheckoutSession, error) {
	const op = "service.booking.StartCardCheckout"
	if s.gateway == nil {
		return CheckoutSession{}, fmt.Errorf("%s: %w", op, ErrPaymentsDisabled)
	}
	b, err := s.Get(ctx, actor, bookingID)
	if err != nil {
		return CheckoutSession{}, err
	}
	if b.Status != booking.StatusDepositPending {
		return CheckoutSession{}, fmt.Errorf("%s: %w: no deposit is due for a booking that is %s",
			op, booking.ErrInvalidTransition, b.Status)
	}
	sess, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		BookingID:     b.ID,
		Reference:     b.Reference,
		AmountCents:   b.DepositCents,
		Currency:      s.cfg.Currency,
		CustomerEmail: b.ClientEmail,
		Description:   fmt.Sprintf("Deposit for booking %s", b.Reference),
	})
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("%s: %w", op, err)
	}
	return sess, nil
}

// ConfirmCardPayment confirms a booking whose deposit was paid by card.
// Repeated deliveries for the same payment are accepted without effect.
func (s *BookingService) ConfirmCardPayment(ctx context.Context, bookingID uint64, paymentRef string) (model.Booking, error) {
	const op = "service.booking.ConfirmCardPayment"
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	if b.Status == booking.StatusConfirmed && b.PaymentRef == paymentRef {
		return b, nil
	}
	return s.Transition(ctx, SystemActor, bookingID, booking.ActionCardPayment, TransitionInput{PaymentRef: paymentRef})
}

// HandleCardWebhook verifies a card provider webhook and confirms the
// booking it pays for.  Irrelevant events are ignored.
func (s *BookingService) HandleCardWebhook(ctx context.Context, payload []byte, signature string) error {
	const op = "service.booking.HandleCardWebhook"
	if s.gateway == nil {
		return fmt.Errorf("%s: %w", op, ErrPaymentsDisabled)
	}
	ev, ok, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil
	}
	if _, err := s.ConfirmCardPayment(ctx, ev.BookingID, ev.PaymentRef); err != nil {
		return err
	}
	return nil
}

// ExpireStale cancels bookings that waited too long for the performer or
// for the deposit.  It returns how many bookings were expired.
func (s *BookingService) ExpireStale(ctx context.Context) (int, error) {
	const op = "service.booking.ExpireStale"
	log := s.log.With(slog.String("op", op))

	now := s.now().UTC()
	sweeps := []struct {
		status booking.Status
		window time.Duration
		reason string
	}{
		{booking.StatusPendingAcceptance, s.cfg.AcceptanceWindow, "expired: performer did not respond in time"},
		{booking.StatusDepositPending, s.cfg.DepositWindow, "expired: deposit not received in time"},
	}

	expired := 0
	for _, sw := range sweeps {
		if sw.window <= 0 {
			continue
		}
		stale, err := s.bookings.ListStale(ctx, sw.status, now.Add(-sw.window))
		if err != nil {
			return expired, fmt.Errorf("%s: %w", op, err)
		}
		for _, b := range stale {
			if ctx.Err() != nil {
				return expired, ctx.Err()
			}
			_, err := s.Transition(ctx, SystemActor, b.ID, booking.ActionExpire, TransitionInput{Reason: sw.reason})
			switch {
			case err == nil:
				expired++
			case errors.Is(err, repository.ErrStaleStatus):
				// moved on since it was listed
			default:
				log.Error("failed to expire booking", slog.Uint64("booking_id", b.ID), logging.Err(err))
			}
		}
	}
	metrics.RecordExpired(expired)
	if expired > 0 {
		log.Info("expired stale bookings", slog.Int("count", expired))
	}
	return expired, nil
}

// authorize checks that actor may see or act on b and returns the
// performer when the actor is one.
func (s *BookingService) authorize(ctx context.Context, actor Actor, b model.Booking) (model.Performer, error) {
	switch actor.Role {
	case booking.RoleAdmin, booking.RoleSystem:
		return model.Performer{}, nil
	case booking.RoleClient:
		if b.ClientID != actor.UserID {
			return model.Performer{}, ErrNotParticipant
		}
		return model.Performer{}, nil
	case booking.RolePerformer:
		p, err := s.performers.GetByUserID(ctx, actor.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return model.Performer{}, ErrNotParticipant
		}
		if err != nil {
			return model.Performer{}, err
		}
		if p.ID != b.PerformerID {
			return model.Performer{}, ErrNotParticipant
		}
		return p, nil
	}
	return model.Performer{}, ErrNotParticipant
}

// autoVet reports whether the booking's client skips manual vetting: a
// client account with a confirmed or completed booking that is not on the
// Do-Not-Serve list.  History is keyed on the account, never on the
// contact details typed into the request.
func (s *BookingService) autoVet(ctx context.Context, b model.Booking) (bool, error) {
	if !s.cfg.AutoVetEnabled {
		return false, nil
	}
	verified, err := s.bookings.HasVerifiedHistory(ctx, b.ClientID)
	if err != nil || !verified {
		return false, err
	}
	blocked, err := s.blocklist.IsBlocked(ctx, b.ClientEmail, b.ClientPhone)
	if err != nil {
		return false, err
	}
	return !blocked, nil
}

func (s *BookingService) audit(bookingID uint64, actor Actor, action booking.Action, from, to booking.Status, details string, at time.Time) model.AuditLog {
	a := model.AuditLog{
		BookingID:  bookingID,
		ActorRole:  string(actor.Role),
		Action:     string(action),
		FromStatus: string(from),
		ToStatus:   string(to),
		Details:    details,
		CreatedAt:  at,
	}
	if actor.UserID != 0 {
		id := actor.UserID
		a.ActorID = &id
	}
	return a
}

func (s *BookingService) event(b model.Booking, p model.Performer, from, to booking.Status, action booking.Action, role booking.Role, reason string) queue.BookingStatusChanged {
	return queue.BookingStatusChanged{
		BookingID:      b.ID,
		Reference:      b.Reference,
		FromStatus:     string(from),
		ToStatus:       string(to),
		Action:         string(action),
		ActorRole:      string(role),
		ClientName:     b.ClientName,
		ClientPhone:    b.ClientPhone,
		ClientEmail:    b.ClientEmail,
		PerformerID:    b.PerformerID,
		PerformerName:  p.StageName,
		PerformerPhone: p.Phone,
		EventDate:      b.EventDate.Format("2006-01-02"),
		EventTime:      b.EventTime,
		TotalCents:     b.TotalCostCents,
		DepositCents:   b.DepositCents,
		Currency:       s.cfg.Currency,
		Reason:         reason,
		OccurredAt:     s.now().UTC(),
	}
}

// publish sends ev to the broker, falling back to in-process delivery.
func (s *BookingService) publish(ctx context.Context, ev queue.BookingStatusChanged) {
	log := s.log.With(slog.String("op", "service.booking.publish"), slog.String("reference", ev.Reference))
	if s.publisher != nil {
		err := s.publisher.PublishStatusChanged(ctx, ev)
		if err == nil {
			return
		}
		log.Warn("publish failed, notifying directly", logging.Err(err))
	}
	if s.fallback != nil {
		if err := s.fallback.Handle(context.WithoutCancel(ctx), ev); err != nil {
			log.Error("direct notification failed", logging.Err(err))
		}
	}
}

func newReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "BK-" + strings.ToUpper(id[:8])
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func containsAll(have, want []uint64) bool {
	set := make(map[uint64]struct{}, len(have))
	for _, id := range have {
		set[id] = struct{}{}
	}
	for _, id := range want {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
