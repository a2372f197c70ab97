package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flavor-entertainers/booking-platform/internal/booking"
	"github.com/flavor-entertainers/booking-platform/internal/model"
	"github.com/flavor-entertainers/booking-platform/internal/queue"
	"github.com/flavor-entertainers/booking-platform/internal/repository"
)

// memStore is an in-memory BookingStore with the same compare-and-set
// semantics as the MySQL repository.
type memStore struct {
	mu       sync.Mutex
	nextID   uint64
	bookings map[uint64]model.Booking
	audit    []model.AuditLog
	verified map[uint64]bool
	applyErr error
}

func newMemStore() *memStore {
	return &memStore{bookings: map[uint64]model.Booking{}, verified: map[uint64]bool{}}
}

func (m *memStore) put(b model.Booking) model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		m.nextID++
		b.ID = m.nextID + 100
	}
	m.bookings[b.ID] = b
	return b
}

func (m *memStore) CreateGroup(_ context.Context, bs []*model.Booking, actorID uint64, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bs {
		m.nextID++
		b.ID = m.nextID
		m.bookings[b.ID] = *b
		id := actorID
		m.audit = append(m.audit, model.AuditLog{BookingID: b.ID, ActorID: &id, ActorRole: role,
			Action: string(booking.ActionCreate), ToStatus: string(b.Status)})
	}
	return nil
}

func (m *memStore) ApplyTransition(_ context.Context, t repository.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[t.BookingID]
	if !ok {
		return repository.ErrNotFound
	}
	if b.Status != t.From {
		return repository.ErrStaleStatus
	}
	if m.applyErr != nil {
		return m.applyErr
	}
	b.Status = t.To
	b.StatusChangedAt = t.At
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
	m.bookings[b.ID] = b
	m.audit = append(m.audit, t.Audit...)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return b, repository.ErrNotFound
	}
	return b, nil
}

func (m *memStore) filter(keep func(model.Booking) bool) []model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Booking{}
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ListByClient(_ context.Context, clientID uint64) ([]model.Booking, error) {
	return m.filter(func(b model.Booking) bool { return b.ClientID == clientID }), nil
}

func (m *memStore) ListByPerformer(_ context.Context, performerID uint64) ([]model.Booking, error) {
	return m.filter(func(b model.Booking) bool { return b.PerformerID == performerID }), nil
}

func (m *memStore) List(_ context.Context, f model.BookingFilter) ([]model.Booking, error) {
	return m.filter(func(b model.Booking) bool { return f.Status == "" || b.Status == f.Status }), nil
}

func (m *memStore) ListStale(_ context.Context, status booking.Status, cutoff time.Time) ([]model.Booking, error) {
	return m.filter(func(b model.Booking) bool { return b.Status == status && b.StatusChangedAt.Before(cutoff) }), nil
}

func (m *memStore) HasVerifiedHistory(_ context.Context, clientID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verified[clientID], nil
}

func (m *memStore) Stats(context.Context) (model.BookingStats, error) {
	st := model.BookingStats{ByStatus: map[booking.Status]int{}}
	for _, b := range m.filter(func(model.Booking) bool { return true }) {
		st.ByStatus[b.Status]++
	}
	return st, nil
}

func (m *memStore) AuditTrail(_ context.Context, bookingID uint64) ([]model.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.AuditLog{}
	for _, a := range m.audit {
		if a.BookingID == bookingID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memCatalog map[uint64]model.Service

func (c memCatalog) GetByIDs(_ context.Context, ids []uint64) ([]model.Service, error) {
	out := []model.Service{}
	for _, id := range ids {
		if s, ok := c[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

type memPerformers map[uint64]model.Performer

func (p memPerformers) GetByID(_ context.Context, id uint64) (model.Performer, error) {
	if v, ok := p[id]; ok {
		return v, nil
	}
	return model.Performer{}, repository.ErrNotFound
}

func (p memPerformers) GetByIDs(ctx context.Context, ids []uint64) ([]model.Performer, error) {
	out := []model.Performer{}
	for _, id := range ids {
		if v, ok := p[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (p memPerformers) GetByUserID(_ context.Context, userID uint64) (model.Performer, error) {
	for _, v := range p {
		if v.UserID != nil && *v.UserID == userID {
			return v, nil
		}
	}
	return model.Performer{}, repository.ErrNotFound
}

type memBlocklist struct {
	emails map[string]bool
	err    error
}

func (b memBlocklist) IsBlocked(_ context.Context, email, _ string) (bool, error) {
	return b.emails[strings.ToLower(strings.TrimSpace(email))], b.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingStatusChanged
	err    error
}

func (r *recordingPublisher) PublishStatusChanged(_ context.Context, ev queue.BookingStatusChanged) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Handle(ctx context.Context, ev queue.BookingStatusChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type fakeMessenger struct {
	sent []string
	err  error
}

func (f *fakeMessenger) Channel() string { return model.ChannelSMS }

func (f *fakeMessenger) Send(_ context.Context, to, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, to+": "+body)
	return "SM" + to, nil
}

type memComms struct {
	items []model.Communication
	err   error
}

func (m *memComms) Create(_ context.Context, c model.Communication) (uint64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.items = append(m.items, c)
	return uint64(len(m.items)), nil
}

type fakeGateway struct {
	req     CheckoutRequest
	event   CardPaymentEvent
	ok      bool
	err     error
	created bool
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (CheckoutSession, error) {
	g.req = req
	g.created = true
	return CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, g.err
}

func (g *fakeGateway) ParseWebhook([]byte, string) (CardPaymentEvent, bool, error) {
	return g.event, g.ok, g.err
}

var errBoom = errors.New("boom")
