package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/flavor-entertainers/booking-platform/internal/booking"
	"github.com/flavor-entertainers/booking-platform/internal/middleware"
	"github.com/flavor-entertainers/booking-platform/internal/model"
	"github.com/flavor-entertainers/booking-platform/internal/repository"
	"github.com/flavor-entertainers/booking-platform/internal/service"
	"github.com/flavor-entertainers/booking-platform/internal/utils"
)

var errBoom = errors.New("boom")

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// as stands in for JWTAuth in handler tests.
func as(uid uint64, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.CtxUserID, uid)
			c.Set(middleware.CtxRole, role)
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// ---- users and tokens ----

type memUsers struct {
	mu         sync.Mutex
	byID       map[uint64]model.User
	nextID     uint64
	perfs      *memPerformers
	profileErr error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}} }

func (m *memUsers) Create(_ context.Context, u model.User, password string, cost int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == u.Email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	m.nextID++
	u.ID = m.nextID
	u.PasswordHash = hash
	u.IsActive = true
	m.byID[u.ID] = u
	return u.ID, nil
}

// CreatePerformer mirrors the repository transaction: the account is
// removed again when the profile insert fails.
func (m *memUsers) CreatePerformer(ctx context.Context, u model.User, password string, cost int, p model.Performer) (uint64, error) {
	u.Role = model.RolePerformer
	uid, err := m.Create(ctx, u, password, cost)
	if err != nil {
		return 0, err
	}
	err = m.profileErr
	if err == nil && m.perfs != nil {
		p.UserID = &uid
		_, err = m.perfs.Create(ctx, p)
	}
	if err != nil {
		m.mu.Lock()
		delete(m.byID, uid)
		m.mu.Unlock()
		return 0, err
	}
	return uid, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id uint64, fullName, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.FullName, u.Phone = fullName, phone
	m.byID[id] = u
	return nil
}

type memTokens struct {
	mu      sync.Mutex
	owner   map[string]uint64
	revoked map[string]bool
}

func newMemTokens() *memTokens {
	return &memTokens{owner: map[string]uint64{}, revoked: map[string]bool{}}
}

func (m *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owner[hash] = userID
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid, ok := m.owner[hash]
	if !ok || m.revoked[hash] {
		return 0, repository.ErrNotFound
	}
	return uid, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.owner[hash]; !ok || m.revoked[hash] {
		return false, nil
	}
	m.revoked[hash] = true
	return true, nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, uid := range m.owner {
		if uid == userID {
			m.revoked[h] = true
		}
	}
	return nil
}

func (m *memTokens) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for h := range m.owner {
		if !m.revoked[h] {
			n++
		}
	}
	return n
}

// ---- catalog ----

type memPerformers struct {
	mu     sync.Mutex
	rows   map[uint64]model.Performer
	nextID uint64
	delErr error
}

func newMemPerformers(ps ...model.Performer) *memPerformers {
	m := &memPerformers{rows: map[uint64]model.Performer{}}
	for _, p := range ps {
		m.rows[p.ID] = p
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
	}
	return m
}

func (m *memPerformers) List(_ context.Context, f model.PerformerFilter) ([]model.Performer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Performer{}
	for id := uint64(1); id <= m.nextID; id++ {
		p, ok := m.rows[id]
		if !ok || (f.Status != "" && !strings.EqualFold(p.Status, f.Status)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memPerformers) GetByID(_ context.Context, id uint64) (model.Performer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return model.Performer{}, repository.ErrNotFound
	}
	return p, nil
}

func (m *memPerformers) GetByUserID(_ context.Context, userID uint64) (model.Performer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return model.Performer{}, repository.ErrNotFound
}

func (m *memPerformers) Create(_ context.Context, p model.Performer) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	if p.ServiceIDs == nil {
		p.ServiceIDs = []uint64{}
	}
	m.rows[p.ID] = p
	return p.ID, nil
}

func (m *memPerformers) Update(_ context.Context, p model.Performer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.rows[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if p.ServiceIDs == nil {
		p.ServiceIDs = old.ServiceIDs
	}
	m.rows[p.ID] = p
	return nil
}

func (m *memPerformers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memServices struct {
	mu     sync.Mutex
	rows   map[uint64]model.Service
	nextID uint64
}

func newMemServices(ss ...model.Service) *memServices {
	m := &memServices{rows: map[uint64]model.Service{}}
	for _, s := range ss {
		m.rows[s.ID] = s
		if s.ID > m.nextID {
			m.nextID = s.ID
		}
	}
	return m
}

func (m *memServices) List(_ context.Context, activeOnly bool) ([]model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Service{}
	for id := uint64(1); id <= m.nextID; id++ {
		s, ok := m.rows[id]
		if ok && (s.IsActive || !activeOnly) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memServices) GetByID(_ context.Context, id uint64) (model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return model.Service{}, repository.ErrNotFound
	}
	return s, nil
}

func (m *memServices) Create(_ context.Context, s model.Service) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	m.rows[s.ID] = s
	return s.ID, nil
}

func (m *memServices) Update(_ context.Context, s model.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[s.ID]; !ok {
		return repository.ErrNotFound
	}
	m.rows[s.ID] = s
	return nil
}

func (m *memServices) Deactivate(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsActive = false
	m.rows[id] = s
	return nil
}

// ---- bookings ----

// fakeWorkflow records the calls it receives.  Methods a test does not
// stub panic through the nil embedded interface.
type fakeWorkflow struct {
	BookingWorkflow

	booking model.Booking
	err     error

	gotClientID uint64
	gotCreate   service.CreateRequest
	gotActor    service.Actor
	gotAction   booking.Action
	gotInput    service.TransitionInput
	gotFilter   model.BookingFilter
	gotPayload  []byte
	gotSig      string
}

func (f *fakeWorkflow) Create(_ context.Context, clientID uint64, req service.CreateRequest) (service.CreateResult, error) {
	f.gotClientID, f.gotCreate = clientID, req
	if f.err != nil {
		return service.CreateResult{}, f.err
	}
	return service.CreateResult{Bookings: []model.Booking{f.booking}}, nil
}

func (f *fakeWorkflow) Transition(_ context.Context, actor service.Actor, id uint64, action booking.Action, in service.TransitionInput) (model.Booking, error) {
	f.gotActor, f.gotAction, f.gotInput = actor, action, in
	if f.err != nil {
		return model.Booking{}, f.err
	}
	b := f.booking
	b.ID = id
	return b, nil
}

func (f *fakeWorkflow) Get(_ context.Context, actor service.Actor, id uint64) (model.Booking, error) {
	f.gotActor = actor
	if f.err != nil {
		return model.Booking{}, f.err
	}
	b := f.booking
	b.ID = id
	return b, nil
}

func (f *fakeWorkflow) ListAll(_ context.Context, flt model.BookingFilter) ([]model.Booking, error) {
	f.gotFilter = flt
	return []model.Booking{f.booking}, f.err
}

func (f *fakeWorkflow) HandleCardWebhook(_ context.Context, payload []byte, sig string) error {
	f.gotPayload, f.gotSig = payload, sig
	return f.err
}

func (f *fakeWorkflow) PaymentInstructions(_ context.Context, actor service.Actor, id uint64) (service.PaymentInstructions, error) {
	f.gotActor = actor
	if f.err != nil {
		return service.PaymentInstructions{}, f.err
	}
	return service.PaymentInstructions{Method: model.PaymentPayID, PayID: "pay@example.com", AmountCents: f.booking.DepositCents}, nil
}

// ---- dns and communications ----

type memDNS struct {
	mu     sync.Mutex
	rows   map[uint64]model.DoNotServeEntry
	nextID uint64
}

func newMemDNS() *memDNS { return &memDNS{rows: map[uint64]model.DoNotServeEntry{}} }

func (m *memDNS) Create(_ context.Context, e model.DoNotServeEntry) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	m.rows[e.ID] = e
	return e.ID, nil
}

func (m *memDNS) List(_ context.Context, status string) ([]model.DoNotServeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.DoNotServeEntry{}
	for id := uint64(1); id <= m.nextID; id++ {
		e, ok := m.rows[id]
		if ok && (status == "" || e.Status == status) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memDNS) GetByID(_ context.Context, id uint64) (model.DoNotServeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return e, repository.ErrNotFound
	}
	return e, nil
}

func (m *memDNS) SetStatus(_ context.Context, id uint64, status string, reviewer uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status, e.ReviewedBy = status, &reviewer
	m.rows[id] = e
	return nil
}

func (m *memDNS) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memComms struct {
	rows []model.Communication
}

func (m *memComms) ListByBooking(_ context.Context, bookingID uint64) ([]model.Communication, error) {
	out := []model.Communication{}
	for _, c := range m.rows {
		if c.BookingID != nil && *c.BookingID == bookingID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memComms) ListRecent(_ context.Context, limit int) ([]model.Communication, error) {
	return m.rows, nil
}

func (m *memComms) SendManual(_ context.Context, senderID uint64, bookingID *uint64, to, body string) (model.Communication, error) {
	c := model.Communication{
		ID: uint64(len(m.rows) + 1), BookingID: bookingID, SenderID: &senderID,
		Recipient: to, Channel: model.ChannelLog, Body: body, Status: model.CommSent,
	}
	m.rows = append(m.rows, c)
	return c, nil
}

func newJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type pingerFunc func() error

func (f pingerFunc) PingContext(context.Context) error { return f() }
