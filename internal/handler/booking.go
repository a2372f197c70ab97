package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/flavor-entertainers/booking-platform/internal/booking"
	"github.com/flavor-entertainers/booking-platform/internal/middleware"
	"github.com/flavor-entertainers/booking-platform/internal/model"
	"github.com/flavor-entertainers/booking-platform/internal/service"
)

// BookingWorkflow is the part of service.BookingService the HTTP layer
// uses.
type BookingWorkflow interface {
	Create(ctx context.Context, clientID uint64, req service.CreateRequest) (service.CreateResult, error)
	Transition(ctx context.Context, actor service.Actor, bookingID uint64, action booking.Action, in service.TransitionInput) (model.Booking, error)
	Get(ctx context.Context, actor service.Actor, bookingID uint64) (model.Booking, error)
	History(ctx context.Context, actor service.Actor, bookingID uint64) ([]model.AuditLog, error)
	ListForClient(ctx context.Context, clientID uint64) ([]model.Booking, error)
	ListForPerformer(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListAll(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	Stats(ctx context.Context) (model.BookingStats, error)
	PaymentInstructions(ctx context.Context, actor service.Actor, bookingID uint64) (service.PaymentInstructions, error)
	StartCardCheckout(ctx context.Context, actor service.Actor, bookingID uint64) (service.CheckoutSession, error)
	HandleCardWebhook(ctx context.Context, payload []byte, signature string) error
}

// BookingHandler serves the booking endpoints of every role.
type BookingHandler struct {
	Bookings BookingWorkflow
}

func NewBookingHandler(b BookingWorkflow) *BookingHandler {
	return &BookingHandler{Bookings: b}
}

// bookingView is a booking together with what the caller can do next.
type bookingView struct {
	model.Booking
	BalanceDueCents int64            `json:"balance_due_cents"`
	AllowedActions  []booking.Action `json:"allowed_actions"`
}

func viewOf(b model.Booking, role booking.Role) bookingView {
	actions := booking.AllowedActions(b.Status, role)
	if actions == nil {
		actions = []booking.Action{}
	}
	return bookingView{Booking: b, BalanceDueCents: b.BalanceDueCents(), AllowedActions: actions}
}

// Create handles POST /v1/bookings.  One booking is created per requested
// performer.
func (h *BookingHandler) Create(c echo.Context) error {
	clientID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req service.CreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	res, err := h.Bookings.Create(c.Request().Context(), clientID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Get handles GET /v1/bookings/:id for participants and admins.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	actor := actorFrom(c)
	b, err := h.Bookings.Get(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(b, actor.Role))
}

// History handles GET /v1/bookings/:id/history.
func (h *BookingHandler) History(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	logs, err := h.Bookings.History(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}

// ListMine handles GET /v1/my/bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	id, _ := middleware.UserID(c)
	out, err := h.Bookings.ListForClient(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListForPerformer handles GET /v1/performer/bookings.
func (h *BookingHandler) ListForPerformer(c echo.Context) error {
	id, _ := middleware.UserID(c)
	out, err := h.Bookings.ListForPerformer(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListAll handles GET /v1/admin/bookings with optional status,
// performer_id, client_email, limit and offset query parameters.
func (h *BookingHandler) ListAll(c echo.Context) error {
	f := model.BookingFilter{
		Status:      booking.Status(strings.ToLower(c.QueryParam("status"))),
		ClientEmail: strings.TrimSpace(c.QueryParam("client_email")),
	}
	if f.Status != "" && !f.Status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	var err error
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		return writeError(c, err)
	}
	if f.Offset, err = queryInt(c, "offset"); err != nil {
		return writeError(c, err)
	}
	if raw := c.QueryParam("performer_id"); raw != "" {
		pid, err := queryInt(c, "performer_id")
		if err != nil {
			return writeError(c, err)
		}
		f.PerformerID = uint64(pid)
	}
	out, err := h.Bookings.ListAll(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Stats handles GET /v1/admin/stats.
func (h *BookingHandler) Stats(c echo.Context) error {
	st, err := h.Bookings.Stats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

type transitionReq struct {
	Reason  string `json:"reason" validate:"max=1000"`
	Receipt string `json:"receipt" validate:"max=1000"`
}

// Transition returns a handler that applies action to the booking in the
// :id path parameter on behalf of the caller.  The body is optional and
// may carry a reason or a deposit receipt.
func (h *BookingHandler) Transition(action booking.Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return writeError(c, err)
		}
		var req transitionReq
		if c.Request().ContentLength != 0 {
			if err := bindAndValidate(c, &req); err != nil {
				return writeError(c, err)
			}
		}
		actor := actorFrom(c)
		b, err := h.Bookings.Transition(c.Request().Context(), actor, id, action, service.TransitionInput{
			Reason:  strings.TrimSpace(req.Reason),
			Receipt: strings.TrimSpace(req.Receipt),
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, viewOf(b, actor.Role))
	}
}
