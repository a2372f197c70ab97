package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/flavor-entertainers/booking-platform/internal/middleware"
	"github.com/flavor-entertainers/booking-platform/internal/model"
	"github.com/flavor-entertainers/booking-platform/internal/service"
)

// CommunicationLister reads the outbound message log.
type CommunicationLister interface {
	ListByBooking(ctx context.Context, bookingID uint64) ([]model.Communication, error)
	ListRecent(ctx context.Context, limit int) ([]model.Communication, error)
}

// ManualSender sends an admin-written message.
type ManualSender interface {
	SendManual(ctx context.Context, senderID uint64, bookingID *uint64, to, body string) (model.Communication, error)
}

// BookingReader checks that the caller may see a booking.
type BookingReader interface {
	Get(ctx context.Context, actor service.Actor, bookingID uint64) (model.Booking, error)
}

// CommunicationHandler serves the message log and manual messages.
type CommunicationHandler struct {
	Log      CommunicationLister
	Sender   ManualSender
	Bookings BookingReader
}

func NewCommunicationHandler(l CommunicationLister, s ManualSender, b BookingReader) *CommunicationHandler {
	return &CommunicationHandler{Log: l, Sender: s, Bookings: b}
}

// ListForBooking handles GET /v1/bookings/:id/communications for the
// booking's participants and admins.
func (h *CommunicationHandler) ListForBooking(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	if _, err := h.Bookings.Get(ctx, actorFrom(c), id); err != nil {
		return writeError(c, err)
	}
	out, err := h.Log.ListByBooking(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListRecent handles GET /v1/admin/communications?limit=.
func (h *CommunicationHandler) ListRecent(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.Log.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type manualMessageReq struct {
	To        string  `json:"to" validate:"required,min=6,max=32"`
	Body      string  `json:"body" validate:"required,max=1600"`
	BookingID *uint64 `json:"booking_id" validate:"omitnil,gt=0"`
}

func (r *manualMessageReq) Normalize() {
	r.To = strings.TrimSpace(r.To)
	r.Body = strings.TrimSpace(r.Body)
}

// Send handles POST /v1/admin/communications.  A message the provider
// refused is still recorded and returned with status FAILED.
func (h *CommunicationHandler) Send(c echo.Context) error {
	var req manualMessageReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	actor := actorFrom(c)
	if req.BookingID != nil {
		if _, err := h.Bookings.Get(ctx, actor, *req.BookingID); err != nil {
			return writeError(c, err)
		}
	}
	sender, _ := middleware.UserID(c)
	comm, err := h.Sender.SendManual(ctx, sender, req.BookingID, strings.TrimSpace(req.To), req.Body)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, comm)
}
