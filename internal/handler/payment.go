package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flavor-entertainers/booking-platform/internal/booking"
	"github.com/flavor-entertainers/booking-platform/internal/logging"
	"github.com/flavor-entertainers/booking-platform/internal/repository"
)

// maxWebhookBytes bounds Stripe webhook bodies.
const maxWebhookBytes = 64 << 10

// PaymentInfo handles GET /v1/bookings/:id/payment and returns the PayID
// instructions for a booking awaiting its deposit.
func (h *BookingHandler) PaymentInfo(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	pi, err := h.Bookings.PaymentInstructions(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pi)
}

// Checkout handles POST /v1/bookings/:id/checkout and returns the Stripe
// Checkout page the client should be redirected to.
func (h *BookingHandler) Checkout(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	sess, err := h.Bookings.StartCardCheckout(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

// StripeWebhook handles POST /v1/webhooks/stripe.  Deliveries that refer
// to unknown bookings or bookings no longer awaiting a deposit are
// acknowledged so Stripe stops retrying them.
func (h *BookingHandler) StripeWebhook(c echo.Context) error {
	req := c.Request()
	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, maxWebhookBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	err = h.Bookings.HandleCardWebhook(req.Context(), payload, req.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, booking.ErrInvalidTransition):
		slog.WarnContext(req.Context(), "stripe webhook ignored", logging.Err(err))
		return c.JSON(http.StatusOK, echo.Map{"received": true, "ignored": true})
	}
	return writeError(c, err)
}
