package router

import (
	"github.com/labstack/echo/v4"

	"github.com/flavor-entertainers/booking-platform/internal/booking"
	"github.com/flavor-entertainers/booking-platform/internal/handler"
	"github.com/flavor-entertainers/booking-platform/internal/middleware"
	"github.com/flavor-entertainers/booking-platform/internal/model"
)

// RegisterClient registers CLIENT endpoints under /v1: creating bookings,
// listing their own, paying the deposit and cancelling.
func RegisterClient(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleClient),
	)
	g.POST("/bookings", b.Create)
	g.GET("/my/bookings", b.ListMine)

	// deposit
	g.GET("/bookings/:id/payment", b.PaymentInfo)
	g.POST("/bookings/:id/checkout", b.Checkout)
	g.POST("/bookings/:id/deposit", b.Transition(booking.ActionSubmitDeposit))

	g.POST("/bookings/:id/cancel", b.Transition(booking.ActionCancel))
}
