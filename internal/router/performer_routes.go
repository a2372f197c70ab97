package router

import (
	"github.com/labstack/echo/v4"

	"github.com/flavor-entertainers/booking-platform/internal/booking"
	"github.com/flavor-entertainers/booking-platform/internal/middleware"
	"github.com/flavor-entertainers/booking-platform/internal/model"
)

// RegisterPerformer registers PERFORMER endpoints under /v1.
func RegisterPerformer(e *echo.Echo, h Handlers, opt Options) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(opt.JWTSecret),
		middleware.RequireRole(model.RolePerformer),
	)
	g.GET("/performer/bookings", h.Bookings.ListForPerformer)
	g.POST("/bookings/:id/accept", h.Bookings.Transition(booking.ActionAccept))
	g.POST("/bookings/:id/decline", h.Bookings.Transition(booking.ActionDecline))

	g.GET("/performer/profile", h.Catalog.GetOwnProfile)
	// availability changes show up in the public listings
	var purge []echo.MiddlewareFunc
	if opt.Purge != nil {
		purge = append(purge, opt.Purge)
	}
	g.PATCH("/performer/profile", h.Catalog.UpdateOwnProfile, purge...)

	g.POST("/dns", h.DNS.Submit)
}
