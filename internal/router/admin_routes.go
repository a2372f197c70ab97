package router

import (
	"github.com/labstack/echo/v4"

	"github.com/flavor-entertainers/booking-platform/internal/booking"
	"github.com/flavor-entertainers/booking-platform/internal/middleware"
	"github.com/flavor-entertainers/booking-platform/internal/model"
)

// RegisterAdmin registers ADMIN endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, h Handlers, opt Options) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(opt.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Bookings ----
	g.GET("/bookings", h.Bookings.ListAll)
	g.GET("/stats", h.Bookings.Stats)
	for path, action := range map[string]booking.Action{
		"approve-vetting": booking.ActionApproveVetting,
		"reject-vetting":  booking.ActionRejectVetting,
		"verify-deposit":  booking.ActionVerifyDeposit,
		"reject-deposit":  booking.ActionRejectDeposit,
		"cancel":          booking.ActionCancel,
		"complete":        booking.ActionComplete,
		"accept":          booking.ActionAccept,
		"decline":         booking.ActionDecline,
	} {
		g.POST("/bookings/:id/"+path, h.Bookings.Transition(action))
	}

	// ---- Catalog ----
	// writes invalidate the public catalog cache
	catalog := g.Group("")
	if opt.Purge != nil {
		catalog.Use(opt.Purge)
	}
	catalog.GET("/services", h.Catalog.AdminListServices)
	catalog.POST("/services", h.Catalog.CreateService)
	catalog.PUT("/services/:id", h.Catalog.UpdateService)
	catalog.DELETE("/services/:id", h.Catalog.DeactivateService)
	catalog.GET("/performers", h.Catalog.AdminListPerformers)
	catalog.POST("/performers", h.Catalog.CreatePerformer)
	catalog.PATCH("/performers/:id", h.Catalog.UpdatePerformer)
	catalog.DELETE("/performers/:id", h.Catalog.DeletePerformer)

	// ---- Do-Not-Serve ----
	g.GET("/dns", h.DNS.List)
	g.POST("/dns", h.DNS.Submit)
	g.POST("/dns/:id/approve", h.DNS.Review(model.DNSApproved))
	g.POST("/dns/:id/reject", h.DNS.Review(model.DNSRejected))
	g.DELETE("/dns/:id", h.DNS.Delete)

	// ---- Communications ----
	g.GET("/communications", h.Comms.ListRecent)
	g.POST("/communications", h.Comms.Send)
}
