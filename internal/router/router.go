// Package router registers the HTTP routes of the booking API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/flavor-entertainers/booking-platform/internal/handler"
	"github.com/flavor-entertainers/booking-platform/internal/middleware"
	"github.com/flavor-entertainers/booking-platform/internal/model"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Bookings *handler.BookingHandler
	Catalog  *handler.CatalogHandler
	DNS      *handler.DNSHandler
	Comms    *handler.CommunicationHandler
}

// Options carries the route-level middleware built from configuration.
// Cache and Purge may be nil.
type Options struct {
	JWTSecret string
	Cache     echo.MiddlewareFunc // response cache for public catalog GETs
	Purge     echo.MiddlewareFunc // drops cached responses after catalog writes
}

// Register mounts every route on e.
func Register(e *echo.Echo, h Handlers, opt Options) {
	RegisterAuth(e, h.Auth, opt.JWTSecret)
	RegisterPublic(e, h, opt.Cache)
	RegisterShared(e, h, opt.JWTSecret)
	RegisterClient(e, h.Bookings, opt.JWTSecret)
	RegisterPerformer(e, h, opt)
	RegisterAdmin(e, h, opt)
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// profile endpoints under /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// no JWT required: a refresh token in the body is enough
	g.POST("/logout", a.Logout)

	jwt := middleware.JWTAuth(jwtSecret)
	e.GET("/v1/me", a.Me, jwt)
	e.PATCH("/v1/me", a.UpdateMe, jwt)
}

// RegisterPublic registers unauthenticated routes: the catalog, which is
// cached when cache is set, and the Stripe webhook.
func RegisterPublic(e *echo.Echo, h Handlers, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	e.GET("/v1/services", h.Catalog.ListServices, mw...)
	e.GET("/v1/performers", h.Catalog.ListPerformers, mw...)
	e.GET("/v1/performers/:id", h.Catalog.GetPerformer, mw...)

	// Stripe authenticates with the signature header.
	e.POST("/v1/webhooks/stripe", h.Bookings.StripeWebhook)
}

// RegisterShared registers routes any authenticated role may call.
// Ownership is checked by the booking service.
func RegisterShared(e *echo.Echo, h Handlers, jwtSecret string) {
	g := e.Group("/v1/bookings/:id",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleClient, model.RolePerformer, model.RoleAdmin),
	)
	g.GET("", h.Bookings.Get)
	g.GET("/history", h.Bookings.History)
	g.GET("/communications", h.Comms.ListForBooking)
}
