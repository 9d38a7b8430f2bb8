// Package router assembles the Echo instance: middleware, the API routing
// table and the optional pages.
package router

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/littlelemon/restaurant/internal/auth"
	"github.com/littlelemon/restaurant/internal/handler"
	"github.com/littlelemon/restaurant/internal/metrics"
	"github.com/littlelemon/restaurant/internal/middleware"
)

// Route maps one (method, path) pair to its handler.
type Route struct {
	Method  string
	Path    string
	Handler echo.HandlerFunc
}

// Deps are the collaborators the routes are built from.  Metrics,
// RateLimit and Pages are optional.
type Deps struct {
	Menu      *handler.MenuHandler
	Bookings  *handler.BookingHandler
	Auth      *handler.AuthHandler
	Validator auth.TokenValidator
	Health    echo.HandlerFunc
	Metrics   *metrics.Metrics
	RateLimit echo.MiddlewareFunc
	Pages     PageRegistrar
	Logger    *slog.Logger

	// IPExtractor defaults to the peer address; forwarded headers are
	// only honoured when the caller opts in.
	IPExtractor echo.IPExtractor
}

// PageRegistrar mounts the server-rendered front end.
type PageRegistrar interface {
	Register(e *echo.Echo)
}

// ResourceRoutes is the routing table of the authenticated CRUD API,
// relative to /api.
func ResourceRoutes(menu *handler.MenuHandler, bookings *handler.BookingHandler) []Route {
	return []Route{
		{http.MethodGet, "/menu-items", menu.List},
		{http.MethodPost, "/menu-items", menu.Create},
		{http.MethodGet, "/menu-items/:id", menu.Retrieve},
		{http.MethodPut, "/menu-items/:id", menu.Update},
		{http.MethodPatch, "/menu-items/:id", menu.PartialUpdate},
		{http.MethodDelete, "/menu-items/:id", menu.Destroy},

		{http.MethodGet, "/bookings", bookings.List},
		{http.MethodPost, "/bookings", bookings.Create},
		{http.MethodGet, "/bookings/:id", bookings.Retrieve},
		{http.MethodPut, "/bookings/:id", bookings.Update},
		{http.MethodPatch, "/bookings/:id", bookings.PartialUpdate},
		{http.MethodDelete, "/bookings/:id", bookings.Destroy},
	}
}

// TokenRoutes is the routing table of the unauthenticated token gateway.
func TokenRoutes(a *handler.AuthHandler) []Route {
	return []Route{
		{http.MethodPost, "/api/token/login", a.Login},
		{http.MethodPost, "/api/token/refresh", a.Refresh},
		{http.MethodPost, "/auth/users", a.Register},
	}
}

// New builds the Echo instance with every route and middleware.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = d.IPExtractor
	if e.IPExtractor == nil {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	// Clients call the token routes with a trailing "/"; accept both forms.
	e.Pre(echomw.RemoveTrailingSlash())
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
	}
	e.Use(middleware.RequestID())
	if d.Logger != nil {
		e.Use(middleware.RequestLogger(d.Logger))
	}
	e.Use(echomw.Recover())

	if d.Health != nil {
		e.GET("/healthz", d.Health)
	}
	if d.Metrics != nil {
		e.GET("/metrics", d.Metrics.Handler())
	}

	limit := d.RateLimit
	if limit == nil {
		limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	for _, r := range TokenRoutes(d.Auth) {
		e.Add(r.Method, r.Path, r.Handler, limit)
	}

	api := e.Group("/api", limit, middleware.JWTAuth(d.Validator))
	for _, r := range ResourceRoutes(d.Menu, d.Bookings) {
		api.Add(r.Method, r.Path, r.Handler)
	}

	if d.Pages != nil {
		d.Pages.Register(e)
	}
	return e
}
