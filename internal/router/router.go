package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ballpark-reservation/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
    e.GET("/healthz", h.Health)
}

// RegisterPublic registers the read-only catalog endpoints.  The catalog is
// static for the life of the process, so both routes go through the
// response cache.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler, cache echo.MiddlewareFunc) {
    g := e.Group("/v1", cache)
    g.GET("/zones", p.Zones)
    g.GET("/zones/:id/seats", p.ZoneSeats)
}

// Purchase bundles the handlers behind the authenticated purchase routes.
type Purchase struct {
    Gate         *handler.GateHandler
    Seats        *handler.SeatHandler
    Assign       *handler.AssignHandler
    Senior       *handler.SeniorHandler
    Reservations *handler.ReservationHandler
}
