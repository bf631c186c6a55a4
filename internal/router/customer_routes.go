package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ballpark-reservation/internal/middleware"
)

// RegisterCustomer registers purchaser endpoints under /v1.  All routes
// require a valid JWT and the CUSTOMER role, and share the token bucket
// limiter, which runs after authentication so buckets are keyed per user.
func RegisterCustomer(e *echo.Echo, p Purchase, jwtSecret string, limit echo.MiddlewareFunc) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("CUSTOMER"),
        limit,
    )

    games := g.Group("/games/:id")
    games.POST("/gate", p.Gate.Enter)
    games.GET("/gate", p.Gate.Status)
    games.DELETE("/gate", p.Gate.Leave)
    games.POST("/gate/extend", p.Gate.Extend)

    games.POST("/holds", p.Seats.Hold)
    games.DELETE("/holds/:seat", p.Seats.Release)
    games.DELETE("/holds", p.Seats.ReleaseAll)
    games.POST("/seats/status", p.Seats.Status)
    games.POST("/confirm", p.Seats.Confirm)

    games.POST("/auto-assign", p.Assign.AutoAssign)
    games.POST("/senior", p.Senior.Book)

    g.GET("/my-reservations", p.Reservations.ListMine)
}
