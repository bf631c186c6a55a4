package middleware

import (
    "log"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ballpark-reservation/internal/idgen"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a short random id.  A well formed id
// sent by the client is reused so retries can be correlated across
// instances.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := c.Request().Header.Get(RequestIDHeader)
            if id == "" || len(id) > 64 {
                var err error
                if id, err = idgen.RequestID(); err != nil {
                    log.Printf("request-id: %v", err)
                    return next(c)
                }
            }
            c.Set("request_id", id)
            c.Response().Header().Set(RequestIDHeader, id)
            return next(c)
        }
    }
}
