package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// HealthHandler reports liveness plus the state of each named dependency.
type HealthHandler struct {
    checks map[string]Check
}

func NewHealthHandler(checks map[string]Check) *HealthHandler {
    return &HealthHandler{checks: checks}
}

// Health is used by load balancers and monitoring systems.  It answers 200
// when every dependency responds and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()
    status, deps := http.StatusOK, make(map[string]string, len(h.checks))
    for name, check := range h.checks {
        if err := check(ctx); err != nil {
            deps[name] = err.Error()
            status = http.StatusServiceUnavailable
            continue
        }
        deps[name] = "ok"
    }
    state := "ok"
    if status != http.StatusOK {
        state = "degraded"
    }
    return c.JSON(status, echo.Map{"status": state, "deps": deps})
}
