package router

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ballpark-reservation/internal/handler"
)

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func TestRoutesRegistered(t *testing.T) {
    e := echo.New()
    RegisterRoutes(e, handler.NewHealthHandler(nil))
    RegisterPublic(e, &handler.CatalogHandler{}, passthrough)
    RegisterCustomer(e, Purchase{}, "secret", passthrough)

    have := map[string]bool{}
    for _, r := range e.Routes() {
        have[r.Method+" "+r.Path] = true
    }
    for _, want := range []string{
        "GET /healthz",
        "GET /v1/zones",
        "GET /v1/zones/:id/seats",
        "POST /v1/games/:id/gate",
        "GET /v1/games/:id/gate",
        "DELETE /v1/games/:id/gate",
        "POST /v1/games/:id/gate/extend",
        "POST /v1/games/:id/holds",
        "DELETE /v1/games/:id/holds/:seat",
        "DELETE /v1/games/:id/holds",
        "POST /v1/games/:id/seats/status",
        "POST /v1/games/:id/confirm",
        "POST /v1/games/:id/auto-assign",
        "POST /v1/games/:id/senior",
        "GET /v1/my-reservations",
    } {
        if !have[want] {
            t.Errorf("route %s not registered", want)
        }
    }
}

func TestPurchaseRoutesRequireToken(t *testing.T) {
    e := echo.New()
    RegisterCustomer(e, Purchase{}, "secret", passthrough)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/games/1/confirm", nil))
    if rec.Code != http.StatusUnauthorized {
        t.Errorf("status = %d, want 401", rec.Code)
    }
}
