package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/ballpark-reservation/internal/config"
    "github.com/iliyamo/ballpark-reservation/internal/utils"
)

const secret = "test-secret"

func newRedis(t *testing.T) *redis.Client {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return rdb
}

func bearer(t *testing.T, userID uint64, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, userID, role, time.Hour)
    if err != nil {
        t.Fatal(err)
    }
    return "Bearer " + tok.Token
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    if auth != "" {
        req.Header.Set("Authorization", auth)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuthAndRole(t *testing.T) {
    e := echo.New()
    e.GET("/me", func(c echo.Context) error {
        id, ok := UserID(c)
        if !ok {
            return c.NoContent(http.StatusTeapot)
        }
        return c.JSON(http.StatusOK, echo.Map{"id": id})
    }, JWTAuth(secret), RequireRole("CUSTOMER"))

    for _, tc := range []struct {
        name string
        auth string
        want int
    }{
        {"no header", "", http.StatusUnauthorized},
        {"garbage", "Bearer nope", http.StatusUnauthorized},
        {"wrong role", bearer(t, 7, "ADMIN"), http.StatusForbidden},
        {"customer", bearer(t, 7, "CUSTOMER"), http.StatusOK},
    } {
        t.Run(tc.name, func(t *testing.T) {
            rec := serve(e, http.MethodGet, "/me", tc.auth)
            if rec.Code != tc.want {
                t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
            }
        })
    }
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
    rdb := newRedis(t)
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            time.Hour,
        KeyStrategy:    "user_route",
        Prefix:         "rl",
    }
    e := echo.New()
    e.POST("/hold", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
        JWTAuth(secret), NewTokenBucket(cfg, rdb))

    alice := bearer(t, 1, "CUSTOMER")
    for i := 0; i < 2; i++ {
        if rec := serve(e, http.MethodPost, "/hold", alice); rec.Code != http.StatusNoContent {
            t.Fatalf("request %d status = %d", i, rec.Code)
        }
    }
    rec := serve(e, http.MethodPost, "/hold", alice)
    if rec.Code != http.StatusTooManyRequests {
        t.Fatalf("third request status = %d, want 429", rec.Code)
    }
    if rec.Header().Get("Retry-After") == "" {
        t.Error("missing Retry-After")
    }
    // Buckets are per user.
    if rec := serve(e, http.MethodPost, "/hold", bearer(t, 2, "CUSTOMER")); rec.Code != http.StatusNoContent {
        t.Errorf("other user status = %d", rec.Code)
    }
}

func TestRedisCacheHit(t *testing.T) {
    rdb := newRedis(t)
    cfg := config.CacheConfig{
        Enabled:     true,
        Methods:     map[string]bool{http.MethodGet: true},
        TTL:         time.Minute,
        KeyStrategy: "route_query",
        Prefix:      "cache:test",
    }
    calls := 0
    e := echo.New()
    e.GET("/zones/:id", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"zone": c.Param("id")})
    }, NewRedisCache(cfg, rdb))

    first := serve(e, http.MethodGet, "/zones/A", "")
    second := serve(e, http.MethodGet, "/zones/A", "")
    if first.Header().Get("X-Cache") != "MISS" || second.Header().Get("X-Cache") != "HIT" {
        t.Fatalf("X-Cache = %q then %q", first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
    }
    if first.Body.String() != second.Body.String() {
        t.Errorf("cached body differs: %q vs %q", first.Body.String(), second.Body.String())
    }
    if ct := second.Header().Get(echo.HeaderContentType); ct != first.Header().Get(echo.HeaderContentType) {
        t.Errorf("cached content type = %q", ct)
    }
    serve(e, http.MethodGet, "/zones/B", "")
    if calls != 2 {
        t.Errorf("handler calls = %d, want 2", calls)
    }
}

func TestRequestID(t *testing.T) {
    e := echo.New()
    e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, c.Get("request_id").(string)) }, RequestID())

    rec := serve(e, http.MethodGet, "/", "")
    id := rec.Header().Get(RequestIDHeader)
    if len(id) < 4 || id[:3] != "rq-" || rec.Body.String() != id {
        t.Fatalf("generated id = %q body = %q", id, rec.Body.String())
    }

    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set(RequestIDHeader, "client-1")
    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    if rec.Header().Get(RequestIDHeader) != "client-1" {
        t.Errorf("client id not reused: %q", rec.Header().Get(RequestIDHeader))
    }
}
