package handler

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "strconv"
    "strings"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/ballpark-reservation/internal/assign"
    "github.com/iliyamo/ballpark-reservation/internal/catalog"
    "github.com/iliyamo/ballpark-reservation/internal/config"
    "github.com/iliyamo/ballpark-reservation/internal/gate"
    "github.com/iliyamo/ballpark-reservation/internal/model"
    "github.com/iliyamo/ballpark-reservation/internal/seatlock"
    "github.com/iliyamo/ballpark-reservation/internal/senior"
    "github.com/iliyamo/ballpark-reservation/internal/store/storetest"
)

const testCatalog = `
[[zones]]
id = "H"
name = "Home Infield"
side = "HOME"
area = "INFIELD"
  [[zones.rows]]
  label = "A"
  first = 1
  last = 6
  [[zones.rows]]
  label = "S"
  first = 1
  last = 2
  senior = true

[[zones]]
id = "W"
side = "AWAY"
  [[zones.rows]]
  label = "B"
  first = 1
  last = 3
`

const gameID = uint64(9)

// asUser stands in for JWTAuth: the X-Test-User header becomes user_id.
func asUser(next echo.HandlerFunc) echo.HandlerFunc {
    return func(c echo.Context) error {
        if u := c.Request().Header.Get("X-Test-User"); u != "" {
            c.Set("user_id", u)
        }
        return next(c)
    }
}

type fixture struct {
    e      *echo.Echo
    ledger *storetest.Ledger
}

func newFixture(t *testing.T) *fixture {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    cat, err := catalog.Parse(testCatalog)
    if err != nil {
        t.Fatal(err)
    }
    games := storetest.Games{gameID: {ID: gameID, HomeTeam: "LG", AwayTeam: "KT", StartsAt: time.Now().Add(24 * time.Hour)}}
    fans := storetest.Fans{Births: map[uint64]time.Time{
        3: time.Now().AddDate(-30, 0, 0),
        4: time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC),
    }}
    ledger := storetest.NewLedger()
    cfg := config.EngineConfig{
        GatePermits:         1,
        GateSessionTTL:      5 * time.Minute,
        GateExtendStep:      time.Minute,
        GateMaxExtensions:   1,
        ReapInterval:        time.Second,
        HoldTTL:             120 * time.Second,
        HoldMaxPerUser:      4,
        BookedTTL:           time.Hour,
        ConfirmGrace:        30 * time.Second,
        SeniorLockWait:      50 * time.Millisecond,
        CounterTTL:          time.Hour,
        GeneralSeniorCutoff: 48 * time.Hour,
        SeniorWindow:        7 * 24 * time.Hour,
    }
    g := gate.New(rdb, gate.FromEngine(cfg))
    locks := seatlock.New(rdb, cat, g, ledger, nil, seatlock.FromEngine(cfg))

    gh := NewGateHandler(g, games)
    sh := NewSeatHandler(locks, cat)
    ah := NewAssignHandler(assign.New(cat, games, fans, locks, cfg))
    snh := NewSeniorHandler(senior.New(rdb, cat, games, ledger, nil, cfg), fans)
    rh := NewReservationHandler(ledger)
    ch := NewCatalogHandler(cat)

    e := echo.New()
    e.GET("/v1/zones", ch.Zones)
    e.GET("/v1/zones/:id/seats", ch.ZoneSeats)
    v1 := e.Group("/v1", asUser)
    v1.POST("/games/:id/gate", gh.Enter)
    v1.GET("/games/:id/gate", gh.Status)
    v1.DELETE("/games/:id/gate", gh.Leave)
    v1.POST("/games/:id/gate/extend", gh.Extend)
    v1.POST("/games/:id/holds", sh.Hold)
    v1.DELETE("/games/:id/holds/:seat", sh.Release)
    v1.DELETE("/games/:id/holds", sh.ReleaseAll)
    v1.POST("/games/:id/seats/status", sh.Status)
    v1.POST("/games/:id/confirm", sh.Confirm)
    v1.POST("/games/:id/auto-assign", ah.AutoAssign)
    v1.POST("/games/:id/senior", snh.Book)
    v1.GET("/my-reservations", rh.ListMine)
    return &fixture{e: e, ledger: ledger}
}

func (f *fixture) do(t *testing.T, method, path string, user uint64, body string) (int, map[string]any) {
    t.Helper()
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, path, strings.NewReader(body))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    } else {
        req = httptest.NewRequest(method, path, nil)
    }
    if user != 0 {
        req.Header.Set("X-Test-User", strconv.FormatUint(user, 10))
    }
    rec := httptest.NewRecorder()
    f.e.ServeHTTP(rec, req)
    out := map[string]any{}
    if rec.Body.Len() > 0 {
        if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
            t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
        }
    }
    return rec.Code, out
}

func game(p string) string { return "/v1/games/" + strconv.FormatUint(gameID, 10) + p }

func TestCatalogRoutes(t *testing.T) {
    f := newFixture(t)
    code, body := f.do(t, http.MethodGet, "/v1/zones", 0, "")
    if code != http.StatusOK {
        t.Fatalf("zones status = %d", code)
    }
    zones := body["zones"].([]any)
    if len(zones) != 2 {
        t.Fatalf("zones = %v", zones)
    }
    first := zones[0].(map[string]any)
    if first["id"] != "H" || first["seats"].(float64) != 8 || first["senior_seats"].(float64) != 2 {
        t.Errorf("zone H = %v", first)
    }
    code, body = f.do(t, http.MethodGet, "/v1/zones/H/seats", 0, "")
    if code != http.StatusOK || len(body["rows"].([]any)) != 2 {
        t.Errorf("seats = %d %v", code, body)
    }
    if code, _ := f.do(t, http.MethodGet, "/v1/zones/nope/seats", 0, ""); code != http.StatusNotFound {
        t.Errorf("unknown zone status = %d", code)
    }
}

func TestUnauthenticated(t *testing.T) {
    f := newFixture(t)
    if code, _ := f.do(t, http.MethodPost, game("/gate"), 0, ""); code != http.StatusUnauthorized {
        t.Errorf("status = %d, want 401", code)
    }
    if code, _ := f.do(t, http.MethodPost, "/v1/games/x/gate", 1, ""); code != http.StatusBadRequest {
        t.Errorf("bad game id status = %d, want 400", code)
    }
}

func TestGateFlow(t *testing.T) {
    f := newFixture(t)
    code, body := f.do(t, http.MethodPost, game("/gate"), 1, "")
    if code != http.StatusOK || body["state"] != gate.StateActive {
        t.Fatalf("first enter = %d %v", code, body)
    }
    code, body = f.do(t, http.MethodPost, game("/gate"), 2, "")
    if code != http.StatusAccepted || body["state"] != gate.StateWaiting || body["position"].(float64) != 1 {
        t.Fatalf("second enter = %d %v", code, body)
    }
    if code, _ := f.do(t, http.MethodPost, "/v1/games/404/gate", 1, ""); code != http.StatusNotFound {
        t.Errorf("unknown game status = %d", code)
    }

    code, body = f.do(t, http.MethodPost, game("/gate/extend"), 1, "")
    if code != http.StatusOK || body["ok"] != true {
        t.Fatalf("extend = %d %v", code, body)
    }
    code, body = f.do(t, http.MethodPost, game("/gate/extend"), 1, "")
    if code != http.StatusConflict || body["reason"] != gate.ReasonExtendLimit {
        t.Errorf("second extend = %d %v", code, body)
    }
    if code, body := f.do(t, http.MethodPost, game("/gate/extend"), 2, ""); code != http.StatusNotFound {
        t.Errorf("extend while waiting = %d %v", code, body)
    }

    code, body = f.do(t, http.MethodDelete, game("/gate"), 1, "")
    if code != http.StatusOK || body["left"] != true {
        t.Fatalf("leave = %d %v", code, body)
    }
    if _, body := f.do(t, http.MethodGet, game("/gate"), 2, ""); body["state"] != gate.StateActive {
        t.Errorf("after leave user 2 = %v", body)
    }
}

func TestHoldConfirmAndList(t *testing.T) {
    f := newFixture(t)
    code, body := f.do(t, http.MethodPost, game("/holds"), 1, `{"seat_id":"H-A1"}`)
    if code != http.StatusForbidden || body["reason"] != string(seatlock.SessionMissing) {
        t.Fatalf("hold without session = %d %v", code, body)
    }
    f.do(t, http.MethodPost, game("/gate"), 1, "")

    code, body = f.do(t, http.MethodPost, game("/holds"), 1, `{"seat_id":"H-A1"}`)
    if code != http.StatusCreated || body["hold_ttl_seconds"].(float64) != 120 {
        t.Fatalf("hold = %d %v", code, body)
    }
    f.do(t, http.MethodPost, game("/holds"), 1, `{"zone_id":"H","seat_id":"H-A2"}`)
    if code, body := f.do(t, http.MethodPost, game("/holds"), 1, `{"zone_id":"W","seat_id":"H-A3"}`); code != http.StatusBadRequest {
        t.Errorf("wrong zone = %d %v", code, body)
    }

    _, body = f.do(t, http.MethodPost, game("/seats/status"), 1, `{"seat_ids":["H-A1","H-A3","nope"]}`)
    seats := body["seats"].(map[string]any)
    if seats["H-A1"] != seatlock.StateHeldByMe || seats["H-A3"] != seatlock.StateAvailable || seats["nope"] != seatlock.StateInvalid {
        t.Errorf("status = %v", seats)
    }

    code, body = f.do(t, http.MethodDelete, game("/holds/H-A2"), 1, "")
    if code != http.StatusOK || body["released"] != true {
        t.Errorf("release = %d %v", code, body)
    }

    code, body = f.do(t, http.MethodPost, game("/confirm"), 1, `{"seat_ids":["H-A1"]}`)
    if code != http.StatusCreated || body["ok"] != true {
        t.Fatalf("confirm = %d %v", code, body)
    }
    code, body = f.do(t, http.MethodGet, "/v1/my-reservations", 1, "")
    list := body["reservations"].([]any)
    if code != http.StatusOK || len(list) != 1 || list[0].(map[string]any)["seat_id"] != "H-A1" {
        t.Errorf("my reservations = %d %v", code, body)
    }
    if code, body := f.do(t, http.MethodPost, game("/gate"), 1, ""); code != http.StatusConflict || body["reason"] != gate.ReasonAlreadyBooked {
        t.Errorf("re-enter after purchase = %d %v", code, body)
    }
}

func TestConfirmNotHolder(t *testing.T) {
    f := newFixture(t)
    f.do(t, http.MethodPost, game("/gate"), 1, "")
    code, body := f.do(t, http.MethodPost, game("/confirm"), 1, `{"seat_ids":["H-A4"]}`)
    if code != http.StatusConflict || body["reason"] != string(seatlock.NotHolder) {
        t.Errorf("confirm unheld = %d %v", code, body)
    }
    if code, _ := f.do(t, http.MethodPost, game("/confirm"), 1, `{"seat_ids":[]}`); code != http.StatusBadRequest {
        t.Errorf("empty confirm = %d", code)
    }
}

func TestReleaseAll(t *testing.T) {
    f := newFixture(t)
    f.do(t, http.MethodPost, game("/gate"), 1, "")
    f.do(t, http.MethodPost, game("/holds"), 1, `{"seat_id":"W-B1"}`)
    f.do(t, http.MethodPost, game("/holds"), 1, `{"seat_id":"W-B2"}`)
    code, body := f.do(t, http.MethodDelete, game("/holds"), 1, "")
    if code != http.StatusOK || body["released"].(float64) != 2 {
        t.Errorf("release all = %d %v", code, body)
    }
    if code, _ := f.do(t, http.MethodDelete, game("/holds/unknown"), 1, ""); code != http.StatusNotFound {
        t.Errorf("release unknown seat = %d", code)
    }
}

func TestAutoAssign(t *testing.T) {
    f := newFixture(t)
    if code, body := f.do(t, http.MethodPost, game("/auto-assign"), 1, `{"qty":5}`); code != http.StatusBadRequest || body["reason"] != assign.ReasonQtyOutOfRange {
        t.Errorf("qty 5 = %d %v", code, body)
    }
    f.do(t, http.MethodPost, game("/gate"), 1, "")
    code, body := f.do(t, http.MethodPost, game("/auto-assign"), 1, `{"qty":2,"contiguous":true,"side":"HOME"}`)
    if code != http.StatusOK || body["ok"] != true || body["qty_held"].(float64) != 2 {
        t.Fatalf("auto-assign = %d %v", code, body)
    }
    b := body["bundles"].([]any)[0].(map[string]any)
    if b["zone_id"] != "H" || b["contiguous"] != true {
        t.Errorf("bundle = %v", b)
    }
}

func TestSeniorEligibility(t *testing.T) {
    f := newFixture(t)
    if code, body := f.do(t, http.MethodPost, game("/senior"), 3, `{"qty":2}`); code != http.StatusForbidden || body["reason"] != reasonNotSenior {
        t.Errorf("young caller = %d %v", code, body)
    }
    if code, _ := f.do(t, http.MethodPost, game("/senior"), 5, `{"qty":1}`); code != http.StatusForbidden {
        t.Errorf("unknown birth date = %d", code)
    }
    code, body := f.do(t, http.MethodPost, game("/senior"), 4, `{"qty":3}`)
    if code != http.StatusCreated || body["qty"].(float64) != 2 {
        t.Fatalf("senior = %d %v", code, body)
    }
    rows := f.ledger.Rows()
    if len(rows) != 2 || rows[0].Channel != model.ChannelSenior {
        t.Errorf("ledger = %+v", rows)
    }
    if code, body := f.do(t, http.MethodPost, game("/senior"), 4, `{"qty":1}`); code != http.StatusConflict || body["reason"] != senior.ReasonLimit {
        t.Errorf("over cap = %d %v", code, body)
    }
}

func TestHealth(t *testing.T) {
    e := echo.New()
    h := NewHealthHandler(map[string]Check{
        "redis": func(context.Context) error { return nil },
        "mysql": func(context.Context) error { return errors.New("down") },
    })
    e.GET("/healthz", h.Health)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
    if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"mysql":"down"`) {
        t.Errorf("health = %d %s", rec.Code, rec.Body.String())
    }
}

func TestStatusOf(t *testing.T) {
    for reason, want := range map[string]int{
        "":                  http.StatusOK,
        "QTY_OUT_OF_RANGE":  http.StatusBadRequest,
        "GAME_NOT_FOUND":    http.StatusNotFound,
        "SESSION_MISSING":   http.StatusForbidden,
        "CONFLICT":          http.StatusConflict,
        "LOCK_TIMEOUT":      http.StatusConflict,
        "CONFIRM_FAIL":      http.StatusInternalServerError,
        reasonNotSenior:     http.StatusForbidden,
        "NO_SEATS_AVAILABLE": http.StatusConflict,
    } {
        if got := statusOf(reason); got != want {
            t.Errorf("statusOf(%q) = %d, want %d", reason, got, want)
        }
    }
}

func TestGetUserID(t *testing.T) {
    e := echo.New()
    for raw, want := range map[string]uint64{"42": 42, "0": 0, "abc": 0, "": 0} {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
        c.Set("user_id", raw)
        got, err := getUserID(c)
        if got != want || (want == 0) != (err != nil) {
            t.Errorf("getUserID(%q) = %d, %v; want %d", raw, got, err, want)
        }
    }
}
