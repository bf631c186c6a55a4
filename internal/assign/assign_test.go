package assign

import (
    "context"
    "fmt"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/ballpark-reservation/internal/catalog"
    "github.com/iliyamo/ballpark-reservation/internal/config"
    "github.com/iliyamo/ballpark-reservation/internal/coord"
    "github.com/iliyamo/ballpark-reservation/internal/model"
    "github.com/iliyamo/ballpark-reservation/internal/seatlock"
    "github.com/iliyamo/ballpark-reservation/internal/store/storetest"
)

const testCatalog = `
[positions]
P = "INFIELD"
LF = "OUTFIELD"

[[zones]]
id = "H1"
side = "HOME"
area = "INFIELD"
  [[zones.rows]]
  label = "A"
  first = 1
  last = 10
  [[zones.rows]]
  label = "S"
  first = 1
  last = 2
  senior = true

[[zones]]
id = "N1"
side = "NEUTRAL"
area = "CENTER"
  [[zones.rows]]
  label = "T"
  first = 1
  last = 4

[[zones]]
id = "AW"
side = "AWAY"
area = "OUTFIELD"
  [[zones.rows]]
  label = "B"
  first = 1
  last = 5
`

const (
    user     = uint64(1)
    soon     = uint64(1)
    later    = uint64(2)
    finished = uint64(3)
)

var base = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type sessions struct{}

func (sessions) HasSession(_ context.Context, _, userID uint64) (bool, error) {
    return userID == user, nil
}

// flaky fails TryHold with CONFLICT for the listed seats, emulating a
// competitor that wins the lock between the status read and the hold.
type flaky struct {
    *seatlock.Engine
    mu   sync.Mutex
    fail map[string]bool
}

func (f *flaky) TryHold(ctx context.Context, userID, gameID uint64, zoneID, seatID string) (seatlock.Code, error) {
    f.mu.Lock()
    lose := f.fail[seatID]
    f.mu.Unlock()
    if lose {
        return seatlock.Conflict, nil
    }
    return f.Engine.TryHold(ctx, userID, gameID, zoneID, seatID)
}

type fixture struct {
    mr    *miniredis.Miniredis
    cat   *catalog.Catalog
    locks *flaky
    fans  storetest.Fans
    eng   *Engine
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
    sl := seatlock.New(rdb, cat, sessions{}, storetest.NewLedger(), nil, seatlock.Config{
        HoldTTL:    120 * time.Second,
        MaxPerUser: 4,
        BookedTTL:  time.Hour,
    })
    f := &fixture{
        mr:    mr,
        cat:   cat,
        locks: &flaky{Engine: sl, fail: map[string]bool{}},
        fans:  storetest.Fans{Favorites: map[uint64]*model.Player{}},
    }
    games := storetest.Games{
        soon:     {ID: soon, HomeTeam: "LG", AwayTeam: "KT", StartsAt: base.Add(24 * time.Hour)},
        later:    {ID: later, HomeTeam: "LG", AwayTeam: "KT", StartsAt: base.Add(72 * time.Hour)},
        finished: {ID: finished, HomeTeam: "LG", AwayTeam: "KT", StartsAt: base.Add(-3 * time.Hour), ResultRecorded: true},
    }
    f.eng = New(cat, games, f.fans, f.locks, config.EngineConfig{GeneralSeniorCutoff: 48 * time.Hour})
    f.eng.now = func() time.Time { return base }
    return f
}

// sell marks every seat of zone sold for game except the listed names.
func (f *fixture) sell(game uint64, zone string, except ...string) {
    keep := map[string]bool{}
    for _, n := range except {
        keep[n] = true
    }
    for _, s := range f.cat.SeatsInZone(zone) {
        if !keep[s.Name] {
            f.mr.SAdd(coord.SoldKey(game), s.ID)
        }
    }
}

func (f *fixture) assign(t *testing.T, game uint64, req Request) Result {
    t.Helper()
    res, err := f.eng.Assign(context.Background(), user, game, req)
    if err != nil {
        t.Fatalf("Assign: %v", err)
    }
    return res
}

func seatsOf(res Result) string {
    var parts []string
    for _, b := range res.Bundles {
        parts = append(parts, fmt.Sprintf("%s:%s", b.ZoneID, strings.Join(b.Seats, ",")))
    }
    return strings.Join(parts, " ")
}

func TestQuantityBounds(t *testing.T) {
    f := newFixture(t)
    for _, qty := range []int{0, 5, -1} {
        if res := f.assign(t, soon, Request{Qty: qty}); res.OK || res.Reason != ReasonQtyOutOfRange {
            t.Errorf("qty=%d: %+v", qty, res)
        }
    }
}

func TestGameChecks(t *testing.T) {
    f := newFixture(t)
    if res := f.assign(t, 99, Request{Qty: 1}); res.Reason != ReasonGameNotFound {
        t.Errorf("unknown game: %+v", res)
    }
    if res := f.assign(t, finished, Request{Qty: 1}); res.Reason != ReasonGameFinished {
        t.Errorf("finished game: %+v", res)
    }
}

func TestContiguousRunPicksFirstSeats(t *testing.T) {
    f := newFixture(t)
    res := f.assign(t, soon, Request{Qty: 3, Contiguous: true, Side: "home"})
    if !res.OK || seatsOf(res) != "H1:A1,A2,A3" || !res.Bundles[0].Contiguous {
        t.Fatalf("result = %+v", res)
    }
    if res.QtyHeld != 3 || res.HoldTTLSeconds != 120 {
        t.Errorf("qty/ttl = %d/%d", res.QtyHeld, res.HoldTTLSeconds)
    }
    st, _ := f.locks.StatusFor(context.Background(), user, soon, []string{"H1-A1", "H1-A3"})
    if st["H1-A1"] != seatlock.StateHeldByMe || st["H1-A3"] != seatlock.StateHeldByMe {
        t.Errorf("status = %v", st)
    }
}

func TestContiguousSkipsGaps(t *testing.T) {
    f := newFixture(t)
    f.mr.SAdd(coord.SoldKey(soon), "H1-A2")
    res := f.assign(t, soon, Request{Qty: 3, Contiguous: true, Side: "HOME"})
    if seatsOf(res) != "H1:A3,A4,A5" {
        t.Errorf("seats = %s", seatsOf(res))
    }
}

func TestScatteredTakesFirstUsable(t *testing.T) {
    f := newFixture(t)
    f.mr.SAdd(coord.SoldKey(soon), "H1-A2")
    res := f.assign(t, soon, Request{Qty: 2, Side: "HOME"})
    if !res.OK || seatsOf(res) != "H1:A1,A3" || res.Bundles[0].Contiguous {
        t.Errorf("result = %+v", res)
    }
}

func TestSideFilterAndFavoriteHint(t *testing.T) {
    f := newFixture(t)
    if res := f.assign(t, soon, Request{Qty: 1, Side: "AWAY"}); seatsOf(res) != "N1:T1" {
        t.Errorf("away without hint = %s", seatsOf(res))
    }
    f.fans.Favorites[user] = &model.Player{Team: "KT", Position: "LF"}
    res := f.assign(t, soon, Request{Qty: 1, Side: "AWAY"})
    if seatsOf(res) != "AW:B1" {
        t.Errorf("away with hint = %s", seatsOf(res))
    }
    if res.Strategy[1] != "hint=OUTFIELD" {
        t.Errorf("strategy = %v", res.Strategy)
    }
}

func TestFavoriteFromOtherTeamIgnored(t *testing.T) {
    f := newFixture(t)
    f.fans.Favorites[user] = &model.Player{Team: "SSG", Position: "LF"}
    if res := f.assign(t, soon, Request{Qty: 1}); seatsOf(res) != "H1:A1" {
        t.Errorf("seats = %s", seatsOf(res))
    }
}

func TestSeniorSeatsHeldBackBeforeCutoff(t *testing.T) {
    f := newFixture(t)
    for _, g := range []uint64{soon, later} {
        f.sell(g, "H1", "S1", "S2")
        f.sell(g, "N1")
        f.sell(g, "AW")
    }
    if res := f.assign(t, later, Request{Qty: 2}); res.OK || res.Reason != ReasonNoMatch {
        t.Errorf("before cutoff = %+v", res)
    }
    if res := f.assign(t, soon, Request{Qty: 2, Contiguous: true}); !res.OK || seatsOf(res) != "H1:S1,S2" {
        t.Errorf("after cutoff = %+v", res)
    }
}

func TestFailedRunRollsBack(t *testing.T) {
    f := newFixture(t)
    f.locks.fail["H1-A2"] = true
    res := f.assign(t, soon, Request{Qty: 3, Contiguous: true})
    if seatsOf(res) != "N1:T1,T2,T3" {
        t.Fatalf("seats = %s", seatsOf(res))
    }
    st, _ := f.locks.StatusFor(context.Background(), user, soon, []string{"H1-A1"})
    if st["H1-A1"] != seatlock.StateAvailable {
        t.Errorf("H1-A1 = %s, want AVAILABLE after rollback", st["H1-A1"])
    }
}

func TestCrossZoneFallback(t *testing.T) {
    f := newFixture(t)
    f.sell(soon, "H1", "A9", "A10")
    f.sell(soon, "N1", "T1", "T2", "T3")
    f.sell(soon, "AW")

    if res := f.assign(t, soon, Request{Qty: 4}); res.OK || res.Reason != ReasonNoMatch || len(res.Bundles) != 0 {
        t.Fatalf("without cross-zone = %+v", res)
    }
    res := f.assign(t, soon, Request{Qty: 4, Contiguous: true, AllowCrossZone: true})
    if !res.OK || res.Reason != "" || res.QtyHeld != 4 {
        t.Fatalf("result = %+v", res)
    }
    if seatsOf(res) != "H1:A9,A10 N1:T1,T2" {
        t.Errorf("bundles = %s", seatsOf(res))
    }
    for _, b := range res.Bundles {
        if !b.Contiguous {
            t.Errorf("bundle %s not contiguous", b.ZoneID)
        }
    }
}

func TestCrossZonePartial(t *testing.T) {
    f := newFixture(t)
    f.sell(soon, "H1", "A9", "A10")
    f.sell(soon, "N1", "T4")
    f.sell(soon, "AW")
    res := f.assign(t, soon, Request{Qty: 4, AllowCrossZone: true})
    if !res.OK || res.Reason != ReasonPartial || res.QtyHeld != 3 || len(res.Bundles) != 2 {
        t.Errorf("result = %+v", res)
    }
}

func TestNothingLeft(t *testing.T) {
    f := newFixture(t)
    f.sell(soon, "H1")
    f.sell(soon, "N1")
    f.sell(soon, "AW")
    res := f.assign(t, soon, Request{Qty: 1, AllowCrossZone: true})
    if res.OK || res.Reason != ReasonNoMatch {
        t.Errorf("result = %+v", res)
    }
}

func TestNoSessionAborts(t *testing.T) {
    f := newFixture(t)
    res, err := f.eng.Assign(context.Background(), 42, soon, Request{Qty: 2})
    if err != nil || res.OK || res.Reason != string(seatlock.SessionMissing) {
        t.Errorf("Assign = %+v, %v", res, err)
    }
}
