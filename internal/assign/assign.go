// Package assign implements general-channel auto assignment: given a
// quantity and soft preferences it searches the catalog for the best seat
// bundle and holds it through the seat lock engine.
package assign

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/iliyamo/ballpark-reservation/internal/catalog"
    "github.com/iliyamo/ballpark-reservation/internal/config"
    "github.com/iliyamo/ballpark-reservation/internal/model"
    "github.com/iliyamo/ballpark-reservation/internal/seatlock"
    "github.com/iliyamo/ballpark-reservation/internal/store"
)

// Reason codes.
const (
    ReasonQtyOutOfRange = "QTY_OUT_OF_RANGE"
    ReasonGameNotFound  = "GAME_NOT_FOUND"
    ReasonGameFinished  = "GAME_FINISHED"
    ReasonPartial       = "PARTIAL"
    ReasonNoMatch       = "NO_SEATS_MATCH_RULES"
)

// Side preferences.
const (
    SideHome = "HOME"
    SideAway = "AWAY"
    SideAny  = "ANY"
)

// Quantity bounds of the general channel.
const (
    MinQty = 1
    MaxQty = 4
)

// Locker is the part of the seat lock engine assignment drives.
type Locker interface {
    TryHold(ctx context.Context, userID, gameID uint64, zoneID, seatID string) (seatlock.Code, error)
    Release(ctx context.Context, userID, gameID uint64, zoneID, seatID string) (bool, error)
    StatusFor(ctx context.Context, userID, gameID uint64, seatIDs []string) (map[string]string, error)
    HoldTTL() time.Duration
}

// Request describes what the purchaser wants.
type Request struct {
    Qty            int    `json:"qty"`
    Contiguous     bool   `json:"contiguous"`
    Side           string `json:"side"`
    AllowCrossZone bool   `json:"allow_cross_zone"`
}

// Bundle is a group of held seats from one zone.
type Bundle struct {
    ZoneID     string   `json:"zone_id"`
    ZoneName   string   `json:"zone_name"`
    Contiguous bool     `json:"contiguous"`
    SeatIDs    []string `json:"seat_ids"`
    Seats      []string `json:"seats"`
}

// Result is the outcome of Assign.  Strategy records which passes ran.
type Result struct {
    OK             bool     `json:"ok"`
    Reason         string   `json:"reason,omitempty"`
    Strategy       []string `json:"strategy,omitempty"`
    HoldTTLSeconds int      `json:"hold_ttl_seconds"`
    QtyRequested   int      `json:"qty_requested"`
    QtyHeld        int      `json:"qty_held"`
    Bundles        []Bundle `json:"bundles,omitempty"`
}

// Engine is safe for concurrent use.
type Engine struct {
    cat          *catalog.Catalog
    games        store.Games
    fans         store.Fans
    locks        Locker
    seniorCutoff time.Duration
    now          func() time.Time
}

func New(cat *catalog.Catalog, games store.Games, fans store.Fans, locks Locker, cfg config.EngineConfig) *Engine {
    return &Engine{
        cat:          cat,
        games:        games,
        fans:         fans,
        locks:        locks,
        seniorCutoff: cfg.GeneralSeniorCutoff,
        now:          time.Now,
    }
}

// abortError carries a seat lock code that makes further hold attempts
// pointless for this purchaser.
type abortError struct{ code seatlock.Code }

func (e *abortError) Error() string { return string(e.code) }

func isFatal(c seatlock.Code) bool {
    return c == seatlock.SessionMissing || c == seatlock.AlreadyBooked || c == seatlock.LimitExceeded
}

// Assign finds and holds seats for the request.
func (e *Engine) Assign(ctx context.Context, userID, gameID uint64, req Request) (Result, error) {
    res := Result{QtyRequested: req.Qty, HoldTTLSeconds: int(e.locks.HoldTTL() / time.Second)}
    if req.Qty < MinQty || req.Qty > MaxQty {
        res.Reason = ReasonQtyOutOfRange
        return res, nil
    }
    game, err := e.games.FindGame(ctx, gameID)
    if errors.Is(err, store.ErrGameNotFound) {
        res.Reason = ReasonGameNotFound
        return res, nil
    }
    if err != nil {
        return Result{}, fmt.Errorf("assign: find game: %w", err)
    }
    if game.ResultRecorded {
        res.Reason = ReasonGameFinished
        return res, nil
    }
    excludeSenior := e.now().Before(game.StartsAt.Add(-e.seniorCutoff))

    hint, err := e.favoriteArea(ctx, userID, game)
    if err != nil {
        return Result{}, err
    }
    side := normalizeSide(req.Side)
    zones := e.priority(side, hint)
    res.Strategy = append(res.Strategy, "side="+side)
    if hint != "" {
        res.Strategy = append(res.Strategy, "hint="+hint)
    }
    if excludeSenior {
        res.Strategy = append(res.Strategy, "senior-excluded")
    }

    s := &search{e: e, userID: userID, gameID: gameID, excludeSenior: excludeSenior}
    bundle, err := s.singleZone(ctx, zones, req.Qty, req.Contiguous)
    if err != nil {
        return abortResult(res, err)
    }
    if bundle != nil {
        res.OK = true
        res.Strategy = append(res.Strategy, "single-zone")
        res.QtyHeld = len(bundle.SeatIDs)
        res.Bundles = []Bundle{*bundle}
        return res, nil
    }
    if !req.AllowCrossZone {
        res.Reason = ReasonNoMatch
        return res, nil
    }

    res.Strategy = append(res.Strategy, "multi-zone")
    bundles, err := s.multiZone(ctx, zones, req.Qty)
    var abort *abortError
    if err != nil && !errors.As(err, &abort) {
        return Result{}, err
    }
    for _, b := range bundles {
        res.QtyHeld += len(b.SeatIDs)
    }
    res.Bundles = bundles
    switch {
    case res.QtyHeld == 0 && abort != nil:
        res.Reason = string(abort.code)
    case res.QtyHeld == 0:
        res.Reason = ReasonNoMatch
    default:
        res.OK = true
        if res.QtyHeld < req.Qty {
            res.Reason = ReasonPartial
        }
    }
    return res, nil
}

// favoriteArea returns the zone area tied to the purchaser's favorite
// player when that player's team is in the game.
func (e *Engine) favoriteArea(ctx context.Context, userID uint64, game *model.Game) (string, error) {
    p, err := e.fans.FavoritePlayer(ctx, userID)
    if errors.Is(err, store.ErrUserNotFound) {
        return "", nil
    }
    if err != nil {
        return "", fmt.Errorf("assign: favorite player: %w", err)
    }
    if p == nil || !game.HasTeam(p.Team) {
        return "", nil
    }
    return e.cat.AreaForPosition(p.Position), nil
}

func normalizeSide(s string) string {
    switch strings.ToUpper(strings.TrimSpace(s)) {
    case SideHome:
        return SideHome
    case SideAway:
        return SideAway
    }
    return SideAny
}

// priority lists candidate zones in catalog order, filtered by side, with
// zones of the hinted area moved to the front.
func (e *Engine) priority(side, hint string) []model.Zone {
    var front, rest []model.Zone
    for _, z := range e.cat.Zones() {
        switch side {
        case SideHome:
            if z.Side != model.SideHome && z.Side != model.SideNeutral {
                continue
            }
        case SideAway:
            if z.Side != model.SideAway && z.Side != model.SideNeutral {
                continue
            }
        }
        if hint != "" && z.Area == hint {
            front = append(front, z)
        } else {
            rest = append(rest, z)
        }
    }
    return append(front, rest...)
}

func abortResult(res Result, err error) (Result, error) {
    var abort *abortError
    if errors.As(err, &abort) {
        res.Reason = string(abort.code)
        return res, nil
    }
    return Result{}, err
}
