// Package senior is the immediate-confirm sales channel for purchasers aged
// 65 and over.  It skips the hold phase: candidate seats are locked, marked
// sold and written to the ledger in one call.  Eligibility is checked by
// the caller.
package senior

import (
    "context"
    "errors"
    "fmt"
    "log"
    "sort"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/ballpark-reservation/internal/catalog"
    "github.com/iliyamo/ballpark-reservation/internal/config"
    "github.com/iliyamo/ballpark-reservation/internal/coord"
    "github.com/iliyamo/ballpark-reservation/internal/events"
    "github.com/iliyamo/ballpark-reservation/internal/idgen"
    "github.com/iliyamo/ballpark-reservation/internal/model"
    "github.com/iliyamo/ballpark-reservation/internal/queue"
    "github.com/iliyamo/ballpark-reservation/internal/store"
)

// Reason codes.
const (
    ReasonInvalidRequest   = "INVALID_REQUEST"
    ReasonOutOfPhase       = "OUT_OF_SENIOR_PHASE"
    ReasonBlockedByGeneral = "BLOCKED_BY_GENERAL_BOOKING"
    ReasonLimit            = "LIMIT_2_PER_GAME"
    ReasonNoSeniorZones    = "NO_SENIOR_ZONES"
    ReasonNoSeats          = "NO_SEATS_AVAILABLE"
    ReasonLockTimeout      = "LOCK_TIMEOUT"
    ReasonSeatTaken        = "SEAT_TAKEN"
    ReasonConfirmFail      = "CONFIRM_FAIL"
)

// MaxPerGame caps senior seats per purchaser and game across all calls.
const MaxPerGame = 2

// lockLease bounds how long a crashed commit can keep seats locked.
const lockLease = 10 * time.Second

// Result is the outcome of Book.
type Result struct {
    OK             bool     `json:"ok"`
    Reason         string   `json:"reason,omitempty"`
    Detail         string   `json:"detail,omitempty"`
    Qty            int      `json:"qty"`
    ZoneID         string   `json:"zone_id,omitempty"`
    ZoneName       string   `json:"zone_name,omitempty"`
    Contiguous     bool     `json:"contiguous"`
    SeatIDs        []string `json:"seat_ids,omitempty"`
    Seats          []string `json:"seats,omitempty"`
    ReservationIDs []uint64 `json:"reservation_ids,omitempty"`
}

func fail(reason string) Result { return Result{OK: false, Reason: reason} }

// Engine is safe for concurrent use.
type Engine struct {
    rdb        redis.UniversalClient
    mutex      *coord.Mutex
    cat        *catalog.Catalog
    games      store.Games
    ledger     store.Ledger
    pub        events.Publisher
    lockWait   time.Duration
    window     time.Duration
    counterTTL time.Duration
    now        func() time.Time
}

func New(rdb redis.UniversalClient, cat *catalog.Catalog, games store.Games, ledger store.Ledger, pub events.Publisher, cfg config.EngineConfig) *Engine {
    if pub == nil {
        pub = events.Noop{}
    }
    return &Engine{
        rdb:        rdb,
        mutex:      coord.NewMutex(rdb),
        cat:        cat,
        games:      games,
        ledger:     ledger,
        pub:        pub,
        lockWait:   cfg.SeniorLockWait,
        window:     cfg.SeniorWindow,
        counterTTL: cfg.CounterTTL,
        now:        time.Now,
    }
}

// ClampQty forces a requested quantity into 1..MaxPerGame.
func ClampQty(qty int) int {
    if qty < 1 {
        return 1
    }
    if qty > MaxPerGame {
        return MaxPerGame
    }
    return qty
}

// Book picks senior seats for the purchaser and commits them.
func (e *Engine) Book(ctx context.Context, userID, gameID uint64, qty int) (Result, error) {
    if userID == 0 || gameID == 0 {
        return fail(ReasonInvalidRequest), nil
    }
    qty = ClampQty(qty)
    game, err := e.games.FindGame(ctx, gameID)
    if errors.Is(err, store.ErrGameNotFound) {
        return fail(ReasonInvalidRequest), nil
    }
    if err != nil {
        return Result{}, fmt.Errorf("senior: find game: %w", err)
    }
    now := e.now()
    if game.ResultRecorded || now.Before(game.StartsAt.Add(-e.window)) || now.After(game.StartsAt) {
        return fail(ReasonOutOfPhase), nil
    }

    general, err := coord.Counter(ctx, e.rdb, coord.GeneralCounterKey(gameID, userID))
    if err != nil {
        return Result{}, fmt.Errorf("senior: general counter: %w", err)
    }
    if general > 0 {
        return fail(ReasonBlockedByGeneral), nil
    }
    booked, err := coord.Counter(ctx, e.rdb, coord.SeniorCounterKey(gameID, userID))
    if err != nil {
        return Result{}, fmt.Errorf("senior: senior counter: %w", err)
    }
    if booked+int64(qty) > MaxPerGame {
        return fail(ReasonLimit), nil
    }

    zones := e.cat.ZonesWithSenior()
    if len(zones) == 0 {
        return fail(ReasonNoSeniorZones), nil
    }
    zone, seats, contiguous, err := e.pick(ctx, gameID, zones, qty)
    if err != nil {
        return Result{}, err
    }
    if len(seats) == 0 {
        return fail(ReasonNoSeats), nil
    }

    res, err := e.commit(ctx, userID, gameID, seats)
    if err != nil || !res.OK {
        return res, err
    }
    res.Qty = qty
    res.ZoneID = zone.ID
    res.ZoneName = e.cat.ZoneDisplayName(zone.ID)
    res.Contiguous = contiguous
    return res, nil
}

// available returns the zone's senior seats that are neither sold nor held.
func (e *Engine) available(ctx context.Context, gameID uint64, zoneID string) ([]model.Seat, error) {
    var cands []model.Seat
    for _, s := range e.cat.SeatsInZone(zoneID) {
        if s.Senior {
            cands = append(cands, s)
        }
    }
    if len(cands) == 0 {
        return nil, nil
    }
    pipe := e.rdb.Pipeline()
    sold := make([]*redis.BoolCmd, len(cands))
    held := make([]*redis.IntCmd, len(cands))
    for i, s := range cands {
        sold[i] = pipe.SIsMember(ctx, coord.SoldKey(gameID), s.ID)
        held[i] = pipe.Exists(ctx, coord.HoldKey(gameID, s.ID), coord.SeatLockKey(gameID, s.ID))
    }
    if _, err := pipe.Exec(ctx); err != nil {
        return nil, fmt.Errorf("senior: seat status: %w", err)
    }
    out := cands[:0]
    for i, s := range cands {
        if !sold[i].Val() && held[i].Val() == 0 {
            out = append(out, s)
        }
    }
    return out, nil
}

// pick applies the senior preference order: a contiguous pair, then the
// closest same-row pair, or a single seat when one is wanted.  Zones are
// tried in catalog order for each preference.
func (e *Engine) pick(ctx context.Context, gameID uint64, zones []model.Zone, qty int) (model.Zone, []model.Seat, bool, error) {
    avail := make([][]model.Seat, len(zones))
    for i, z := range zones {
        seats, err := e.available(ctx, gameID, z.ID)
        if err != nil {
            return model.Zone{}, nil, false, err
        }
        avail[i] = seats
    }
    if qty == 1 {
        for i, z := range zones {
            if len(avail[i]) > 0 {
                return z, avail[i][:1], false, nil
            }
        }
        return model.Zone{}, nil, false, nil
    }
    for i, z := range zones {
        if run := catalog.FirstRun(avail[i], 2); run != nil {
            return z, run, true, nil
        }
    }
    for i, z := range zones {
        if pair := catalog.ClosestPair(avail[i]); pair != nil {
            return z, pair, false, nil
        }
    }
    return model.Zone{}, nil, false, nil
}

// commit locks the seats in ascending id order, re-checks them and writes
// them through to Redis and the ledger.  Redis changes are undone when the
// ledger write fails; locks are always released.
func (e *Engine) commit(ctx context.Context, userID, gameID uint64, seats []model.Seat) (Result, error) {
    ids := make([]string, len(seats))
    for i, s := range seats {
        ids[i] = s.ID
    }
    sort.Strings(ids)

    token, err := idgen.LockToken()
    if err != nil {
        return Result{}, err
    }
    var locked []string
    defer func() {
        cctx := context.WithoutCancel(ctx)
        for _, id := range locked {
            if _, err := e.mutex.Unlock(cctx, coord.SeatLockKey(gameID, id), token); err != nil {
                log.Printf("senior: unlock game=%d seat=%s: %v", gameID, id, err)
            }
        }
    }()
    for _, id := range ids {
        ok, err := e.mutex.LockWait(ctx, coord.SeatLockKey(gameID, id), token, lockLease, e.lockWait)
        if err != nil {
            return Result{}, fmt.Errorf("senior: lock seat: %w", err)
        }
        if !ok {
            return fail(ReasonLockTimeout), nil
        }
        locked = append(locked, id)
    }

    keys := applyKeys(gameID, userID, ids)
    args := []interface{}{MaxPerGame, e.counterTTL.Milliseconds()}
    for _, id := range ids {
        args = append(args, id)
    }
    verdict, err := applyScript.Run(ctx, e.rdb, keys, args...).Int()
    if err != nil {
        return Result{}, fmt.Errorf("senior: apply: %w", err)
    }
    switch verdict {
    case 1:
        return fail(ReasonSeatTaken), nil
    case 2:
        return fail(ReasonBlockedByGeneral), nil
    case 3:
        return fail(ReasonLimit), nil
    }

    resIDs, err := e.persist(ctx, userID, gameID, ids)
    if err != nil {
        undoArgs := []interface{}{}
        for _, id := range ids {
            undoArgs = append(undoArgs, id)
        }
        if uerr := undoScript.Run(context.WithoutCancel(ctx), e.rdb, keys, undoArgs...).Err(); uerr != nil {
            log.Printf("senior: undo game=%d user=%d: %v", gameID, userID, uerr)
        }
        log.Printf("senior: persist game=%d user=%d: %v", gameID, userID, err)
        return Result{OK: false, Reason: ReasonConfirmFail, Detail: "reservation could not be stored"}, nil
    }

    labels := make([]string, len(ids))
    for i, id := range ids {
        labels[i] = e.cat.DisplayNameOf(id)
    }
    ev := queue.TicketsConfirmedEvent{
        UserID:         userID,
        GameID:         gameID,
        Channel:        string(model.ChannelSenior),
        ReservationIDs: resIDs,
        SeatIDs:        ids,
        SeatLabels:     labels,
        ConfirmedAt:    time.Now().UTC().Format(time.RFC3339),
    }
    if err := e.pub.PublishTicketsConfirmed(ctx, ev); err != nil {
        log.Printf("senior: publish tickets.confirmed: %v", err)
    }
    return Result{OK: true, SeatIDs: ids, Seats: labels, ReservationIDs: resIDs}, nil
}

func (e *Engine) persist(ctx context.Context, userID, gameID uint64, ids []string) ([]uint64, error) {
    tx, err := e.ledger.Begin(ctx)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    out := make([]uint64, 0, len(ids))
    for _, id := range ids {
        rid, err := tx.InsertReservation(ctx, userID, gameID, id, model.ChannelSenior)
        if err != nil {
            return nil, err
        }
        ok, err := tx.IssueTicket(ctx, rid)
        if err != nil {
            return nil, err
        }
        if !ok {
            return nil, fmt.Errorf("ticket not issued for reservation %d", rid)
        }
        out = append(out, rid)
    }
    committed = true
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    return out, nil
}

// Restore lifts senior counters to the durable per-user counts.
func (e *Engine) Restore(ctx context.Context) error {
    counts, err := e.ledger.SeniorBookedCountsByUser(ctx)
    if err != nil {
        return fmt.Errorf("senior: booked counts: %w", err)
    }
    for _, c := range counts {
        key := coord.SeniorCounterKey(c.GameID, c.UserID)
        if _, err := coord.RaiseCounter(ctx, e.rdb, key, int64(c.Count), e.counterTTL); err != nil {
            return fmt.Errorf("senior: restore %s: %w", key, err)
        }
    }
    if len(counts) > 0 {
        log.Printf("senior: restored %d counters", len(counts))
    }
    return nil
}

func applyKeys(gameID, userID uint64, ids []string) []string {
    keys := []string{
        coord.SoldKey(gameID),
        coord.SeniorCounterKey(gameID, userID),
        coord.GeneralCounterKey(gameID, userID),
    }
    for _, id := range ids {
        keys = append(keys, coord.HoldKey(gameID, id))
    }
    return keys
}

// KEYS: sold, senior counter, general counter, hold per seat.
// ARGV: cap, counter ttl ms, seats...
// Returns 0 on success, 1 seat taken, 2 general booking, 3 over cap.
var applyScript = redis.NewScript(`
    local n = #ARGV - 2
    if tonumber(redis.call('GET', KEYS[3]) or '0') > 0 then
        return 2
    end
    if tonumber(redis.call('GET', KEYS[2]) or '0') + n > tonumber(ARGV[1]) then
        return 3
    end
    for i = 1, n do
        if redis.call('SISMEMBER', KEYS[1], ARGV[i + 2]) == 1 or redis.call('EXISTS', KEYS[3 + i]) == 1 then
            return 1
        end
    end
    for i = 1, n do
        redis.call('SADD', KEYS[1], ARGV[i + 2])
    end
    redis.call('INCRBY', KEYS[2], n)
    redis.call('PEXPIRE', KEYS[2], ARGV[2])
    return 0
`)

// Same keys as applyScript.  ARGV: seats...
var undoScript = redis.NewScript(`
    local n = #ARGV
    for i = 1, n do
        redis.call('SREM', KEYS[1], ARGV[i])
    end
    if redis.call('DECRBY', KEYS[2], n) <= 0 then
        redis.call('DEL', KEYS[2])
    end
    return 1
`)
