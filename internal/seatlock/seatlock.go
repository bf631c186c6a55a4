// Package seatlock turns a seat into a safely shareable resource: a
// purchaser with a live gate session may hold a seat for a bounded time,
// confirm held seats into sold ones, or release them.
//
// Per (game, seat) there is exactly one of AVAILABLE, HELD or SOLD.  HELD is
// a hold record carrying the holder id plus a lease mutex, both expiring
// together; SOLD is membership in the game's sold set, mirrored durably in
// the ledger.
package seatlock

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/ballpark-reservation/internal/catalog"
    "github.com/iliyamo/ballpark-reservation/internal/config"
    "github.com/iliyamo/ballpark-reservation/internal/coord"
    "github.com/iliyamo/ballpark-reservation/internal/events"
    "github.com/iliyamo/ballpark-reservation/internal/store"
)

// Code is a machine readable outcome.
type Code string

const (
    OK              Code = "OK"
    SessionMissing  Code = "SESSION_MISSING"
    AlreadyBooked   Code = "ALREADY_BOOKED"
    InvalidSeat     Code = "INVALID_SEAT"
    Conflict        Code = "CONFLICT"
    LimitExceeded   Code = "LIMIT_EXCEEDED"
    InvalidRequest  Code = "INVALID_REQUEST"
    NotHolder       Code = "NOT_HOLDER"
    HoldLost        Code = "HOLD_LOST"
    BlockedBySenior Code = "BLOCKED_BY_SENIOR_BOOKING"
    ConfirmFail     Code = "CONFIRM_FAIL"
)

// Seat state labels reported by StatusFor.
const (
    StateInvalid   = "INVALID"
    StateSold      = "SOLD"
    StateHeldByMe  = "HELD_BY_ME"
    StateHeld      = "HELD"
    StateAvailable = "AVAILABLE"
)

// Sessions answers whether a purchaser is currently admitted by the gate.
type Sessions interface {
    HasSession(ctx context.Context, gameID, userID uint64) (bool, error)
}

// Config holds the engine tunables.
type Config struct {
    HoldTTL      time.Duration
    MaxPerUser   int
    BookedTTL    time.Duration
    ConfirmGrace time.Duration
    CounterTTL   time.Duration
    ReapInterval time.Duration
}

// FromEngine picks the seat lock settings out of the engine config.
func FromEngine(c config.EngineConfig) Config {
    return Config{
        HoldTTL:      c.HoldTTL,
        MaxPerUser:   c.HoldMaxPerUser,
        BookedTTL:    c.BookedTTL,
        ConfirmGrace: c.ConfirmGrace,
        CounterTTL:   c.CounterTTL,
        ReapInterval: c.ReapInterval,
    }
}

// Engine is safe for concurrent use.
type Engine struct {
    rdb      redis.UniversalClient
    mutex    *coord.Mutex
    cat      *catalog.Catalog
    sessions Sessions
    ledger   store.Ledger
    pub      events.Publisher
    cfg      Config
}

func New(rdb redis.UniversalClient, cat *catalog.Catalog, sessions Sessions, ledger store.Ledger, pub events.Publisher, cfg Config) *Engine {
    if pub == nil {
        pub = events.Noop{}
    }
    if cfg.ReapInterval <= 0 {
        cfg.ReapInterval = 2 * time.Second
    }
    return &Engine{
        rdb:      rdb,
        mutex:    coord.NewMutex(rdb),
        cat:      cat,
        sessions: sessions,
        ledger:   ledger,
        pub:      pub,
        cfg:      cfg,
    }
}

// HoldTTL is the lifetime of a fresh hold.
func (e *Engine) HoldTTL() time.Duration { return e.cfg.HoldTTL }

// TryHold claims one seat for the purchaser.  Preconditions are checked in
// a fixed order and the first failing one decides the code.  Holding a seat
// the caller already holds is a successful no-op.
func (e *Engine) TryHold(ctx context.Context, userID, gameID uint64, zoneID, seatID string) (Code, error) {
    live, err := e.sessions.HasSession(ctx, gameID, userID)
    if err != nil {
        return "", err
    }
    if !live {
        return SessionMissing, nil
    }
    booked, err := e.rdb.Exists(ctx, coord.BookedKey(gameID, userID)).Result()
    if err != nil {
        return "", fmt.Errorf("seatlock: booked flag: %w", err)
    }
    if booked > 0 {
        return AlreadyBooked, nil
    }
    if !e.cat.SeatBelongsToZone(zoneID, seatID) {
        return InvalidSeat, nil
    }
    sold, err := e.rdb.SIsMember(ctx, coord.SoldKey(gameID), seatID).Result()
    if err != nil {
        return "", fmt.Errorf("seatlock: sold lookup: %w", err)
    }
    if sold {
        return Conflict, nil
    }
    holder, err := e.holderOf(ctx, gameID, seatID)
    if err != nil {
        return "", err
    }
    if holder == coord.UserToken(userID) {
        return OK, nil
    }
    n, err := e.liveHoldCount(ctx, gameID, userID)
    if err != nil {
        return "", err
    }
    if n >= e.cfg.MaxPerUser {
        return LimitExceeded, nil
    }

    owner := coord.UserToken(userID)
    lockKey := coord.SeatLockKey(gameID, seatID)
    locked, err := e.mutex.TryLock(ctx, lockKey, owner, e.cfg.HoldTTL)
    if err != nil {
        return "", fmt.Errorf("seatlock: lock seat: %w", err)
    }
    if !locked {
        return Conflict, nil
    }
    recorded, err := holdScript.Run(ctx, e.rdb,
        []string{coord.HoldKey(gameID, seatID), coord.HoldSetKey(gameID, userID)},
        owner, seatID, e.cfg.HoldTTL.Milliseconds(), e.cfg.MaxPerUser,
    ).Int()
    if err != nil || recorded == 0 {
        _, _ = e.mutex.Unlock(ctx, lockKey, owner)
        if err != nil {
            return "", fmt.Errorf("seatlock: record hold: %w", err)
        }
        return LimitExceeded, nil
    }
    return OK, nil
}

// Release drops the caller's hold on one seat.  It reports false when the
// seat is not in the zone or the caller is not the current holder.
func (e *Engine) Release(ctx context.Context, userID, gameID uint64, zoneID, seatID string) (bool, error) {
    if !e.cat.SeatBelongsToZone(zoneID, seatID) {
        return false, nil
    }
    return e.release(ctx, userID, gameID, seatID)
}

// ReleaseAll drops every hold the caller has for the game and reports how
// many were released.
func (e *Engine) ReleaseAll(ctx context.Context, userID, gameID uint64) (int, error) {
    seats, err := e.rdb.SMembers(ctx, coord.HoldSetKey(gameID, userID)).Result()
    if err != nil {
        return 0, fmt.Errorf("seatlock: list holds: %w", err)
    }
    n := 0
    for _, seatID := range seats {
        ok, err := e.release(ctx, userID, gameID, seatID)
        if err != nil {
            return n, err
        }
        if ok {
            n++
        }
    }
    _ = e.rdb.Del(ctx, coord.HoldSetKey(gameID, userID)).Err()
    return n, nil
}

func (e *Engine) release(ctx context.Context, userID, gameID uint64, seatID string) (bool, error) {
    n, err := releaseScript.Run(ctx, e.rdb,
        []string{coord.HoldKey(gameID, seatID), coord.HoldSetKey(gameID, userID), coord.SeatLockKey(gameID, seatID)},
        coord.UserToken(userID), seatID,
    ).Int()
    if err != nil {
        return false, fmt.Errorf("seatlock: release %s: %w", seatID, err)
    }
    return n == 1, nil
}

// StatusFor labels each requested seat from the caller's point of view.
func (e *Engine) StatusFor(ctx context.Context, userID, gameID uint64, seatIDs []string) (map[string]string, error) {
    out := make(map[string]string, len(seatIDs))
    pipe := e.rdb.Pipeline()
    soldCmds := make(map[string]*redis.BoolCmd, len(seatIDs))
    holdCmds := make(map[string]*redis.StringCmd, len(seatIDs))
    for _, id := range seatIDs {
        if _, ok := e.cat.Seat(id); !ok {
            out[id] = StateInvalid
            continue
        }
        soldCmds[id] = pipe.SIsMember(ctx, coord.SoldKey(gameID), id)
        holdCmds[id] = pipe.Get(ctx, coord.HoldKey(gameID, id))
    }
    if len(soldCmds) == 0 {
        return out, nil
    }
    if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
        return nil, fmt.Errorf("seatlock: status: %w", err)
    }
    me := coord.UserToken(userID)
    for id, sold := range soldCmds {
        holder, _ := holdCmds[id].Result()
        switch {
        case sold.Val():
            out[id] = StateSold
        case holder == me:
            out[id] = StateHeldByMe
        case holder != "":
            out[id] = StateHeld
        default:
            out[id] = StateAvailable
        }
    }
    return out, nil
}

func (e *Engine) holderOf(ctx context.Context, gameID uint64, seatID string) (string, error) {
    v, err := e.rdb.Get(ctx, coord.HoldKey(gameID, seatID)).Result()
    if errors.Is(err, redis.Nil) {
        return "", nil
    }
    if err != nil {
        return "", fmt.Errorf("seatlock: hold lookup: %w", err)
    }
    return v, nil
}

// liveHoldCount prunes hold set entries whose hold expired or moved to
// someone else, then returns what is left.
func (e *Engine) liveHoldCount(ctx context.Context, gameID, userID uint64) (int, error) {
    setKey := coord.HoldSetKey(gameID, userID)
    seats, err := e.rdb.SMembers(ctx, setKey).Result()
    if err != nil {
        return 0, fmt.Errorf("seatlock: list holds: %w", err)
    }
    me := coord.UserToken(userID)
    n := 0
    for _, seatID := range seats {
        holder, err := e.holderOf(ctx, gameID, seatID)
        if err != nil {
            return 0, err
        }
        if holder != me {
            _ = e.rdb.SRem(ctx, setKey, seatID).Err()
            continue
        }
        n++
    }
    return n, nil
}
