package seatlock

import (
    "context"
    "errors"
    "fmt"
    "log"
    "strconv"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/ballpark-reservation/internal/coord"
)

const scanBatch = 200

// ReapOrphanedHolds releases holds whose holder no longer has a gate
// session, so abandoned seats come back well before the hold TTL.
func (e *Engine) ReapOrphanedHolds(ctx context.Context) (int, error) {
    iter := e.rdb.Scan(ctx, 0, coord.HoldPrefix+"*", scanBatch).Iterator()
    reaped := 0
    for iter.Next(ctx) {
        key := iter.Val()
        gameID, seatID, ok := coord.ParseHoldKey(key)
        if !ok {
            continue
        }
        holder, err := e.rdb.Get(ctx, key).Result()
        if errors.Is(err, redis.Nil) {
            continue
        }
        if err != nil {
            return reaped, fmt.Errorf("seatlock: read %s: %w", key, err)
        }
        userID, err := strconv.ParseUint(holder, 10, 64)
        if err != nil {
            continue
        }
        live, err := e.sessions.HasSession(ctx, gameID, userID)
        if err != nil {
            return reaped, err
        }
        if live {
            continue
        }
        released, err := e.release(ctx, userID, gameID, seatID)
        if err != nil {
            return reaped, err
        }
        if released {
            reaped++
        }
    }
    if err := iter.Err(); err != nil {
        return reaped, fmt.Errorf("seatlock: scan holds: %w", err)
    }
    return reaped, nil
}

// Run reaps orphaned holds on every tick until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
    t := time.NewTicker(e.cfg.ReapInterval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            n, err := e.ReapOrphanedHolds(ctx)
            if err != nil && ctx.Err() == nil {
                log.Printf("seatlock: reap failed: %v", err)
            }
            if n > 0 {
                log.Printf("seatlock: released %d orphaned holds", n)
            }
        }
    }
}

// Recover seeds the sold set of every game with durable reservations when
// Redis has none, and lifts general-channel counters to the durable counts.
func (e *Engine) Recover(ctx context.Context) error {
    games, err := e.ledger.ReservedGames(ctx)
    if err != nil {
        return fmt.Errorf("seatlock: reserved games: %w", err)
    }
    for _, gameID := range games {
        key := coord.SoldKey(gameID)
        n, err := e.rdb.Exists(ctx, key).Result()
        if err != nil {
            return fmt.Errorf("seatlock: sold set: %w", err)
        }
        if n > 0 {
            continue
        }
        seats, err := e.ledger.ReservedSeatsByGame(ctx, gameID)
        if err != nil {
            return fmt.Errorf("seatlock: reserved seats game %d: %w", gameID, err)
        }
        if len(seats) == 0 {
            continue
        }
        if err := e.rdb.SAdd(ctx, key, seatArgs(seats)...).Err(); err != nil {
            return fmt.Errorf("seatlock: seed sold game %d: %w", gameID, err)
        }
        log.Printf("seatlock: recovered %d sold seats for game %d", len(seats), gameID)
    }

    counts, err := e.ledger.GeneralBookedCountsByUser(ctx)
    if err != nil {
        return fmt.Errorf("seatlock: general counts: %w", err)
    }
    for _, c := range counts {
        key := coord.GeneralCounterKey(c.GameID, c.UserID)
        if _, err := coord.RaiseCounter(ctx, e.rdb, key, int64(c.Count), e.cfg.CounterTTL); err != nil {
            return fmt.Errorf("seatlock: restore counter %s: %w", key, err)
        }
    }
    return nil
}
