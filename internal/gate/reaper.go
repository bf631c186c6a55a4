package gate

import (
    "context"
    "fmt"
    "log"
    "strconv"
    "time"

    "github.com/iliyamo/ballpark-reservation/internal/coord"
)

// ReapExpiredSessions walks every active set and evicts members whose
// session key has expired, returning their permits and admitting the next
// waiting users.  The SREM result decides which reaper owns an eviction, so
// concurrent reapers on several instances release each permit once.
func (g *Gate) ReapExpiredSessions(ctx context.Context) error {
    games, err := g.rdb.SMembers(ctx, coord.GatesKey).Result()
    if err != nil {
        return fmt.Errorf("gate: list games: %w", err)
    }
    for _, raw := range games {
        gameID, err := strconv.ParseUint(raw, 10, 64)
        if err != nil {
            continue
        }
        if err := g.reapGame(ctx, gameID); err != nil {
            return err
        }
    }
    return nil
}

func (g *Gate) reapGame(ctx context.Context, gameID uint64) error {
    members, err := g.rdb.SMembers(ctx, coord.GateActiveKey(gameID)).Result()
    if err != nil {
        return fmt.Errorf("gate: list active: %w", err)
    }
    for _, member := range members {
        userID, err := strconv.ParseUint(member, 10, 64)
        if err != nil {
            _ = g.rdb.SRem(ctx, coord.GateActiveKey(gameID), member).Err()
            continue
        }
        live, err := g.HasSession(ctx, gameID, userID)
        if err != nil {
            return err
        }
        if live {
            continue
        }
        evicted, err := g.evict(ctx, gameID, userID)
        if err != nil {
            return err
        }
        if !evicted {
            continue
        }
        log.Printf("gate: reaped expired session game=%d user=%d", gameID, userID)
        if err := g.AssignNextIfPossible(ctx, gameID); err != nil {
            return err
        }
    }
    return nil
}

// Run reaps on every ReapInterval tick until ctx is cancelled.
func (g *Gate) Run(ctx context.Context) {
    t := time.NewTicker(g.cfg.ReapInterval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            if err := g.ReapExpiredSessions(ctx); err != nil && ctx.Err() == nil {
                log.Printf("gate: reap failed: %v", err)
            }
        }
    }
}
