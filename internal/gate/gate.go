// Package gate is the per-game waiting room.  It bounds how many purchasers
// may hold an admission session at once, keeps everybody else in FIFO order
// and reclaims permits from sessions that expire without an explicit leave.
//
// A user moves absent -> waiting -> active -> (left | expired).  All state
// lives in Redis so every server instance sees the same queue and permit
// pool.
package gate

import (
    "context"
    "errors"
    "fmt"
    "log"
    "strconv"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/ballpark-reservation/internal/config"
    "github.com/iliyamo/ballpark-reservation/internal/coord"
)

// Reason codes returned in gate results.
const (
    ReasonAlreadyBooked = "ALREADY_BOOKED"
    ReasonNotFound      = "NOT_FOUND"
    ReasonExtendLimit   = "EXTEND_LIMIT"
)

// User states reported by StatusFor.
const (
    StateAbsent  = "ABSENT"
    StateWaiting = "WAITING"
    StateActive  = "ACTIVE"
    StateExpired = "EXPIRED"
)

// Config sizes the gate.
type Config struct {
    Permits       int
    SessionTTL    time.Duration
    ExtendStep    time.Duration
    MaxExtensions int
    ReapInterval  time.Duration
}

// FromEngine picks the gate settings out of the engine config.
func FromEngine(c config.EngineConfig) Config {
    return Config{
        Permits:       c.GatePermits,
        SessionTTL:    c.GateSessionTTL,
        ExtendStep:    c.GateExtendStep,
        MaxExtensions: c.GateMaxExtensions,
        ReapInterval:  c.ReapInterval,
    }
}

// EnqueueResult reports the outcome of Enqueue.
type EnqueueResult struct {
    Queued  bool   `json:"queued"`
    Waiting int64  `json:"waiting"`
    Reason  string `json:"reason,omitempty"`
}

// ExtendResult reports the outcome of ExtendSession.
type ExtendResult struct {
    OK         bool          `json:"ok"`
    Reason     string        `json:"reason,omitempty"`
    Extensions int64         `json:"extensions"`
    Remaining  time.Duration `json:"remaining_ns"`
}

// Status is the game-wide view of the gate.
type Status struct {
    Waiting          int64 `json:"waiting"`
    AvailablePermits int   `json:"available_permits"`
}

// UserStatus is one purchaser's view of the gate.
type UserStatus struct {
    State     string        `json:"state"`
    Position  int64         `json:"position,omitempty"`
    Remaining time.Duration `json:"remaining_ns,omitempty"`
}

// Gate is safe for concurrent use by any number of goroutines and
// processes.
type Gate struct {
    rdb redis.UniversalClient
    cfg Config
}

func New(rdb redis.UniversalClient, cfg Config) *Gate {
    if cfg.Permits < 1 {
        cfg.Permits = 1
    }
    if cfg.ReapInterval <= 0 {
        cfg.ReapInterval = 2 * time.Second
    }
    return &Gate{rdb: rdb, cfg: cfg}
}

// activateScript admits a popped user only while they are still waiting.
var activateScript = redis.NewScript(`
    if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 0 then
        return 0
    end
    redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
    redis.call('DEL', KEYS[3])
    redis.call('SADD', KEYS[4], ARGV[1])
    redis.call('SREM', KEYS[1], ARGV[1])
    return 1
`)

func (g *Gate) permits(gameID uint64) *coord.Semaphore {
    return coord.NewSemaphore(g.rdb, coord.GatePermitsKey(gameID), g.cfg.Permits)
}

// Enqueue places the user in the waiting room and tries to admit the head
// of the queue right away.  Users who already completed a purchase for the
// game are turned away so they cannot squat in the queue.
func (g *Gate) Enqueue(ctx context.Context, gameID, userID uint64) (EnqueueResult, error) {
    booked, err := g.rdb.Exists(ctx, coord.BookedKey(gameID, userID)).Result()
    if err != nil {
        return EnqueueResult{}, fmt.Errorf("gate: check booked: %w", err)
    }
    if booked > 0 {
        return EnqueueResult{Queued: false, Reason: ReasonAlreadyBooked}, nil
    }
    member := coord.UserToken(userID)
    active, err := g.rdb.SIsMember(ctx, coord.GateActiveKey(gameID), member).Result()
    if err != nil {
        return EnqueueResult{}, fmt.Errorf("gate: check active: %w", err)
    }
    if active {
        live, err := g.HasSession(ctx, gameID, userID)
        if err != nil {
            return EnqueueResult{}, err
        }
        if !live {
            if _, err := g.evict(ctx, gameID, userID); err != nil {
                return EnqueueResult{}, err
            }
            active = false
        }
    }
    if !active {
        added, err := g.rdb.SAdd(ctx, coord.GateWaitingKey(gameID), member).Result()
        if err != nil {
            return EnqueueResult{}, fmt.Errorf("gate: add waiting: %w", err)
        }
        if added == 1 {
            if err := g.rdb.RPush(ctx, coord.GateQueueKey(gameID), member).Err(); err != nil {
                return EnqueueResult{}, fmt.Errorf("gate: push queue: %w", err)
            }
        }
        if err := g.rdb.SAdd(ctx, coord.GatesKey, gameID).Err(); err != nil {
            return EnqueueResult{}, fmt.Errorf("gate: register game: %w", err)
        }
        if err := g.AssignNextIfPossible(ctx, gameID); err != nil {
            return EnqueueResult{}, err
        }
    }
    n, err := g.rdb.LLen(ctx, coord.GateQueueKey(gameID)).Result()
    if err != nil {
        return EnqueueResult{}, fmt.Errorf("gate: queue length: %w", err)
    }
    return EnqueueResult{Queued: true, Waiting: n}, nil
}

// AssignNextIfPossible promotes the queue head when a permit is free.  It is
// the only promotion path and may be called redundantly and concurrently:
// the queue pop and the permit acquire are each atomic, and a popped user
// that is already active is dropped without taking a permit.
func (g *Gate) AssignNextIfPossible(ctx context.Context, gameID uint64) error {
    sem := g.permits(gameID)
    free, err := sem.Available(ctx)
    if err != nil {
        return fmt.Errorf("gate: permits: %w", err)
    }
    if free <= 0 {
        return nil
    }
    member, err := g.rdb.LPop(ctx, coord.GateQueueKey(gameID)).Result()
    if errors.Is(err, redis.Nil) {
        return nil
    }
    if err != nil {
        return fmt.Errorf("gate: pop queue: %w", err)
    }
    userID, err := strconv.ParseUint(member, 10, 64)
    if err != nil {
        log.Printf("gate: dropping malformed queue entry %q for game %d", member, gameID)
        return nil
    }
    active, err := g.rdb.SIsMember(ctx, coord.GateActiveKey(gameID), member).Result()
    if err != nil {
        return fmt.Errorf("gate: check active: %w", err)
    }
    if active {
        return g.rdb.SRem(ctx, coord.GateWaitingKey(gameID), member).Err()
    }
    ok, err := sem.TryAcquire(ctx)
    if err != nil || !ok {
        if perr := g.rdb.LPush(ctx, coord.GateQueueKey(gameID), member).Err(); perr != nil {
            log.Printf("gate: requeue user %d for game %d failed: %v", userID, gameID, perr)
        }
        if err != nil {
            return fmt.Errorf("gate: acquire permit: %w", err)
        }
        return nil
    }
    keys := []string{
        coord.GateWaitingKey(gameID),
        coord.GateSessionKey(gameID, userID),
        coord.GateExtensionKey(gameID, userID),
        coord.GateActiveKey(gameID),
    }
    n, err := activateScript.Run(ctx, g.rdb, keys, member, time.Now().UTC().Unix(), g.cfg.SessionTTL.Milliseconds()).Int()
    if err != nil {
        _ = sem.Release(ctx)
        _ = g.rdb.LPush(ctx, coord.GateQueueKey(gameID), member).Err()
        return fmt.Errorf("gate: activate user %d: %w", userID, err)
    }
    if n == 0 {
        // left between the pop and activation
        if err := sem.Release(ctx); err != nil {
            return fmt.Errorf("gate: release permit: %w", err)
        }
        return g.AssignNextIfPossible(ctx, gameID)
    }
    return nil
}

// evict drops a user from the active set and returns their permit.  The
// SREM result decides ownership, so only one caller releases the permit.
func (g *Gate) evict(ctx context.Context, gameID, userID uint64) (bool, error) {
    removed, err := g.rdb.SRem(ctx, coord.GateActiveKey(gameID), coord.UserToken(userID)).Result()
    if err != nil {
        return false, fmt.Errorf("gate: evict user %d: %w", userID, err)
    }
    if removed == 0 {
        return false, nil
    }
    _ = g.rdb.Del(ctx, coord.GateExtensionKey(gameID, userID)).Err()
    if err := g.permits(gameID).Release(ctx); err != nil {
        return true, fmt.Errorf("gate: release permit: %w", err)
    }
    return true, nil
}

// Leave ends the user's session, or drops the user from the queue if not
// yet admitted.  A returned permit immediately admits the next user.
func (g *Gate) Leave(ctx context.Context, gameID, userID uint64) (bool, error) {
    member := coord.UserToken(userID)
    var removed, dequeued *redis.IntCmd
    _, err := g.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
        pipe.Del(ctx, coord.GateSessionKey(gameID, userID), coord.GateExtensionKey(gameID, userID))
        removed = pipe.SRem(ctx, coord.GateActiveKey(gameID), member)
        dequeued = pipe.SRem(ctx, coord.GateWaitingKey(gameID), member)
        pipe.LRem(ctx, coord.GateQueueKey(gameID), 0, member)
        return nil
    })
    if err != nil {
        return false, fmt.Errorf("gate: leave: %w", err)
    }
    if removed.Val() == 1 {
        if err := g.permits(gameID).Release(ctx); err != nil {
            return false, fmt.Errorf("gate: release permit: %w", err)
        }
        if err := g.AssignNextIfPossible(ctx, gameID); err != nil {
            return true, err
        }
    }
    return removed.Val() == 1 || dequeued.Val() == 1, nil
}

// ExtendSession adds one ExtendStep to a live session, at most
// MaxExtensions times.
func (g *Gate) ExtendSession(ctx context.Context, gameID, userID uint64) (ExtendResult, error) {
    sessionKey := coord.GateSessionKey(gameID, userID)
    ttl, err := g.rdb.PTTL(ctx, sessionKey).Result()
    if err != nil {
        return ExtendResult{}, fmt.Errorf("gate: session ttl: %w", err)
    }
    if ttl <= 0 {
        return ExtendResult{OK: false, Reason: ReasonNotFound}, nil
    }
    extKey := coord.GateExtensionKey(gameID, userID)
    n, err := g.rdb.Incr(ctx, extKey).Result()
    if err != nil {
        return ExtendResult{}, fmt.Errorf("gate: count extension: %w", err)
    }
    if n > int64(g.cfg.MaxExtensions) {
        _ = g.rdb.Decr(ctx, extKey).Err()
        return ExtendResult{OK: false, Reason: ReasonExtendLimit, Extensions: n - 1, Remaining: ttl}, nil
    }
    next := ttl + g.cfg.ExtendStep
    ok, err := g.rdb.PExpire(ctx, sessionKey, next).Result()
    if err != nil {
        return ExtendResult{}, fmt.Errorf("gate: extend session: %w", err)
    }
    if !ok {
        _ = g.rdb.Del(ctx, extKey).Err()
        return ExtendResult{OK: false, Reason: ReasonNotFound}, nil
    }
    if err := g.rdb.PExpire(ctx, extKey, next).Err(); err != nil {
        return ExtendResult{}, fmt.Errorf("gate: arm extension ttl: %w", err)
    }
    return ExtendResult{OK: true, Extensions: n, Remaining: next}, nil
}

// HasSession reports whether the user holds a live admission session.
func (g *Gate) HasSession(ctx context.Context, gameID, userID uint64) (bool, error) {
    n, err := g.rdb.Exists(ctx, coord.GateSessionKey(gameID, userID)).Result()
    if err != nil {
        return false, fmt.Errorf("gate: session lookup: %w", err)
    }
    return n > 0, nil
}

// Status reports queue length and free permits for a game.
func (g *Gate) Status(ctx context.Context, gameID uint64) (Status, error) {
    n, err := g.rdb.LLen(ctx, coord.GateQueueKey(gameID)).Result()
    if err != nil {
        return Status{}, fmt.Errorf("gate: queue length: %w", err)
    }
    free, err := g.permits(gameID).Available(ctx)
    if err != nil {
        return Status{}, fmt.Errorf("gate: permits: %w", err)
    }
    return Status{Waiting: n, AvailablePermits: free}, nil
}

// StatusFor reports where a single user stands.  Position is 1-based.
func (g *Gate) StatusFor(ctx context.Context, gameID, userID uint64) (UserStatus, error) {
    member := coord.UserToken(userID)
    active, err := g.rdb.SIsMember(ctx, coord.GateActiveKey(gameID), member).Result()
    if err != nil {
        return UserStatus{}, fmt.Errorf("gate: check active: %w", err)
    }
    if active {
        ttl, err := g.rdb.PTTL(ctx, coord.GateSessionKey(gameID, userID)).Result()
        if err != nil {
            return UserStatus{}, fmt.Errorf("gate: session ttl: %w", err)
        }
        if ttl <= 0 {
            return UserStatus{State: StateExpired}, nil
        }
        return UserStatus{State: StateActive, Remaining: ttl}, nil
    }
    queue, err := g.rdb.LRange(ctx, coord.GateQueueKey(gameID), 0, -1).Result()
    if err != nil {
        return UserStatus{}, fmt.Errorf("gate: read queue: %w", err)
    }
    for i, m := range queue {
        if m == member {
            return UserStatus{State: StateWaiting, Position: int64(i + 1)}, nil
        }
    }
    return UserStatus{State: StateAbsent}, nil
}
