package coord

import (
    "context"
    "time"

    "github.com/redis/go-redis/v9"
)

var unlockScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// retryStep is the polling interval used by LockWait.
const retryStep = 20 * time.Millisecond

// Mutex is a lease-based mutual exclusion lock.  The key holds the owner
// token and expires with the lease, so a crashed owner never blocks the
// resource beyond one lease.
type Mutex struct {
    rdb redis.UniversalClient
}

func NewMutex(rdb redis.UniversalClient) *Mutex { return &Mutex{rdb: rdb} }

// TryLock attempts the lock once, with zero wait.
func (m *Mutex) TryLock(ctx context.Context, key, owner string, lease time.Duration) (bool, error) {
    return m.rdb.SetNX(ctx, key, owner, lease).Result()
}

// LockWait keeps trying until the lock is taken or wait has elapsed.
func (m *Mutex) LockWait(ctx context.Context, key, owner string, lease, wait time.Duration) (bool, error) {
    deadline := time.Now().Add(wait)
    for {
        ok, err := m.TryLock(ctx, key, owner, lease)
        if err != nil || ok {
            return ok, err
        }
        if !time.Now().Before(deadline) {
            return false, nil
        }
        select {
        case <-ctx.Done():
            return false, ctx.Err()
        case <-time.After(retryStep):
        }
    }
}

// Unlock releases the lock only if owner still holds it.
func (m *Mutex) Unlock(ctx context.Context, key, owner string) (bool, error) {
    n, err := unlockScript.Run(ctx, m.rdb, []string{key}, owner).Int()
    return n == 1, err
}

// ForceUnlock drops the lock regardless of owner.
func (m *Mutex) ForceUnlock(ctx context.Context, key string) error {
    return m.rdb.Del(ctx, key).Err()
}
