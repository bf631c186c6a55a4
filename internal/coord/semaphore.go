package coord

import (
    "context"
    "errors"
    "strconv"

    "github.com/redis/go-redis/v9"
)

// The permit counter is created lazily at capacity the first time it is
// touched, so a fresh game needs no setup step.
var acquireScript = redis.NewScript(`
    local cap = tonumber(ARGV[1])
    local v = tonumber(redis.call('GET', KEYS[1]))
    if v == nil then v = cap end
    if v > 0 then
        redis.call('SET', KEYS[1], v - 1)
        return 1
    end
    redis.call('SET', KEYS[1], v)
    return 0
`)

var releaseScript = redis.NewScript(`
    local cap = tonumber(ARGV[1])
    local v = tonumber(redis.call('GET', KEYS[1]))
    if v == nil then v = cap end
    if v < cap then v = v + 1 end
    redis.call('SET', KEYS[1], v)
    return v
`)

// Semaphore is a counting semaphore stored under a single Redis key.
// Releases never raise the count above capacity.
type Semaphore struct {
    rdb      redis.UniversalClient
    key      string
    capacity int
}

func NewSemaphore(rdb redis.UniversalClient, key string, capacity int) *Semaphore {
    return &Semaphore{rdb: rdb, key: key, capacity: capacity}
}

// TryAcquire takes one permit without waiting.
func (s *Semaphore) TryAcquire(ctx context.Context) (bool, error) {
    n, err := acquireScript.Run(ctx, s.rdb, []string{s.key}, s.capacity).Int()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// Release returns one permit.
func (s *Semaphore) Release(ctx context.Context) error {
    return releaseScript.Run(ctx, s.rdb, []string{s.key}, s.capacity).Err()
}

// Available reports the number of free permits.
func (s *Semaphore) Available(ctx context.Context) (int, error) {
    v, err := s.rdb.Get(ctx, s.key).Result()
    if errors.Is(err, redis.Nil) {
        return s.capacity, nil
    }
    if err != nil {
        return 0, err
    }
    return strconv.Atoi(v)
}
