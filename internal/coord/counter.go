package coord

import (
    "context"
    "errors"
    "time"

    "github.com/redis/go-redis/v9"
)

var raiseScript = redis.NewScript(`
    local v = tonumber(redis.call('GET', KEYS[1])) or 0
    local want = tonumber(ARGV[1])
    if want > v then
        redis.call('SET', KEYS[1], want, 'PX', ARGV[2])
        return want
    end
    return v
`)

// RaiseCounter lifts the counter at key to at least value and re-arms ttl
// when it changes.  It never lowers a counter, so restoring from the durable
// store cannot undo bookings made since the last restart.
func RaiseCounter(ctx context.Context, rdb redis.UniversalClient, key string, value int64, ttl time.Duration) (int64, error) {
    return raiseScript.Run(ctx, rdb, []string{key}, value, ttl.Milliseconds()).Int64()
}

// Counter reads an integer counter, treating a missing key as zero.
func Counter(ctx context.Context, rdb redis.UniversalClient, key string) (int64, error) {
    n, err := rdb.Get(ctx, key).Int64()
    if errors.Is(err, redis.Nil) {
        return 0, nil
    }
    return n, err
}
