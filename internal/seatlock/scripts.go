package seatlock

import "github.com/redis/go-redis/v9"

// KEYS: hold, holdset.  ARGV: holder, seat, ttl ms, per-user cap.
var holdScript = redis.NewScript(`
    if redis.call('SCARD', KEYS[2]) >= tonumber(ARGV[4]) then
        return 0
    end
    redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
    redis.call('SADD', KEYS[2], ARGV[2])
    redis.call('PEXPIRE', KEYS[2], ARGV[3])
    return 1
`)

// KEYS: hold, holdset, lock.  ARGV: holder, seat.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) ~= ARGV[1] then
        return 0
    end
    redis.call('DEL', KEYS[1], KEYS[3])
    redis.call('SREM', KEYS[2], ARGV[2])
    return 1
`)

// The confirm scripts share one key layout:
//   KEYS[1] sold set, KEYS[2] holdset, KEYS[3] booked flag,
//   KEYS[4] general counter, KEYS[5] senior counter,
//   then hold and lock keys per seat: KEYS[4+2i], KEYS[5+2i].
// They answer {0,0} on success, {1,i} when seat i is sold, {2,i} when
// seat i is not held by the caller and {3,0} when a senior booking exists.

// ARGV: holder, grace ms, seats...
var prepareConfirmScript = redis.NewScript(`
    local n = #ARGV - 2
    local grace = tonumber(ARGV[2])
    if tonumber(redis.call('GET', KEYS[5]) or '0') > 0 then
        return {3, 0}
    end
    for i = 1, n do
        if redis.call('SISMEMBER', KEYS[1], ARGV[i + 2]) == 1 then
            return {1, i}
        end
        if redis.call('GET', KEYS[4 + 2 * i]) ~= ARGV[1] then
            return {2, i}
        end
    end
    for i = 1, n do
        for _, k in ipairs({KEYS[4 + 2 * i], KEYS[5 + 2 * i]}) do
            if redis.call('PTTL', k) < grace then
                redis.call('PEXPIRE', k, grace)
            end
        end
    end
    return {0, 0}
`)

// ARGV: holder, booked ttl ms, counter ttl ms, seats...
var commitConfirmScript = redis.NewScript(`
    local n = #ARGV - 3
    if tonumber(redis.call('GET', KEYS[5]) or '0') > 0 then
        return {3, 0}
    end
    for i = 1, n do
        if redis.call('SISMEMBER', KEYS[1], ARGV[i + 3]) == 1 then
            return {1, i}
        end
        if redis.call('GET', KEYS[4 + 2 * i]) ~= ARGV[1] then
            return {2, i}
        end
    end
    for i = 1, n do
        redis.call('SADD', KEYS[1], ARGV[i + 3])
        redis.call('DEL', KEYS[4 + 2 * i], KEYS[5 + 2 * i])
        redis.call('SREM', KEYS[2], ARGV[i + 3])
    end
    redis.call('SET', KEYS[3], '1', 'PX', ARGV[2])
    redis.call('INCRBY', KEYS[4], n)
    redis.call('PEXPIRE', KEYS[4], ARGV[3])
    return {0, 0}
`)

// Puts the seats back on hold for the caller after the durable commit
// failed.  ARGV: holder, grace ms, seats...
var undoConfirmScript = redis.NewScript(`
    local n = #ARGV - 2
    for i = 1, n do
        redis.call('SREM', KEYS[1], ARGV[i + 2])
        redis.call('SET', KEYS[4 + 2 * i], ARGV[1], 'PX', ARGV[2], 'NX')
        redis.call('SET', KEYS[5 + 2 * i], ARGV[1], 'PX', ARGV[2], 'NX')
        redis.call('SADD', KEYS[2], ARGV[i + 2])
    end
    if redis.call('PTTL', KEYS[2]) < tonumber(ARGV[2]) then
        redis.call('PEXPIRE', KEYS[2], ARGV[2])
    end
    redis.call('DEL', KEYS[3])
    if redis.call('DECRBY', KEYS[4], n) <= 0 then
        redis.call('DEL', KEYS[4])
    end
    return 1
`)
