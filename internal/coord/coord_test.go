package coord

import (
    "context"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return mr, rdb
}

func TestSemaphoreBoundedByCapacity(t *testing.T) {
    _, rdb := newRedis(t)
    ctx := context.Background()
    sem := NewSemaphore(rdb, GatePermitsKey(7), 2)

    if n, err := sem.Available(ctx); err != nil || n != 2 {
        t.Fatalf("Available() = %d, %v; want 2", n, err)
    }
    for i := 0; i < 2; i++ {
        ok, err := sem.TryAcquire(ctx)
        if err != nil || !ok {
            t.Fatalf("acquire %d = %v, %v", i, ok, err)
        }
    }
    if ok, _ := sem.TryAcquire(ctx); ok {
        t.Fatal("third acquire succeeded on a capacity-2 semaphore")
    }
    for i := 0; i < 5; i++ {
        if err := sem.Release(ctx); err != nil {
            t.Fatal(err)
        }
    }
    if n, _ := sem.Available(ctx); n != 2 {
        t.Errorf("Available() after over-release = %d, want 2", n)
    }
}

func TestMutexOwnership(t *testing.T) {
    mr, rdb := newRedis(t)
    ctx := context.Background()
    m := NewMutex(rdb)
    key := SeatLockKey(1, "Z-A1")

    if ok, _ := m.TryLock(ctx, key, "alice", time.Minute); !ok {
        t.Fatal("first TryLock failed")
    }
    if ok, _ := m.TryLock(ctx, key, "bob", time.Minute); ok {
        t.Fatal("second TryLock succeeded while held")
    }
    if ok, _ := m.Unlock(ctx, key, "bob"); ok {
        t.Fatal("non-owner unlocked the mutex")
    }
    mr.FastForward(61 * time.Second)
    if ok, _ := m.TryLock(ctx, key, "bob", time.Minute); !ok {
        t.Fatal("lock not reclaimable after lease expiry")
    }
    if err := m.ForceUnlock(ctx, key); err != nil {
        t.Fatal(err)
    }
    if mr.Exists(key) {
        t.Fatal("ForceUnlock left the key behind")
    }
}

func TestLockWaitTimesOut(t *testing.T) {
    _, rdb := newRedis(t)
    ctx := context.Background()
    m := NewMutex(rdb)
    key := SeatLockKey(1, "Z-A2")
    if ok, _ := m.TryLock(ctx, key, "alice", time.Minute); !ok {
        t.Fatal("TryLock failed")
    }
    start := time.Now()
    ok, err := m.LockWait(ctx, key, "bob", time.Minute, 100*time.Millisecond)
    if err != nil || ok {
        t.Fatalf("LockWait = %v, %v; want false, nil", ok, err)
    }
    if time.Since(start) < 100*time.Millisecond {
        t.Error("LockWait returned before the wait elapsed")
    }
}

func TestParseHoldKey(t *testing.T) {
    for _, tc := range []struct {
        key  string
        game uint64
        seat string
        ok   bool
    }{
        {HoldKey(12, "1B-A7"), 12, "1B-A7", true},
        {"hold:x:1B-A7", 0, "", false},
        {"hold:12:", 0, "", false},
        {"lock:seat:12:1B", 0, "", false},
    } {
        game, seat, ok := ParseHoldKey(tc.key)
        if game != tc.game || seat != tc.seat || ok != tc.ok {
            t.Errorf("ParseHoldKey(%q) = %d, %q, %v", tc.key, game, seat, ok)
        }
    }
}

func TestRaiseCounterNeverLowers(t *testing.T) {
    mr, rdb := newRedis(t)
    ctx := context.Background()
    key := SeniorCounterKey(3, 9)

    if n, err := Counter(ctx, rdb, key); err != nil || n != 0 {
        t.Fatalf("Counter(missing) = %d, %v", n, err)
    }
    if n, err := RaiseCounter(ctx, rdb, key, 2, time.Hour); err != nil || n != 2 {
        t.Fatalf("RaiseCounter = %d, %v; want 2", n, err)
    }
    if ttl := mr.TTL(key); ttl != time.Hour {
        t.Errorf("ttl = %v, want 1h", ttl)
    }
    if n, _ := RaiseCounter(ctx, rdb, key, 1, time.Hour); n != 2 {
        t.Errorf("RaiseCounter lowered counter to %d", n)
    }
    if n, _ := Counter(ctx, rdb, key); n != 2 {
        t.Errorf("Counter = %d, want 2", n)
    }
}
