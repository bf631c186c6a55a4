package config

import "time"

// EngineConfig carries the tunables of the admission gate, the seat lock
// engine and the two assignment channels.  Every value has a default so a
// bare environment yields a working service.
type EngineConfig struct {
    GatePermits       int           // concurrent purchasers admitted per game
    GateSessionTTL    time.Duration // lifetime of an admission session
    GateExtendStep    time.Duration // time added by one extension
    GateMaxExtensions int           // extensions allowed per session
    ReapInterval      time.Duration // cadence of the gate and hold reapers

    HoldTTL        time.Duration // lifetime of a seat hold and its lock lease
    HoldMaxPerUser int           // seats one purchaser may hold per game
    BookedTTL      time.Duration // lifetime of the completed-booking flag
    ConfirmGrace   time.Duration // minimum hold lifetime kept while confirm writes durable rows

    SeniorLockWait      time.Duration // bounded wait for each senior commit lock
    CounterTTL          time.Duration // lifetime of senior/general booking counters
    GeneralSeniorCutoff time.Duration // senior seats stay out of general sale until start minus this
    SeniorWindow        time.Duration // senior booking opens at start minus this
}

// LoadEngineConfig reads the engine tunables from the environment.
func LoadEngineConfig() EngineConfig {
    cfg := EngineConfig{
        GatePermits:       envInt("GATE_PERMITS", 100),
        GateSessionTTL:    envDur("GATE_SESSION_TTL", 5*time.Minute),
        GateExtendStep:    envDur("GATE_EXTEND_STEP", time.Minute),
        GateMaxExtensions: envInt("GATE_MAX_EXTENSIONS", 2),
        ReapInterval:      envDur("REAP_INTERVAL", 2*time.Second),

        HoldTTL:        envDur("HOLD_TTL", 120*time.Second),
        HoldMaxPerUser: envInt("HOLD_MAX_PER_USER", 4),
        BookedTTL:      envDur("BOOKED_TTL", 6*time.Hour),
        ConfirmGrace:   envDur("CONFIRM_GRACE", 30*time.Second),

        SeniorLockWait:      envDur("SENIOR_LOCK_WAIT", 300*time.Millisecond),
        CounterTTL:          envDur("COUNTER_TTL", 720*time.Hour),
        GeneralSeniorCutoff: envDur("GENERAL_SENIOR_CUTOFF", 48*time.Hour),
        SeniorWindow:        envDur("SENIOR_WINDOW", 7*24*time.Hour),
    }
    if cfg.GatePermits < 1 { cfg.GatePermits = 1 }
    if cfg.ReapInterval <= 0 { cfg.ReapInterval = 2 * time.Second }
    if cfg.HoldMaxPerUser < 1 { cfg.HoldMaxPerUser = 1 }
    if cfg.GateMaxExtensions < 0 { cfg.GateMaxExtensions = 0 }
    return cfg
}
