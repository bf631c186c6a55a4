package assign

import (
    "context"
    "fmt"

    "github.com/iliyamo/ballpark-reservation/internal/catalog"
    "github.com/iliyamo/ballpark-reservation/internal/model"
    "github.com/iliyamo/ballpark-reservation/internal/seatlock"
)

// search is the state of one Assign call.
type search struct {
    e             *Engine
    userID        uint64
    gameID        uint64
    excludeSenior bool
}

// usable returns the zone's seats that are AVAILABLE to the caller, in
// catalog order.
func (s *search) usable(ctx context.Context, zoneID string) ([]model.Seat, error) {
    seats := s.e.cat.SeatsInZone(zoneID)
    ids := make([]string, 0, len(seats))
    for _, seat := range seats {
        if s.excludeSenior && seat.Senior {
            continue
        }
        ids = append(ids, seat.ID)
    }
    if len(ids) == 0 {
        return nil, nil
    }
    st, err := s.e.locks.StatusFor(ctx, s.userID, s.gameID, ids)
    if err != nil {
        return nil, fmt.Errorf("assign: seat status: %w", err)
    }
    out := make([]model.Seat, 0, len(ids))
    for _, seat := range seats {
        if st[seat.ID] == seatlock.StateAvailable {
            out = append(out, seat)
        }
    }
    return out, nil
}

// hold tries one seat.  Fatal codes come back as an abortError.
func (s *search) hold(ctx context.Context, seat model.Seat) (bool, error) {
    code, err := s.e.locks.TryHold(ctx, s.userID, s.gameID, seat.ZoneID, seat.ID)
    if err != nil {
        return false, err
    }
    if isFatal(code) {
        return false, &abortError{code: code}
    }
    return code == seatlock.OK, nil
}

// holdAll holds every seat or none of them.
func (s *search) holdAll(ctx context.Context, seats []model.Seat) (bool, error) {
    held := make([]model.Seat, 0, len(seats))
    for _, seat := range seats {
        ok, err := s.hold(ctx, seat)
        if err != nil || !ok {
            s.rollback(ctx, held)
            return false, err
        }
        held = append(held, seat)
    }
    return true, nil
}

func (s *search) rollback(ctx context.Context, seats []model.Seat) {
    for _, seat := range seats {
        _, _ = s.e.locks.Release(ctx, s.userID, s.gameID, seat.ZoneID, seat.ID)
    }
}

// singleZone returns the first zone able to supply all qty seats at once.
func (s *search) singleZone(ctx context.Context, zones []model.Zone, qty int, contiguous bool) (*Bundle, error) {
    for _, z := range zones {
        usable, err := s.usable(ctx, z.ID)
        if err != nil {
            return nil, err
        }
        if len(usable) < qty {
            continue
        }
        if contiguous {
            if run := catalog.FirstRun(usable, qty); run != nil {
                ok, err := s.holdAll(ctx, run)
                if err != nil {
                    return nil, err
                }
                if ok {
                    return s.bundle(z, run, true), nil
                }
                continue
            }
        }
        pick := usable[:qty]
        ok, err := s.holdAll(ctx, pick)
        if err != nil {
            return nil, err
        }
        if ok {
            return s.bundle(z, pick, false), nil
        }
    }
    return nil, nil
}

// multiZone collects seats zone by zone, best effort: the longest run that
// fits first, then singles.  Seats that fail to hold are skipped.
func (s *search) multiZone(ctx context.Context, zones []model.Zone, qty int) ([]Bundle, error) {
    var bundles []Bundle
    remaining := qty
    for _, z := range zones {
        if remaining == 0 {
            break
        }
        usable, err := s.usable(ctx, z.ID)
        if err != nil {
            return bundles, err
        }
        var held []model.Seat
        tried := map[string]bool{}
        collect := func(seat model.Seat) error {
            tried[seat.ID] = true
            ok, err := s.hold(ctx, seat)
            if err != nil {
                return err
            }
            if ok {
                held = append(held, seat)
                remaining--
            }
            return nil
        }
        var stop error
        for _, seat := range catalog.LongestRun(usable, remaining) {
            if stop = collect(seat); stop != nil {
                break
            }
        }
        for _, seat := range usable {
            if stop != nil || remaining == 0 {
                break
            }
            if !tried[seat.ID] {
                stop = collect(seat)
            }
        }
        if len(held) > 0 {
            bundles = append(bundles, *s.bundle(z, held, len(held) > 1 && catalog.IsRun(held)))
        }
        if stop != nil {
            return bundles, stop
        }
    }
    return bundles, nil
}

func (s *search) bundle(z model.Zone, seats []model.Seat, contiguous bool) *Bundle {
    b := &Bundle{
        ZoneID:     z.ID,
        ZoneName:   s.e.cat.ZoneDisplayName(z.ID),
        Contiguous: contiguous,
        SeatIDs:    make([]string, len(seats)),
        Seats:      make([]string, len(seats)),
    }
    for i, seat := range seats {
        b.SeatIDs[i] = seat.ID
        b.Seats[i] = seat.Name
    }
    return b
}
