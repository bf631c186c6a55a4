package seatlock

import (
    "context"
    "fmt"
    "log"
    "sort"
    "time"

    "github.com/iliyamo/ballpark-reservation/internal/coord"
    "github.com/iliyamo/ballpark-reservation/internal/model"
    "github.com/iliyamo/ballpark-reservation/internal/queue"
)

// ConfirmResult is returned by Confirm.  Seat names the offending seat
// when the reason is about one seat.
type ConfirmResult struct {
    OK             bool     `json:"ok"`
    Reason         Code     `json:"reason,omitempty"`
    Seat           string   `json:"seat,omitempty"`
    SeatIDs        []string `json:"seat_ids,omitempty"`
    ReservationIDs []uint64 `json:"reservation_ids,omitempty"`
}

func rejected(code Code, seat string) ConfirmResult {
    return ConfirmResult{OK: false, Reason: code, Seat: seat}
}

// Confirm converts the caller's held seats into sold seats with durable
// reservation and ticket rows.
//
// The holds are first verified and stretched to at least ConfirmGrace so
// they cannot lapse while the ledger transaction runs.  The transaction is
// then written but left open, and one Lua script re-verifies every hold and
// flips all seats to sold at once.  Only after that succeeds is the SQL
// transaction committed; a failed commit puts the holds back.  Either all
// seats end up sold with matching rows or none do.
func (e *Engine) Confirm(ctx context.Context, userID, gameID uint64, seatIDs []string) (ConfirmResult, error) {
    seats := dedupe(seatIDs)
    if len(seats) == 0 {
        return rejected(InvalidRequest, ""), nil
    }
    for _, id := range seats {
        if _, ok := e.cat.Seat(id); !ok {
            return rejected(InvalidSeat, id), nil
        }
    }
    live, err := e.sessions.HasSession(ctx, gameID, userID)
    if err != nil {
        return ConfirmResult{}, err
    }
    if !live {
        return rejected(SessionMissing, ""), nil
    }
    booked, err := e.rdb.Exists(ctx, coord.BookedKey(gameID, userID)).Result()
    if err != nil {
        return ConfirmResult{}, fmt.Errorf("seatlock: booked flag: %w", err)
    }
    if booked > 0 {
        return rejected(AlreadyBooked, ""), nil
    }
    if len(seats) > e.cfg.MaxPerUser {
        return rejected(LimitExceeded, ""), nil
    }

    keys := confirmKeys(gameID, userID, seats)
    holder := coord.UserToken(userID)
    args := append([]interface{}{holder, e.cfg.ConfirmGrace.Milliseconds()}, seatArgs(seats)...)
    verdict, err := prepareConfirmScript.Run(ctx, e.rdb, keys, args...).Int64Slice()
    if err != nil {
        return ConfirmResult{}, fmt.Errorf("seatlock: verify holds: %w", err)
    }
    if res, failed := verdictResult(verdict, seats, NotHolder); failed {
        return res, nil
    }

    tx, err := e.ledger.Begin(ctx)
    if err != nil {
        return ConfirmResult{}, fmt.Errorf("seatlock: begin: %w", err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    ids := make([]uint64, 0, len(seats))
    for _, id := range seats {
        rid, err := tx.InsertReservation(ctx, userID, gameID, id, model.ChannelGeneral)
        if err != nil {
            log.Printf("seatlock: insert reservation game=%d seat=%s: %v", gameID, id, err)
            return rejected(ConfirmFail, id), nil
        }
        if ok, err := tx.IssueTicket(ctx, rid); err != nil || !ok {
            log.Printf("seatlock: issue ticket reservation=%d: %v", rid, err)
            return rejected(ConfirmFail, id), nil
        }
        ids = append(ids, rid)
    }

    args = append([]interface{}{holder, e.cfg.BookedTTL.Milliseconds(), e.cfg.CounterTTL.Milliseconds()}, seatArgs(seats)...)
    verdict, err = commitConfirmScript.Run(ctx, e.rdb, keys, args...).Int64Slice()
    if err != nil {
        return ConfirmResult{}, fmt.Errorf("seatlock: commit holds: %w", err)
    }
    if res, failed := verdictResult(verdict, seats, HoldLost); failed {
        return res, nil
    }

    if err := tx.Commit(); err != nil {
        committed = true
        args = append([]interface{}{holder, e.cfg.ConfirmGrace.Milliseconds()}, seatArgs(seats)...)
        if uerr := undoConfirmScript.Run(ctx, e.rdb, keys, args...).Err(); uerr != nil {
            log.Printf("seatlock: undo confirm game=%d user=%d: %v", gameID, userID, uerr)
        }
        log.Printf("seatlock: commit ledger game=%d user=%d: %v", gameID, userID, err)
        return rejected(ConfirmFail, ""), nil
    }
    committed = true

    e.publish(ctx, userID, gameID, model.ChannelGeneral, ids, seats)
    return ConfirmResult{OK: true, SeatIDs: seats, ReservationIDs: ids}, nil
}

func (e *Engine) publish(ctx context.Context, userID, gameID uint64, ch model.Channel, ids []uint64, seats []string) {
    labels := make([]string, len(seats))
    for i, id := range seats {
        labels[i] = e.cat.DisplayNameOf(id)
    }
    ev := queue.TicketsConfirmedEvent{
        UserID:         userID,
        GameID:         gameID,
        Channel:        string(ch),
        ReservationIDs: ids,
        SeatIDs:        seats,
        SeatLabels:     labels,
        ConfirmedAt:    time.Now().UTC().Format(time.RFC3339),
    }
    if err := e.pub.PublishTicketsConfirmed(ctx, ev); err != nil {
        log.Printf("seatlock: publish tickets.confirmed: %v", err)
    }
}

func verdictResult(v []int64, seats []string, notHolder Code) (ConfirmResult, bool) {
    if len(v) != 2 || v[0] == 0 {
        return ConfirmResult{}, false
    }
    seat := ""
    if i := int(v[1]); i >= 1 && i <= len(seats) {
        seat = seats[i-1]
    }
    switch v[0] {
    case 1:
        return rejected(Conflict, seat), true
    case 3:
        return rejected(BlockedBySenior, ""), true
    }
    return rejected(notHolder, seat), true
}

func confirmKeys(gameID, userID uint64, seats []string) []string {
    keys := []string{
        coord.SoldKey(gameID),
        coord.HoldSetKey(gameID, userID),
        coord.BookedKey(gameID, userID),
        coord.GeneralCounterKey(gameID, userID),
        coord.SeniorCounterKey(gameID, userID),
    }
    for _, id := range seats {
        keys = append(keys, coord.HoldKey(gameID, id), coord.SeatLockKey(gameID, id))
    }
    return keys
}

func seatArgs(seats []string) []interface{} {
    out := make([]interface{}, len(seats))
    for i, s := range seats {
        out[i] = s
    }
    return out
}

func dedupe(ids []string) []string {
    seen := make(map[string]bool, len(ids))
    out := make([]string, 0, len(ids))
    for _, id := range ids {
        if id == "" || seen[id] {
            continue
        }
        seen[id] = true
        out = append(out, id)
    }
    sort.Strings(out)
    return out
}
