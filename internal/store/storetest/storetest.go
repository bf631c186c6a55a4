// Package storetest provides in-memory implementations of the store
// contracts for engine tests.
package storetest

import (
    "context"
    "errors"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/ballpark-reservation/internal/model"
    "github.com/iliyamo/ballpark-reservation/internal/store"
)

// Games is a fixed game schedule.
type Games map[uint64]*model.Game

func (g Games) FindGame(_ context.Context, id uint64) (*model.Game, error) {
    if game, ok := g[id]; ok {
        cp := *game
        return &cp, nil
    }
    return nil, store.ErrGameNotFound
}

// Fans is a fixed set of profiles.
type Fans struct {
    Favorites map[uint64]*model.Player
    Births    map[uint64]time.Time
}

func (f Fans) FavoritePlayer(_ context.Context, userID uint64) (*model.Player, error) {
    return f.Favorites[userID], nil
}

func (f Fans) BirthDate(_ context.Context, userID uint64) (time.Time, error) {
    return f.Births[userID], nil
}

// Ledger keeps committed reservations in memory.  Setting FailInsert or
// FailTicket makes the next transactions fail at that step.
type Ledger struct {
    mu         sync.Mutex
    nextID     uint64
    rows       []model.Reservation
    tickets    map[uint64]bool
    FailInsert error
    FailTicket error
    FailCommit error
}

func NewLedger() *Ledger { return &Ledger{tickets: map[uint64]bool{}} }

// Seed records committed reservations directly.
func (l *Ledger) Seed(rows ...model.Reservation) {
    l.mu.Lock()
    defer l.mu.Unlock()
    for _, r := range rows {
        l.nextID++
        r.ID = l.nextID
        r.Status = "RESERVED"
        l.rows = append(l.rows, r)
    }
}

// Rows returns a copy of the committed reservations.
func (l *Ledger) Rows() []model.Reservation {
    l.mu.Lock()
    defer l.mu.Unlock()
    return append([]model.Reservation(nil), l.rows...)
}

// Tickets returns the number of issued tickets.
func (l *Ledger) Tickets() int {
    l.mu.Lock()
    defer l.mu.Unlock()
    return len(l.tickets)
}

func (l *Ledger) Begin(context.Context) (store.LedgerTx, error) {
    return &tx{l: l}, nil
}

func (l *Ledger) ReservedGames(context.Context) ([]uint64, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    seen := map[uint64]bool{}
    var out []uint64
    for _, r := range l.rows {
        if !seen[r.GameID] {
            seen[r.GameID] = true
            out = append(out, r.GameID)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
    return out, nil
}

func (l *Ledger) ReservedSeatsByGame(_ context.Context, gameID uint64) ([]string, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    var out []string
    for _, r := range l.rows {
        if r.GameID == gameID {
            out = append(out, r.SeatID)
        }
    }
    return out, nil
}

func (l *Ledger) counts(ch model.Channel) []model.BookedCount {
    l.mu.Lock()
    defer l.mu.Unlock()
    idx := map[[2]uint64]int{}
    var out []model.BookedCount
    for _, r := range l.rows {
        if r.Channel != ch {
            continue
        }
        k := [2]uint64{r.UserID, r.GameID}
        if i, ok := idx[k]; ok {
            out[i].Count++
            continue
        }
        idx[k] = len(out)
        out = append(out, model.BookedCount{UserID: r.UserID, GameID: r.GameID, Count: 1})
    }
    return out
}

func (l *Ledger) SeniorBookedCountsByUser(context.Context) ([]model.BookedCount, error) {
    return l.counts(model.ChannelSenior), nil
}

func (l *Ledger) GeneralBookedCountsByUser(context.Context) ([]model.BookedCount, error) {
    return l.counts(model.ChannelGeneral), nil
}

func (l *Ledger) ListByUser(_ context.Context, userID uint64) ([]model.Reservation, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    var out []model.Reservation
    for _, r := range l.rows {
        if r.UserID == userID {
            out = append(out, r)
        }
    }
    return out, nil
}

type tx struct {
    l       *Ledger
    pending []model.Reservation
    done    bool
}

var errTxDone = errors.New("storetest: transaction already finished")

func (t *tx) InsertReservation(_ context.Context, userID, gameID uint64, seatID string, ch model.Channel) (uint64, error) {
    t.l.mu.Lock()
    defer t.l.mu.Unlock()
    if t.l.FailInsert != nil {
        return 0, t.l.FailInsert
    }
    for _, r := range t.l.rows {
        if r.GameID == gameID && r.SeatID == seatID {
            return 0, errors.New("storetest: duplicate seat")
        }
    }
    t.l.nextID++
    t.pending = append(t.pending, model.Reservation{
        ID: t.l.nextID, UserID: userID, GameID: gameID, SeatID: seatID, Channel: ch, Status: "RESERVED",
    })
    return t.l.nextID, nil
}

func (t *tx) IssueTicket(_ context.Context, reservationID uint64) (bool, error) {
    t.l.mu.Lock()
    defer t.l.mu.Unlock()
    if t.l.FailTicket != nil {
        return false, t.l.FailTicket
    }
    return true, nil
}

func (t *tx) Commit() error {
    if t.done {
        return errTxDone
    }
    t.done = true
    t.l.mu.Lock()
    defer t.l.mu.Unlock()
    if t.l.FailCommit != nil {
        return t.l.FailCommit
    }
    for _, r := range t.pending {
        t.l.rows = append(t.l.rows, r)
        t.l.tickets[r.ID] = true
    }
    return nil
}

func (t *tx) Rollback() error {
    if t.done {
        return errTxDone
    }
    t.done = true
    return nil
}
