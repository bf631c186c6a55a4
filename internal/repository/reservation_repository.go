package repository

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/google/uuid"

    "github.com/iliyamo/ballpark-reservation/internal/model"
    "github.com/iliyamo/ballpark-reservation/internal/store"
)

// ReservationRepo is the durable ledger of sold seats.  There is one
// reservations row per seat and game; the unique (game_id, seat_id) key is
// the last line of defence against double selling.  Every issued ticket
// carries a random UUID code.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// Begin opens a write transaction.  The caller must Commit or Rollback.
func (r *ReservationRepo) Begin(ctx context.Context) (store.LedgerTx, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    return &ReservationTx{tx: tx}, nil
}

// ReservationTx groups reservation and ticket inserts.
type ReservationTx struct {
    tx *sql.Tx
}

// InsertReservation records one sold seat and returns the new id.  A seat
// already reserved for the game yields ErrConflict.
func (t *ReservationTx) InsertReservation(ctx context.Context, userID, gameID uint64, seatID string, channel model.Channel) (uint64, error) {
    const q = `INSERT INTO reservations (user_id, game_id, seat_id, channel, status) VALUES (?, ?, ?, ?, 'RESERVED')`
    res, err := t.tx.ExecContext(ctx, q, userID, gameID, seatID, string(channel))
    if err != nil {
        if isDuplicate(err) {
            return 0, fmt.Errorf("seat %s game %d: %w", seatID, gameID, ErrConflict)
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// IssueTicket creates the ticket for a reservation.  It reports false when
// the reservation already has one.
func (t *ReservationTx) IssueTicket(ctx context.Context, reservationID uint64) (bool, error) {
    const q = `INSERT INTO tickets (reservation_id, code) VALUES (?, ?)`
    res, err := t.tx.ExecContext(ctx, q, reservationID, uuid.NewString())
    if err != nil {
        if isDuplicate(err) {
            return false, nil
        }
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

func (t *ReservationTx) Commit() error   { return t.tx.Commit() }
func (t *ReservationTx) Rollback() error { return t.tx.Rollback() }

// ReservedGames lists games that have at least one live reservation.
func (r *ReservationRepo) ReservedGames(ctx context.Context) ([]uint64, error) {
    const q = `SELECT DISTINCT game_id FROM reservations WHERE status = 'RESERVED' ORDER BY game_id`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        out = append(out, id)
    }
    return out, rows.Err()
}

// ReservedSeatsByGame lists the seat ids sold for a game.
func (r *ReservationRepo) ReservedSeatsByGame(ctx context.Context, gameID uint64) ([]string, error) {
    const q = `SELECT seat_id FROM reservations WHERE game_id = ? AND status = 'RESERVED'`
    rows, err := r.db.QueryContext(ctx, q, gameID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []string
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        out = append(out, id)
    }
    return out, rows.Err()
}

// SeniorBookedCountsByUser returns live senior seat counts per user and game.
func (r *ReservationRepo) SeniorBookedCountsByUser(ctx context.Context) ([]model.BookedCount, error) {
    return r.countsByChannel(ctx, model.ChannelSenior)
}

// GeneralBookedCountsByUser returns live general seat counts per user and game.
func (r *ReservationRepo) GeneralBookedCountsByUser(ctx context.Context) ([]model.BookedCount, error) {
    return r.countsByChannel(ctx, model.ChannelGeneral)
}

func (r *ReservationRepo) countsByChannel(ctx context.Context, ch model.Channel) ([]model.BookedCount, error) {
    const q = `SELECT user_id, game_id, COUNT(*) FROM reservations
               WHERE channel = ? AND status = 'RESERVED'
               GROUP BY user_id, game_id`
    rows, err := r.db.QueryContext(ctx, q, string(ch))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.BookedCount
    for rows.Next() {
        var c model.BookedCount
        if err := rows.Scan(&c.UserID, &c.GameID, &c.Count); err != nil {
            return nil, err
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

// ListByUser returns the user's reservations, newest first, with ticket
// codes where issued.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    const q = `SELECT r.id, r.user_id, r.game_id, r.seat_id, r.channel, r.status, r.created_at, t.code
               FROM reservations r
               LEFT JOIN tickets t ON t.reservation_id = r.id
               WHERE r.user_id = ?
               ORDER BY r.created_at DESC, r.id DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Reservation{}
    for rows.Next() {
        var (
            res  model.Reservation
            ch   string
            code sql.NullString
        )
        if err := rows.Scan(&res.ID, &res.UserID, &res.GameID, &res.SeatID, &ch, &res.Status, &res.CreatedAt, &code); err != nil {
            return nil, err
        }
        res.Channel = model.Channel(ch)
        res.TicketCode = code.String
        out = append(out, res)
    }
    return out, rows.Err()
}
