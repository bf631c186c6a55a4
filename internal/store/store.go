// Package store defines the persistence contracts the booking core consumes.
// The MySQL implementation lives in internal/repository; tests use the
// in-memory fakes in storetest.
package store

import (
    "context"
    "errors"
    "time"

    "github.com/iliyamo/ballpark-reservation/internal/model"
)

// ErrGameNotFound is returned by Games.FindGame for an unknown id.
var ErrGameNotFound = errors.New("game not found")

// ErrUserNotFound is returned by Fans lookups for an unknown user.
var ErrUserNotFound = errors.New("user not found")

// Games resolves the game schedule.
type Games interface {
    FindGame(ctx context.Context, gameID uint64) (*model.Game, error)
}

// Fans exposes the purchaser profile data the core needs.
type Fans interface {
    // FavoritePlayer returns nil, nil when the user has no favorite.
    FavoritePlayer(ctx context.Context, userID uint64) (*model.Player, error)
    // BirthDate returns the zero time when it is unknown.
    BirthDate(ctx context.Context, userID uint64) (time.Time, error)
}

// LedgerTx is one durable write unit.  Nothing is visible to other readers
// until Commit succeeds.
type LedgerTx interface {
    InsertReservation(ctx context.Context, userID, gameID uint64, seatID string, channel model.Channel) (uint64, error)
    IssueTicket(ctx context.Context, reservationID uint64) (bool, error)
    Commit() error
    Rollback() error
}

// Ledger is the durable system of record for sold seats.
type Ledger interface {
    Begin(ctx context.Context) (LedgerTx, error)
    ReservedGames(ctx context.Context) ([]uint64, error)
    ReservedSeatsByGame(ctx context.Context, gameID uint64) ([]string, error)
    SeniorBookedCountsByUser(ctx context.Context) ([]model.BookedCount, error)
    GeneralBookedCountsByUser(ctx context.Context) ([]model.BookedCount, error)
    ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
}
