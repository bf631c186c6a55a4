package model

import "time"

// Channel tags which sales channel produced a reservation.
type Channel string

const (
    ChannelGeneral Channel = "GENERAL"
    ChannelSenior  Channel = "SENIOR"
)

// Reservation records one sold seat for a game.  There is one row per
// seat; a purchase of several seats yields several reservations.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – purchaser.
//  GameID    – game being attended.
//  SeatID    – catalog seat id.
//  Channel   – GENERAL or SENIOR.
//  Status    – RESERVED or CANCELLED.
//  CreatedAt – creation timestamp.
//  TicketCode – code of the issued ticket, when loaded with one.
type Reservation struct {
    ID         uint64    `json:"id"`                    // reservations.id
    UserID     uint64    `json:"user_id"`               // reservations.user_id
    GameID     uint64    `json:"game_id"`               // reservations.game_id
    SeatID     string    `json:"seat_id"`               // reservations.seat_id
    Channel    Channel   `json:"channel"`               // reservations.channel
    Status     string    `json:"status"`                // reservations.status
    CreatedAt  time.Time `json:"created_at"`            // reservations.created_at
    TicketCode string    `json:"ticket_code,omitempty"` // tickets.code
}

// Ticket is issued for a reservation once it is committed.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reservation the ticket admits.
//  Code          – opaque code printed on the ticket.
//  IssuedAt      – issue timestamp.
type Ticket struct {
    ID            uint64    `json:"id"`             // tickets.id
    ReservationID uint64    `json:"reservation_id"` // tickets.reservation_id
    Code          string    `json:"code"`           // tickets.code
    IssuedAt      time.Time `json:"issued_at"`      // tickets.issued_at
}

// BookedCount is the number of seats a user holds for a game on one channel.
type BookedCount struct {
    UserID uint64
    GameID uint64
    Count  int
}
