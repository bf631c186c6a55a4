// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into the booking log.
package queue

// TicketsConfirmedQueue is the durable queue (and NATS subject) carrying
// TicketsConfirmedEvent payloads.
const TicketsConfirmedQueue = "tickets.confirmed"

// TicketsConfirmedEvent is published when seats are committed to sold,
// by either the general confirm step or the senior channel.  It carries
// enough to log or notify without querying the primary database.
type TicketsConfirmedEvent struct {
    UserID         uint64   `json:"user_id"`
    GameID         uint64   `json:"game_id"`
    Channel        string   `json:"channel"`
    ReservationIDs []uint64 `json:"reservation_ids"`
    SeatIDs        []string `json:"seat_ids"`
    SeatLabels     []string `json:"seats"`
    ConfirmedAt    string   `json:"confirmed_at"`
}
