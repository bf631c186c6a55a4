// Package coord holds the Redis key schema and the small coordination
// primitives (counting semaphore, lease mutex) shared by the admission gate,
// the seat lock engine and the senior channel.  Every piece of cross-request
// state lives behind these keys so any number of server processes can serve
// the same game.
package coord

import (
    "fmt"
    "strconv"
    "strings"
)

// GatesKey is the set of game ids that currently have an admission gate.
const GatesKey = "gate:games"

func GateQueueKey(gameID uint64) string   { return fmt.Sprintf("gate:%d:queue", gameID) }
func GateWaitingKey(gameID uint64) string { return fmt.Sprintf("gate:%d:waiting", gameID) }
func GateActiveKey(gameID uint64) string  { return fmt.Sprintf("gate:%d:active", gameID) }
func GatePermitsKey(gameID uint64) string { return fmt.Sprintf("gate:%d:permits", gameID) }

func GateSessionKey(gameID, userID uint64) string {
    return fmt.Sprintf("gate:%d:session:%d", gameID, userID)
}

func GateExtensionKey(gameID, userID uint64) string {
    return fmt.Sprintf("gate:%d:ext:%d", gameID, userID)
}

// BookedKey flags a purchaser who completed a general-channel purchase.
func BookedKey(gameID, userID uint64) string { return fmt.Sprintf("booked:%d:%d", gameID, userID) }

// HoldPrefix prefixes every hold record; HoldKey values hold the holder id.
const HoldPrefix = "hold:"

func HoldKey(gameID uint64, seatID string) string {
    return fmt.Sprintf("%s%d:%s", HoldPrefix, gameID, seatID)
}

// ParseHoldKey splits a hold key back into its game and seat.
func ParseHoldKey(key string) (uint64, string, bool) {
    rest, ok := strings.CutPrefix(key, HoldPrefix)
    if !ok {
        return 0, "", false
    }
    game, seat, ok := strings.Cut(rest, ":")
    if !ok || seat == "" {
        return 0, "", false
    }
    id, err := strconv.ParseUint(game, 10, 64)
    if err != nil {
        return 0, "", false
    }
    return id, seat, true
}

func SeatLockKey(gameID uint64, seatID string) string {
    return fmt.Sprintf("lock:seat:%d:%s", gameID, seatID)
}

func HoldSetKey(gameID, userID uint64) string { return fmt.Sprintf("holdset:%d:%d", gameID, userID) }

func SoldKey(gameID uint64) string { return fmt.Sprintf("sold:%d", gameID) }

func SeniorCounterKey(gameID, userID uint64) string {
    return fmt.Sprintf("counter:senior:%d:%d", gameID, userID)
}

func GeneralCounterKey(gameID, userID uint64) string {
    return fmt.Sprintf("counter:general:%d:%d", gameID, userID)
}

// UserToken renders a user id the way it is stored as a hold or lock owner.
func UserToken(userID uint64) string { return strconv.FormatUint(userID, 10) }
