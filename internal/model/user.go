package model

import "time"

// SeniorAge is the minimum age for the senior channel.
const SeniorAge = 65

// Player is a roster entry a fan can pick as a favorite.
//
// Fields:
//  ID       – primary key identifier.
//  Name     – display name.
//  Team     – team code the player currently plays for.
//  Position – field position code (P, C, 1B, ..., DH).
type Player struct {
    ID       uint64 // players.id
    Name     string // players.name
    Team     string // players.team_code
    Position string // players.position
}

// IsSeniorOn reports whether someone born on birth has reached SeniorAge at now.
func IsSeniorOn(birth, now time.Time) bool {
    if birth.IsZero() {
        return false
    }
    return !birth.AddDate(SeniorAge, 0, 0).After(now)
}
