package model

import "time"

// Game is a scheduled match between two teams.  Seat inventory is tracked
// per game.
//
// Fields:
//  ID             – primary key identifier.
//  HomeTeam       – home team code.
//  AwayTeam       – away team code.
//  StartsAt       – first pitch, UTC.
//  ResultRecorded – true once the final score has been entered.
type Game struct {
    ID             uint64    // games.id
    HomeTeam       string    // games.home_team
    AwayTeam       string    // games.away_team
    StartsAt       time.Time // games.starts_at
    ResultRecorded bool      // games.result_recorded
}

// HasTeam reports whether team plays in the game.
func (g Game) HasTeam(team string) bool {
    return team != "" && (team == g.HomeTeam || team == g.AwayTeam)
}
