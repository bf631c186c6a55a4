package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/ballpark-reservation/internal/model"
    "github.com/iliyamo/ballpark-reservation/internal/store"
)

// GameRepo reads the game schedule.
type GameRepo struct {
    db *sql.DB
}

func NewGameRepo(db *sql.DB) *GameRepo { return &GameRepo{db: db} }

// FindGame returns the game or store.ErrGameNotFound.
func (r *GameRepo) FindGame(ctx context.Context, gameID uint64) (*model.Game, error) {
    const q = `SELECT id, home_team, away_team, starts_at, result_recorded FROM games WHERE id = ?`
    var g model.Game
    err := r.db.QueryRowContext(ctx, q, gameID).Scan(&g.ID, &g.HomeTeam, &g.AwayTeam, &g.StartsAt, &g.ResultRecorded)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, store.ErrGameNotFound
    }
    if err != nil {
        return nil, err
    }
    g.StartsAt = g.StartsAt.UTC()
    return &g, nil
}
