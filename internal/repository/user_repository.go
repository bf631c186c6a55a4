package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/ballpark-reservation/internal/model"
    "github.com/iliyamo/ballpark-reservation/internal/store"
)

// User mirrors the 'users' table.
type User struct {
    ID        uint64
    Email     string
    Role      string
    IsActive  bool
    CreatedAt time.Time
    UpdatedAt time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
    var u User
    err := r.DB.QueryRowContext(ctx,
        "SELECT id,email,role,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
        id).Scan(&u.ID, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return u, store.ErrUserNotFound
    }
    return u, err
}

// FavoritePlayer returns the user's favorite player, or nil when none is set.
func (r *UserRepo) FavoritePlayer(ctx context.Context, userID uint64) (*model.Player, error) {
    var (
        pid      sql.NullInt64
        name     sql.NullString
        team     sql.NullString
        position sql.NullString
    )
    err := r.DB.QueryRowContext(ctx,
        `SELECT p.id, p.name, p.team_code, p.position
           FROM users u LEFT JOIN players p ON p.id = u.favorite_player_id
          WHERE u.id=? LIMIT 1`,
        userID).Scan(&pid, &name, &team, &position)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, store.ErrUserNotFound
    }
    if err != nil {
        return nil, err
    }
    if !pid.Valid {
        return nil, nil
    }
    return &model.Player{ID: uint64(pid.Int64), Name: name.String, Team: team.String, Position: position.String}, nil
}

// BirthDate returns the user's birth date, or the zero time when unknown.
func (r *UserRepo) BirthDate(ctx context.Context, userID uint64) (time.Time, error) {
    var birth sql.NullTime
    err := r.DB.QueryRowContext(ctx,
        "SELECT birth_date FROM users WHERE id=? LIMIT 1", userID).Scan(&birth)
    if errors.Is(err, sql.ErrNoRows) {
        return time.Time{}, store.ErrUserNotFound
    }
    if err != nil || !birth.Valid {
        return time.Time{}, err
    }
    return birth.Time.UTC(), nil
}
