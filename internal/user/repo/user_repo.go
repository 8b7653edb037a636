package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/duskveil/game-api/internal/trait"
	"github.com/duskveil/game-api/internal/user/entity"
)

// UserRepo provides data access for the user_info table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the user_info table if not exists (idempotent).
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS user_info (
  userid BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  hashpassword TEXT NOT NULL,
  trait_profile JSONB NOT NULL DEFAULT '{}'::jsonb,
  game_played INT NOT NULL DEFAULT 0,
  game_history JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  is_active BOOLEAN NOT NULL DEFAULT true
);
CREATE INDEX IF NOT EXISTS idx_user_info_username ON user_info(username);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

type userRow struct {
	ID           int64     `db:"userid"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"hashpassword"`
	TraitProfile []byte    `db:"trait_profile"`
	GamePlayed   int       `db:"game_played"`
	GameHistory  []byte    `db:"game_history"`
	CreatedAt    time.Time `db:"created_at"`
	IsActive     bool      `db:"is_active"`
}

func (row userRow) toEntity() (*entity.User, error) {
	profile := trait.Profile{}
	if len(row.TraitProfile) > 0 {
		if err := json.Unmarshal(row.TraitProfile, &profile); err != nil {
			return nil, fmt.Errorf("decode trait_profile: %w", err)
		}
	}
	history := json.RawMessage("{}")
	if len(row.GameHistory) > 0 {
		history = json.RawMessage(row.GameHistory)
	}
	return &entity.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		TraitProfile: profile,
		GamePlayed:   row.GamePlayed,
		GameHistory:  history,
		CreatedAt:    row.CreatedAt,
		IsActive:     row.IsActive,
	}, nil
}

const userColumns = `userid, username, email, hashpassword, trait_profile, game_played, game_history, created_at, is_active`

// Create inserts a new user row and returns the new ID.
func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash string, profile trait.Profile) (int64, error) {
	profileRaw, err := json.Marshal(profile)
	if err != nil {
		return 0, fmt.Errorf("encode trait_profile: %w", err)
	}
	const q = `INSERT INTO user_info (username, email, hashpassword, trait_profile, game_played, game_history, is_active)
	           VALUES ($1, $2, $3, $4, 0, '{}'::jsonb, true) RETURNING userid`
	var id int64
	if err := r.db.GetContext(ctx, &id, q, username, email, passwordHash, profileRaw); err != nil {
		return 0, err
	}
	return id, nil
}

// ExistsByUsernameOrEmail reports whether a row already claims either identifier.
func (r *UserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM user_info WHERE username = $1 OR email = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, username, email); err != nil {
		return false, err
	}
	return exists, nil
}

// GetByID fetches a full user row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM user_info WHERE userid = $1`, id); err != nil {
		return nil, err
	}
	return row.toEntity()
}

// GetByUsername fetches by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM user_info WHERE username = $1`, username); err != nil {
		return nil, err
	}
	return row.toEntity()
}

// UpdateProfile patches email and/or trait profile. Nil arguments are skipped.
// Returns the affected row count so callers can distinguish a missing user.
func (r *UserRepo) UpdateProfile(ctx context.Context, id int64, email *string, profile trait.Profile) (int64, error) {
	sets := []string{}
	args := []any{}
	if email != nil {
		args = append(args, *email)
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}
	if profile != nil {
		raw, err := json.Marshal(profile)
		if err != nil {
			return 0, fmt.Errorf("encode trait_profile: %w", err)
		}
		args = append(args, raw)
		sets = append(sets, fmt.Sprintf("trait_profile = $%d", len(args)))
	}
	if len(sets) == 0 {
		return 0, nil
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE user_info SET %s WHERE userid = $%d", joinSets(sets), len(args))
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}

// Deactivate soft-deletes a user. Rows are never removed.
func (r *UserRepo) Deactivate(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE user_info SET is_active = false WHERE userid = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListActive returns active users ordered by id with offset pagination.
func (r *UserRepo) ListActive(ctx context.Context, skip, limit int) ([]entity.Listing, error) {
	const q = `SELECT userid, username, email, game_played, created_at, is_active
	           FROM user_info WHERE is_active = true ORDER BY userid LIMIT $1 OFFSET $2`
	out := []entity.Listing{}
	if err := r.db.SelectContext(ctx, &out, q, limit, skip); err != nil {
		return nil, err
	}
	return out, nil
}

// IncrementGamesPlayed bumps the play counter atomically.
func (r *UserRepo) IncrementGamesPlayed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE user_info SET game_played = game_played + 1 WHERE userid = $1`, id)
	return err
}

// ApplyTraitDeltas applies clamped deltas to the stored trait profile inside
// a transaction holding a row lock, so concurrent choices for the same user
// cannot lose updates. Unknown trait names are ignored. Returns the profile
// after the update.
func (r *UserRepo) ApplyTraitDeltas(ctx context.Context, id int64, deltas map[string]int) (trait.Profile, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var raw []byte
	if err := tx.GetContext(ctx, &raw, `SELECT trait_profile FROM user_info WHERE userid = $1 FOR UPDATE`, id); err != nil {
		return nil, err
	}
	profile := trait.Profile{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &profile); err != nil {
			return nil, fmt.Errorf("decode trait_profile: %w", err)
		}
	}
	for name, delta := range deltas {
		profile.Apply(name, delta)
	}
	updated, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode trait_profile: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE user_info SET trait_profile = $2 WHERE userid = $1`, id, updated); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return profile, nil
}

// AppendGameHistory merges one session entry into the game_history blob under
// the same row-lock discipline as ApplyTraitDeltas.
func (r *UserRepo) AppendGameHistory(ctx context.Context, id int64, key string, value any) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw []byte
	if err := tx.GetContext(ctx, &raw, `SELECT game_history FROM user_info WHERE userid = $1 FOR UPDATE`, id); err != nil {
		return err
	}
	history := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &history); err != nil {
			return fmt.Errorf("decode game_history: %w", err)
		}
	}
	history[key] = value
	updated, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode game_history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE user_info SET game_history = $2 WHERE userid = $1`, id, updated); err != nil {
		return err
	}
	return tx.Commit()
}

// IsNotFound reports whether err is the driver's no-rows sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
