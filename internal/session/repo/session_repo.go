package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/duskveil/game-api/internal/session/entity"
)

// SessionRepo provides data access for game_session and user_choices.
type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{db: db} }

// EnsureTable creates the session and choice tables if not exists (idempotent).
// UNIQUE(session_id, depth) backs the one-choice-per-depth invariant.
func (r *SessionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS game_session (
  session_id BIGSERIAL PRIMARY KEY,
  public_ref TEXT NOT NULL,
  user_id BIGINT NOT NULL REFERENCES user_info(userid),
  mode TEXT NOT NULL,
  scenario_id BIGINT,
  started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  ended_at TIMESTAMPTZ,
  is_completed BOOLEAN NOT NULL DEFAULT false
);
CREATE INDEX IF NOT EXISTS idx_game_session_user ON game_session(user_id);
CREATE TABLE IF NOT EXISTS user_choices (
  id BIGSERIAL PRIMARY KEY,
  session_id BIGINT NOT NULL REFERENCES game_session(session_id),
  depth INT NOT NULL,
  choice_id TEXT NOT NULL,
  trait_impact TEXT NOT NULL,
  trait_focus TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (session_id, depth)
);
CREATE INDEX IF NOT EXISTS idx_user_choices_session ON user_choices(session_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a session row and returns its id.
func (r *SessionRepo) Create(ctx context.Context, publicRef string, userID int64, mode string, scenarioID *int64) (int64, error) {
	const q = `INSERT INTO game_session (public_ref, user_id, mode, scenario_id)
	           VALUES ($1, $2, $3, $4) RETURNING session_id`
	var id int64
	if err := r.db.GetContext(ctx, &id, q, publicRef, userID, mode, scenarioID); err != nil {
		return 0, err
	}
	return id, nil
}

const sessionColumns = `session_id, public_ref, user_id, mode, scenario_id, started_at, ended_at, is_completed`

// GetByID fetches a session or sql.ErrNoRows.
func (r *SessionRepo) GetByID(ctx context.Context, id int64) (*entity.Session, error) {
	var s entity.Session
	if err := r.db.GetContext(ctx, &s, `SELECT `+sessionColumns+` FROM game_session WHERE session_id = $1`, id); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByUser returns a user's sessions, optionally filtered by mode, newest first.
func (r *SessionRepo) ListByUser(ctx context.Context, userID int64, mode string) ([]entity.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM game_session WHERE user_id = $1`
	args := []any{userID}
	if mode != "" {
		q += ` AND mode = $2`
		args = append(args, mode)
	}
	q += ` ORDER BY started_at DESC`
	out := []entity.Session{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkCompleted transitions not-completed -> completed and stamps ended_at.
// Returns false when the session was already completed (or missing).
func (r *SessionRepo) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE game_session SET ended_at = NOW(), is_completed = true
	           WHERE session_id = $1 AND is_completed = false RETURNING 1`
	var one int
	err := r.db.GetContext(ctx, &one, q, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkEnded stamps ended_at without the completed flag (abandoned session).
func (r *SessionRepo) MarkEnded(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE game_session SET ended_at = NOW()
	           WHERE session_id = $1 AND is_completed = false RETURNING 1`
	var one int
	err := r.db.GetContext(ctx, &one, q, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// InsertChoice appends a choice record. The unique constraint turns a
// duplicate depth into an error surfaced to the caller.
func (r *SessionRepo) InsertChoice(ctx context.Context, c *entity.Choice) (int64, error) {
	const q = `INSERT INTO user_choices (session_id, depth, choice_id, trait_impact, trait_focus)
	           VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var id int64
	if err := r.db.GetContext(ctx, &id, q, c.SessionID, c.Depth, c.ChoiceID, c.TraitImpact, c.TraitFocus); err != nil {
		return 0, err
	}
	return id, nil
}

// ChoicesBySession returns all choices ordered by depth.
func (r *SessionRepo) ChoicesBySession(ctx context.Context, sessionID int64) ([]entity.Choice, error) {
	const q = `SELECT id, session_id, depth, choice_id, trait_impact, trait_focus, created_at
	           FROM user_choices WHERE session_id = $1 ORDER BY depth`
	out := []entity.Choice{}
	if err := r.db.SelectContext(ctx, &out, q, sessionID); err != nil {
		return nil, err
	}
	return out, nil
}

// CountChoices returns the number of recorded choices for a session.
func (r *SessionRepo) CountChoices(ctx context.Context, sessionID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM user_choices WHERE session_id = $1`, sessionID); err != nil {
		return 0, err
	}
	return n, nil
}

// IsNotFound reports whether err is the driver's no-rows sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
