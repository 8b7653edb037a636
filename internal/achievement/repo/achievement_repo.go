package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/duskveil/game-api/internal/achievement/entity"
)

// AchievementRepo provides data access for achievements and unlocks.
type AchievementRepo struct {
	db *sqlx.DB
}

func NewAchievementRepo(db *sqlx.DB) *AchievementRepo { return &AchievementRepo{db: db} }

// EnsureTable creates the achievement tables and seeds the built-in badges
// (idempotent).
func (r *AchievementRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS achievements (
  achievement_id BIGSERIAL PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  threshold INT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS user_achievements (
  user_id BIGINT NOT NULL REFERENCES user_info(userid),
  achievement_id BIGINT NOT NULL REFERENCES achievements(achievement_id),
  unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (user_id, achievement_id)
);
INSERT INTO achievements (code, title, description, threshold) VALUES
  ('first_game', 'First Steps', 'Complete your first session', 1),
  ('five_games', 'Regular', 'Complete five sessions', 5),
  ('explorer', 'Explorer', 'Complete a session in both learn and grow mode', 2),
  ('trait_master', 'Trait Master', 'Push any trait to 90 or beyond', 90)
ON CONFLICT (code) DO NOTHING;
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// List returns every achievement.
func (r *AchievementRepo) List(ctx context.Context) ([]entity.Achievement, error) {
	out := []entity.Achievement{}
	const q = `SELECT achievement_id, code, title, description, threshold FROM achievements ORDER BY achievement_id`
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// ForUser returns a player's unlocked achievements, oldest first.
func (r *AchievementRepo) ForUser(ctx context.Context, userID int64) ([]entity.Unlocked, error) {
	out := []entity.Unlocked{}
	const q = `SELECT a.achievement_id, a.code, a.title, a.description, a.threshold, ua.unlocked_at
	           FROM achievements a
	           JOIN user_achievements ua ON a.achievement_id = ua.achievement_id
	           WHERE ua.user_id = $1 ORDER BY ua.unlocked_at`
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// Unlock grants an achievement by code; already-unlocked is a no-op.
func (r *AchievementRepo) Unlock(ctx context.Context, userID int64, code string) error {
	const q = `INSERT INTO user_achievements (user_id, achievement_id)
	           SELECT $1, achievement_id FROM achievements WHERE code = $2
	           ON CONFLICT (user_id, achievement_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, userID, code)
	return err
}

// CompletedModeCount returns how many distinct modes the player has completed
// a session in.
func (r *AchievementRepo) CompletedModeCount(ctx context.Context, userID int64) (int, error) {
	var n int
	const q = `SELECT COUNT(DISTINCT mode) FROM game_session WHERE user_id = $1 AND is_completed = true`
	if err := r.db.GetContext(ctx, &n, q, userID); err != nil {
		return 0, err
	}
	return n, nil
}

// CompletedCount returns the player's completed session count.
func (r *AchievementRepo) CompletedCount(ctx context.Context, userID int64) (int, error) {
	var n int
	const q = `SELECT COUNT(*) FROM game_session WHERE user_id = $1 AND is_completed = true`
	if err := r.db.GetContext(ctx, &n, q, userID); err != nil {
		return 0, err
	}
	return n, nil
}
