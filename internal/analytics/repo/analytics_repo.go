package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/duskveil/game-api/internal/analytics/entity"
	"github.com/duskveil/game-api/internal/trait"
)

// AnalyticsRepo owns the derived session_analytics table and the aggregate
// read queries over users, sessions and choices.
type AnalyticsRepo struct {
	db *sqlx.DB
}

func NewAnalyticsRepo(db *sqlx.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

// EnsureTable creates the session_analytics table if not exists (idempotent).
func (r *AnalyticsRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS session_analytics (
  session_id BIGINT PRIMARY KEY REFERENCES game_session(session_id),
  total_choices INT NOT NULL DEFAULT 0,
  trait_focus TEXT NOT NULL DEFAULT '',
  trait_changes JSONB NOT NULL DEFAULT '{}'::jsonb,
  ending TEXT NOT NULL DEFAULT '',
  session_score INT NOT NULL DEFAULT 0,
  summary TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// SaveResults upserts the derived results for a completed session.
func (r *AnalyticsRepo) SaveResults(ctx context.Context, sessionID int64, focus string, res trait.SessionResults, summary string) error {
	changes, err := json.Marshal(res.TraitChanges)
	if err != nil {
		return fmt.Errorf("encode trait_changes: %w", err)
	}
	const q = `INSERT INTO session_analytics (session_id, total_choices, trait_focus, trait_changes, ending, session_score, summary)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	           ON CONFLICT (session_id) DO UPDATE SET
	             total_choices = EXCLUDED.total_choices,
	             trait_changes = EXCLUDED.trait_changes,
	             ending = EXCLUDED.ending,
	             session_score = EXCLUDED.session_score,
	             summary = EXCLUDED.summary`
	_, err = r.db.ExecContext(ctx, q, sessionID, res.TotalChoices, focus, changes, res.Ending, res.Score, summary)
	return err
}

type resultsRow struct {
	SessionID    int64     `db:"session_id"`
	TotalChoices int       `db:"total_choices"`
	TraitFocus   string    `db:"trait_focus"`
	TraitChanges []byte    `db:"trait_changes"`
	Ending       string    `db:"ending"`
	Score        int       `db:"session_score"`
	Summary      string    `db:"summary"`
	CreatedAt    time.Time `db:"created_at"`
}

// GetResults loads the stored results row for a session.
func (r *AnalyticsRepo) GetResults(ctx context.Context, sessionID int64) (*entity.SessionResultsRecord, error) {
	var row resultsRow
	const q = `SELECT session_id, total_choices, trait_focus, trait_changes, ending, session_score, summary, created_at
	           FROM session_analytics WHERE session_id = $1`
	if err := r.db.GetContext(ctx, &row, q, sessionID); err != nil {
		return nil, err
	}
	changes := map[string]int{}
	if len(row.TraitChanges) > 0 {
		if err := json.Unmarshal(row.TraitChanges, &changes); err != nil {
			return nil, fmt.Errorf("decode trait_changes for session %d: %w", sessionID, err)
		}
	}
	return &entity.SessionResultsRecord{
		SessionID:  row.SessionID,
		TraitFocus: row.TraitFocus,
		Results: trait.SessionResults{
			TotalChoices: row.TotalChoices,
			TraitChanges: changes,
			Ending:       row.Ending,
			Score:        row.Score,
		},
		Summary:   row.Summary,
		CreatedAt: row.CreatedAt,
	}, nil
}

// IsNotFound reports whether err is the driver's no-rows error.
func IsNotFound(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// UserModeStats aggregates a user's sessions per mode.
func (r *AnalyticsRepo) UserModeStats(ctx context.Context, userID int64) ([]entity.ModeStats, error) {
	out := []entity.ModeStats{}
	const q = `SELECT mode,
	                  COUNT(*) AS total,
	                  COUNT(*) FILTER (WHERE is_completed) AS completed,
	                  AVG(EXTRACT(EPOCH FROM (ended_at - started_at)) / 60.0) AS avg_duration
	           FROM game_session WHERE user_id = $1 GROUP BY mode`
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// UserImpactCounts counts a user's choices per impact tier across sessions.
func (r *AnalyticsRepo) UserImpactCounts(ctx context.Context, userID int64) ([]entity.ImpactCount, error) {
	out := []entity.ImpactCount{}
	const q = `SELECT uc.trait_impact, COUNT(*) AS count
	           FROM user_choices uc
	           JOIN game_session gs ON uc.session_id = gs.session_id
	           WHERE gs.user_id = $1 GROUP BY uc.trait_impact`
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

type leaderboardRow struct {
	UserID            int64  `db:"userid"`
	Username          string `db:"username"`
	GamePlayed        int    `db:"game_played"`
	TotalSessions     int    `db:"total_sessions"`
	CompletedSessions int    `db:"completed_sessions"`
	TraitProfile      []byte `db:"trait_profile"`
}

// Leaderboard returns the top players by games played, dominant trait
// resolved from the stored profile.
func (r *AnalyticsRepo) Leaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	rows := []leaderboardRow{}
	const q = `SELECT u.userid, u.username, u.game_played,
	                  COUNT(gs.session_id) AS total_sessions,
	                  COUNT(gs.session_id) FILTER (WHERE gs.is_completed) AS completed_sessions,
	                  u.trait_profile
	           FROM user_info u
	           LEFT JOIN game_session gs ON u.userid = gs.user_id
	           WHERE u.is_active = true
	           GROUP BY u.userid
	           ORDER BY u.game_played DESC, completed_sessions DESC
	           LIMIT $1`
	if err := r.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, err
	}
	out := make([]entity.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		profile := trait.Profile{}
		if len(row.TraitProfile) > 0 {
			if err := json.Unmarshal(row.TraitProfile, &profile); err != nil {
				return nil, fmt.Errorf("decode trait_profile for user %d: %w", row.UserID, err)
			}
		}
		dominant, value := profile.Dominant()
		out = append(out, entity.LeaderboardEntry{
			UserID:            row.UserID,
			Username:          row.Username,
			GamesPlayed:       row.GamePlayed,
			TotalSessions:     row.TotalSessions,
			CompletedSessions: row.CompletedSessions,
			DominantTrait:     dominant,
			DominantValue:     value,
		})
	}
	return out, nil
}

// ChoiceDistribution buckets all recorded choices by depth, choice and tier,
// optionally restricted to one static scenario.
func (r *AnalyticsRepo) ChoiceDistribution(ctx context.Context, scenarioID *int64) ([]entity.ChoiceBucket, error) {
	q := `SELECT uc.depth, uc.choice_id, uc.trait_impact, COUNT(*) AS count
	      FROM user_choices uc
	      JOIN game_session gs ON uc.session_id = gs.session_id`
	args := []any{}
	if scenarioID != nil {
		q += ` WHERE gs.scenario_id = $1`
		args = append(args, *scenarioID)
	}
	q += ` GROUP BY uc.depth, uc.choice_id, uc.trait_impact ORDER BY uc.depth, uc.choice_id`
	out := []entity.ChoiceBucket{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

type progressionRow struct {
	SessionID    int64      `db:"session_id"`
	Mode         string     `db:"mode"`
	StartedAt    time.Time  `db:"started_at"`
	EndedAt      *time.Time `db:"ended_at"`
	TraitChanges []byte     `db:"trait_changes"`
	Score        int        `db:"session_score"`
	Ending       string     `db:"ending"`
}

// Progression returns a user's completed sessions with their recorded trait
// changes, oldest first.
func (r *AnalyticsRepo) Progression(ctx context.Context, userID int64) ([]entity.ProgressionPoint, error) {
	rows := []progressionRow{}
	const q = `SELECT gs.session_id, gs.mode, gs.started_at, gs.ended_at,
	                  COALESCE(sa.trait_changes, '{}'::jsonb) AS trait_changes,
	                  COALESCE(sa.session_score, 0) AS session_score,
	                  COALESCE(sa.ending, '') AS ending
	           FROM game_session gs
	           LEFT JOIN session_analytics sa ON gs.session_id = sa.session_id
	           WHERE gs.user_id = $1 AND gs.is_completed = true
	           ORDER BY gs.started_at`
	if err := r.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, err
	}
	out := make([]entity.ProgressionPoint, 0, len(rows))
	for _, row := range rows {
		changes := map[string]int{}
		if len(row.TraitChanges) > 0 {
			if err := json.Unmarshal(row.TraitChanges, &changes); err != nil {
				return nil, fmt.Errorf("decode trait_changes for session %d: %w", row.SessionID, err)
			}
		}
		out = append(out, entity.ProgressionPoint{
			SessionID:    row.SessionID,
			Mode:         row.Mode,
			StartedAt:    row.StartedAt,
			EndedAt:      row.EndedAt,
			TraitChanges: changes,
			Score:        row.Score,
			Ending:       row.Ending,
		})
	}
	return out, nil
}
