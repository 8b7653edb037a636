package entity

import (
	"time"

	"github.com/duskveil/game-api/internal/trait"
)

// SessionResultsRecord is the derived per-session results row. Not
// authoritative: rebuildable from sessions and choices.
type SessionResultsRecord struct {
	SessionID    int64                `json:"session_id"`
	TraitFocus   string               `json:"trait_focus"`
	Results      trait.SessionResults `json:"results"`
	Summary      string               `json:"summary"`
	CreatedAt    time.Time            `json:"created_at"`
}

// ModeStats aggregates a user's sessions for one mode.
type ModeStats struct {
	Mode           string   `json:"mode" db:"mode"`
	Total          int      `json:"total" db:"total"`
	Completed      int      `json:"completed" db:"completed"`
	AvgDurationMin *float64 `json:"average_completion_time" db:"avg_duration"`
}

// ImpactCount counts choices per impact tier.
type ImpactCount struct {
	TraitImpact trait.Tier `json:"trait_impact" db:"trait_impact"`
	Count       int        `json:"count" db:"count"`
}

// UserStats is the per-user analytics payload.
type UserStats struct {
	UserID       int64         `json:"user_id"`
	GamePlayed   int           `json:"game_played"`
	TraitProfile trait.Profile `json:"trait_profile"`
	Sessions     []ModeStats   `json:"session_stats"`
	Impacts      []ImpactCount `json:"trait_impacts"`
}

// LeaderboardEntry ranks a player by games played.
type LeaderboardEntry struct {
	UserID            int64  `json:"userid"`
	Username          string `json:"username"`
	GamesPlayed       int    `json:"games_played"`
	TotalSessions     int    `json:"total_sessions"`
	CompletedSessions int    `json:"completed_sessions"`
	DominantTrait     string `json:"dominant_trait"`
	DominantValue     int    `json:"dominant_trait_value"`
}

// ChoiceBucket is one cell of the choice distribution.
type ChoiceBucket struct {
	Depth       int        `json:"depth" db:"depth"`
	ChoiceID    string     `json:"choice_id" db:"choice_id"`
	TraitImpact trait.Tier `json:"trait_impact" db:"trait_impact"`
	Count       int        `json:"count" db:"count"`
}

// ProgressionPoint is one completed session on a user's trait timeline.
type ProgressionPoint struct {
	SessionID    int64          `json:"session_id"`
	Mode         string         `json:"mode"`
	StartedAt    time.Time      `json:"started_at"`
	EndedAt      *time.Time     `json:"ended_at"`
	TraitChanges map[string]int `json:"trait_changes"`
	Score        int            `json:"session_score"`
	Ending       string         `json:"ending_achieved"`
}
