package entity

import "time"

// Codes for the built-in achievements.
const (
	CodeFirstGame   = "first_game"
	CodeFiveGames   = "five_games"
	CodeExplorer    = "explorer"
	CodeTraitMaster = "trait_master"
)

// Achievement is one unlockable badge.
type Achievement struct {
	ID          int64  `json:"achievement_id" db:"achievement_id"`
	Code        string `json:"code" db:"code"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	Threshold   int    `json:"threshold" db:"threshold"`
}

// Unlocked pairs an achievement with the time a player earned it.
type Unlocked struct {
	Achievement
	UnlockedAt time.Time `json:"unlocked_at" db:"unlocked_at"`
}
