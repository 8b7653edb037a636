package entity

import (
	"time"

	"github.com/duskveil/game-api/internal/trait"
)

// Play modes.
const (
	ModeLearn = "learn"
	ModeGrow  = "grow"
)

// MaxDepth bounds the number of choices in a session.
const MaxDepth = 5

// Session is one play-through. It is mutated exactly once, at completion.
type Session struct {
	ID          int64      `json:"session_id" db:"session_id"`
	PublicRef   string     `json:"public_ref" db:"public_ref"`
	UserID      int64      `json:"user_id" db:"user_id"`
	Mode        string     `json:"mode" db:"mode"`
	ScenarioID  *int64     `json:"scenario_id" db:"scenario_id"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	EndedAt     *time.Time `json:"ended_at" db:"ended_at"`
	IsCompleted bool       `json:"is_completed" db:"is_completed"`
}

// Choice is one append-only decision record. Depth is the 0-based step index;
// a session holds at most one choice per depth.
type Choice struct {
	ID          int64      `json:"id" db:"id"`
	SessionID   int64      `json:"session_id" db:"session_id"`
	Depth       int        `json:"depth" db:"depth"`
	ChoiceID    string     `json:"choice_id" db:"choice_id"`
	TraitImpact trait.Tier `json:"trait_impact" db:"trait_impact"`
	TraitFocus  string     `json:"trait_focus" db:"trait_focus"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// ValidChoiceID reports whether id is one of the closed choice set.
func ValidChoiceID(id string) bool {
	switch id {
	case "A", "B", "C":
		return true
	}
	return false
}
