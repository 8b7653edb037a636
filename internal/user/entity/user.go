package entity

import (
	"encoding/json"
	"time"

	"github.com/duskveil/game-api/internal/trait"
)

// User represents a player row in the `user_info` table. The trait profile
// and game history live in jsonb columns and are decoded at the repo edge.
type User struct {
	ID           int64           `json:"userid" db:"userid"`
	Username     string          `json:"username" db:"username"`
	Email        string          `json:"email" db:"email"`
	PasswordHash string          `json:"-" db:"hashpassword"`
	TraitProfile trait.Profile   `json:"trait_profile" db:"-"`
	GamePlayed   int             `json:"game_played" db:"game_played"`
	GameHistory  json.RawMessage `json:"game_history" db:"-"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	IsActive     bool            `json:"is_active" db:"is_active"`
}

// Listing is the reduced projection returned by the active-user list.
type Listing struct {
	ID         int64     `json:"userid" db:"userid"`
	Username   string    `json:"username" db:"username"`
	Email      string    `json:"email" db:"email"`
	GamePlayed int       `json:"game_played" db:"game_played"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	IsActive   bool      `json:"is_active" db:"is_active"`
}
