package entity

import (
	"fmt"
	"time"

	"github.com/duskveil/game-api/internal/trait"
)

// Scenario provenance: model output versus the deterministic local fallback.
// Carried on every stored record so fallback rate stays measurable.
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// Segment is one narrative beat with a sound effect cue.
type Segment struct {
	Text string `json:"text"`
	SFX  string `json:"sfx,omitempty"`
}

// TraitDetail names the trait a choice moves and how strongly.
type TraitDetail struct {
	Trait  string     `json:"trait"`
	Degree trait.Tier `json:"degree"`
}

// Choice is one selectable option of a generated scene.
type Choice struct {
	ChoiceID      string      `json:"choice_id"`
	Text          string      `json:"choice_text"`
	MapsTo        TraitDetail `json:"maps_to_trait_details"`
	HiddenMessage string      `json:"short_hidden_message,omitempty"`
}

// Scenario is one synthesized scene. Depth is 1-based: depth d is served
// after d-1 recorded choices, and the final depth carries the end flag.
type Scenario struct {
	Depth           int       `json:"depth"`
	SceneNarrative  []Segment `json:"scene_narrative"`
	Purpose         string    `json:"narrative_purpose,omitempty"`
	Personalization string    `json:"personalization_notes,omitempty"`
	Choices         []Choice  `json:"choices"`
	IsEnd           bool      `json:"is_end"`
}

// Validate checks the structural contract every generated scenario must meet
// before it is persisted: narrative present, exactly the closed choice set,
// known impact tiers.
func (s Scenario) Validate() error {
	if len(s.SceneNarrative) == 0 {
		return fmt.Errorf("scenario missing scene_narrative")
	}
	if len(s.Choices) != 3 {
		return fmt.Errorf("scenario has %d choices, want 3", len(s.Choices))
	}
	seen := map[string]bool{}
	for _, c := range s.Choices {
		switch c.ChoiceID {
		case "A", "B", "C":
		default:
			return fmt.Errorf("unknown choice_id %q", c.ChoiceID)
		}
		if seen[c.ChoiceID] {
			return fmt.Errorf("duplicate choice_id %q", c.ChoiceID)
		}
		seen[c.ChoiceID] = true
		if !c.MapsTo.Degree.Valid() {
			return fmt.Errorf("choice %q has unknown degree %q", c.ChoiceID, c.MapsTo.Degree)
		}
	}
	return nil
}

// Record is a persisted generated scenario: exactly one per (session, depth),
// immutable after creation.
type Record struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Depth     int       `json:"depth"`
	Scenario  Scenario  `json:"scenario"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}
