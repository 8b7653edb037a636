package entity

import (
	"github.com/duskveil/game-api/internal/trait"
)

// Scenario is one authored branching tree, stored as a jsonb document.
type Scenario struct {
	ID    int64  `json:"scenario_id"`
	Title string `json:"title,omitempty"`
	Tree  Tree   `json:"tree"`
}

// Tree is a flat, id-addressed node set. Flattening the authored document
// keeps narrative payloads unduplicated and makes cycle-freedom checkable.
type Tree struct {
	Root  string          `json:"root"`
	Nodes map[string]Node `json:"nodes"`
}

// Node is one scene: narrative segments plus the outgoing choice edges.
type Node struct {
	Narrative []Segment `json:"scene_narrative"`
	Choices   []Option  `json:"choices"`
	IsEnd     bool      `json:"is_end"`
}

// Segment is a narrative beat with an optional sound effect cue.
type Segment struct {
	Text string `json:"text"`
	SFX  string `json:"sfx,omitempty"`
}

// Option is one selectable edge out of a node.
type Option struct {
	ChoiceID    string     `json:"choice_id"`
	Text        string     `json:"choice_text"`
	TraitImpact trait.Tier `json:"trait_impact,omitempty"`
	Next        string     `json:"next,omitempty"`
}
