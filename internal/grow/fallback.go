package grow

import (
	"fmt"

	growentity "github.com/duskveil/game-api/internal/grow/entity"
	"github.com/duskveil/game-api/internal/session/entity"
	"github.com/duskveil/game-api/internal/trait"
)

// fallbackScenario builds the deterministic local scenario substituted when
// the generation service fails. Same shape as a model scenario, so the
// session always proceeds.
func fallbackScenario(depth int, focus string) growentity.Scenario {
	return growentity.Scenario{
		Depth: depth,
		SceneNarrative: []growentity.Segment{
			{Text: fmt.Sprintf("You face a challenging situation that tests your %s.", focus), SFX: "tension"},
			{Text: "The choice you make will reveal something important about yourself.", SFX: "heartbeat"},
		},
		Purpose: fmt.Sprintf("Testing %s under pressure", focus),
		Choices: []growentity.Choice{
			{
				ChoiceID:      "A",
				Text:          "Face the challenge head-on",
				MapsTo:        growentity.TraitDetail{Trait: focus, Degree: trait.TierHigh},
				HiddenMessage: fmt.Sprintf("You push your %s to its limits", focus),
			},
			{
				ChoiceID:      "B",
				Text:          "Take a measured approach",
				MapsTo:        growentity.TraitDetail{Trait: focus, Degree: trait.TierModerate},
				HiddenMessage: fmt.Sprintf("You balance %s with wisdom", focus),
			},
			{
				ChoiceID:      "C",
				Text:          "Choose the safer option",
				MapsTo:        growentity.TraitDetail{Trait: focus, Degree: trait.TierLow},
				HiddenMessage: fmt.Sprintf("You prioritize safety over %s", focus),
			},
		},
		IsEnd: depth == entity.MaxDepth,
	}
}
