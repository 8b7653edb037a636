package grow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskveil/game-api/internal/session/entity"
	"github.com/duskveil/game-api/internal/trait"
	userentity "github.com/duskveil/game-api/internal/user/entity"
)

func TestFallbackScenario(t *testing.T) {
	sc := fallbackScenario(2, trait.Empathy)

	require.NoError(t, sc.Validate())
	assert.Equal(t, 2, sc.Depth)
	assert.False(t, sc.IsEnd)
	for i, want := range []trait.Tier{trait.TierHigh, trait.TierModerate, trait.TierLow} {
		assert.Equal(t, want, sc.Choices[i].MapsTo.Degree)
		assert.Equal(t, trait.Empathy, sc.Choices[i].MapsTo.Trait)
	}
}

func TestFallbackScenarioEndsAtMaxDepth(t *testing.T) {
	sc := fallbackScenario(entity.MaxDepth, trait.Bravery)
	assert.True(t, sc.IsEnd)
}

func validRaw() map[string]any {
	return map[string]any{
		"depth": 1,
		"scene_narrative": []any{
			map[string]any{"text": "The lights die one by one.", "sfx": "flicker"},
		},
		"narrative_purpose": "opening tension",
		"choices": []any{
			map[string]any{"choice_id": "A", "choice_text": "Run", "maps_to_trait_details": map[string]any{"trait": "bravery", "degree": "high"}},
			map[string]any{"choice_id": "B", "choice_text": "Hide", "maps_to_trait_details": map[string]any{"trait": "bravery", "degree": "moderate"}},
			map[string]any{"choice_id": "C", "choice_text": "Wait", "maps_to_trait_details": map[string]any{"trait": "bravery", "degree": "low"}},
		},
		"is_end": false,
	}
}

func TestDecodeScenario(t *testing.T) {
	sc, err := decodeScenario(validRaw())
	require.NoError(t, err)
	assert.Equal(t, 1, sc.Depth)
	assert.Len(t, sc.Choices, 3)
	assert.Equal(t, trait.TierHigh, sc.Choices[0].MapsTo.Degree)
}

func TestDecodeScenarioMissingField(t *testing.T) {
	for _, key := range []string{"depth", "scene_narrative", "choices", "is_end"} {
		raw := validRaw()
		delete(raw, key)
		_, err := decodeScenario(raw)
		assert.Error(t, err, "missing %q should be rejected", key)
	}
}

func TestDecodeScenarioBadChoices(t *testing.T) {
	raw := validRaw()
	raw["choices"] = raw["choices"].([]any)[:2]
	_, err := decodeScenario(raw)
	assert.Error(t, err)

	raw = validRaw()
	raw["choices"].([]any)[2].(map[string]any)["choice_id"] = "D"
	_, err = decodeScenario(raw)
	assert.Error(t, err)

	raw = validRaw()
	raw["choices"].([]any)[1].(map[string]any)["maps_to_trait_details"] = map[string]any{"trait": "bravery", "degree": "extreme"}
	_, err = decodeScenario(raw)
	assert.Error(t, err)
}

func TestScenarioValidateDuplicateChoice(t *testing.T) {
	sc := fallbackScenario(1, trait.Focus)
	sc.Choices[1].ChoiceID = "A"
	assert.Error(t, sc.Validate())
}

func TestFocusOf(t *testing.T) {
	sc := fallbackScenario(1, trait.Patience)
	assert.Equal(t, trait.Patience, focusOf(sc, "B"))
	assert.Equal(t, "", focusOf(sc, "Z"))
}

func TestBuildPrompt(t *testing.T) {
	u := &userentity.User{
		GamePlayed: 7,
		TraitProfile: trait.Profile{
			trait.Bravery: 80,
			trait.Empathy: 20,
			trait.Focus:   50,
		},
	}
	p := buildPrompt(3, trait.Bravery, []string{"A", "C"}, u)

	assert.Contains(t, p, "Strongest trait: bravery (80/100)")
	assert.Contains(t, p, "Weakest trait: empathy (20/100)")
	assert.Contains(t, p, "7 games played (experienced)")
	assert.Contains(t, p, "Depth: 3/5")
	assert.Contains(t, p, "Previous Choices in This Session: A, C")
	assert.Contains(t, p, `"is_end": false`)
}

func TestBuildPromptFinalDepth(t *testing.T) {
	u := &userentity.User{TraitProfile: trait.DefaultProfile()}
	p := buildPrompt(entity.MaxDepth, trait.Honesty, nil, u)
	assert.Contains(t, p, `"is_end": true`)
}

func TestExperienceLevel(t *testing.T) {
	assert.Equal(t, "beginner", experienceLevel(0))
	assert.Equal(t, "beginner", experienceLevel(2))
	assert.Equal(t, "intermediate", experienceLevel(3))
	assert.Equal(t, "experienced", experienceLevel(6))
}
