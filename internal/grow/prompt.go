package grow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/duskveil/game-api/internal/session/entity"
	"github.com/duskveil/game-api/internal/trait"
	userentity "github.com/duskveil/game-api/internal/user/entity"
)

const systemPrompt = "You are an expert psychological thriller writer who creates personalized gaming experiences. Always return valid JSON only."

// buildPrompt assembles the generation prompt from the player's trait
// profile, play history and the choices already made this session.
func buildPrompt(depth int, focus string, previous []string, u *userentity.User) string {
	var b strings.Builder

	b.WriteString("You are creating a personalized psychological thriller scenario for a specific player.\n\n")
	b.WriteString("PLAYER CONTEXT:\n")
	writeTraitAnalysis(&b, u.TraitProfile, focus)
	fmt.Fprintf(&b, "Experience: %d games played (%s)\n\n", u.GamePlayed, experienceLevel(u.GamePlayed))

	b.WriteString("CURRENT SESSION:\n")
	fmt.Fprintf(&b, "Depth: %d/%d\n", depth, entity.MaxDepth)
	fmt.Fprintf(&b, "Trait Focus: %s\n", focus)
	fmt.Fprintf(&b, "Previous Choices in This Session: %s\n\n", strings.Join(previous, ", "))

	b.WriteString("PERSONALIZATION GUIDELINES:\n")
	fmt.Fprintf(&b, "1. Consider the player's trait profile when crafting the scenario intensity\n")
	fmt.Fprintf(&b, "2. If %s is their weakness, create a gentler introduction\n", focus)
	fmt.Fprintf(&b, "3. If %s is their strength, challenge them with more complex moral dilemmas\n", focus)
	b.WriteString("4. Reference their choice patterns and reward stepping outside them\n")
	fmt.Fprintf(&b, "5. Adapt difficulty to their experience level (%d games played)\n\n", u.GamePlayed)

	b.WriteString("Generate a scenario with:\n")
	b.WriteString("1. A dark, psychological narrative (2-3 sentences) tailored to their experience level\n")
	fmt.Fprintf(&b, "2. Three choices (A, B, C) that test %s at appropriate difficulty\n", focus)
	b.WriteString("3. Each choice with a different trait impact (high, moderate, low)\n\n")

	b.WriteString("Return ONLY valid JSON in this exact format:\n")
	fmt.Fprintf(&b, `{
  "depth": %d,
  "scene_narrative": [
    {"text": "First sentence adapted to the player's profile", "sfx": "sound_effect"},
    {"text": "Second sentence that challenges their patterns", "sfx": "sound_effect"}
  ],
  "narrative_purpose": "Why this scenario fits this specific player",
  "personalization_notes": "How this scenario is tailored to their profile",
  "choices": [
    {"choice_id": "A", "choice_text": "...", "maps_to_trait_details": {"trait": %q, "degree": "high"}, "short_hidden_message": "..."},
    {"choice_id": "B", "choice_text": "...", "maps_to_trait_details": {"trait": %q, "degree": "moderate"}, "short_hidden_message": "..."},
    {"choice_id": "C", "choice_text": "...", "maps_to_trait_details": {"trait": %q, "degree": "low"}, "short_hidden_message": "..."}
  ],
  "is_end": %t
}`, depth, focus, focus, focus, depth == entity.MaxDepth)

	return b.String()
}

func writeTraitAnalysis(b *strings.Builder, profile trait.Profile, focus string) {
	if len(profile) == 0 {
		return
	}
	type tv struct {
		name  string
		value int
	}
	sorted := make([]tv, 0, len(profile))
	for n, v := range profile {
		sorted = append(sorted, tv{n, v})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].value != sorted[j].value {
			return sorted[i].value > sorted[j].value
		}
		return sorted[i].name < sorted[j].name
	})
	strongest, weakest := sorted[0], sorted[len(sorted)-1]
	fmt.Fprintf(b, "- Strongest trait: %s (%d/100)\n", strongest.name, strongest.value)
	fmt.Fprintf(b, "- Weakest trait: %s (%d/100)\n", weakest.name, weakest.value)
	fmt.Fprintf(b, "- Current %s: %d/100\n", focus, profile[focus])
}

func experienceLevel(gamesPlayed int) string {
	switch {
	case gamesPlayed > 5:
		return "experienced"
	case gamesPlayed > 2:
		return "intermediate"
	default:
		return "beginner"
	}
}
