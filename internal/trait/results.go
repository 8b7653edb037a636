package trait

// Ending labels derived from the spread of impact tiers across a session.
const (
	EndingBold     = "bold"
	EndingBalanced = "balanced"
	EndingCautious = "cautious"
)

// SessionResults aggregates the choice records of a finished session.
type SessionResults struct {
	TotalChoices int            `json:"total_choices"`
	TierCounts   map[Tier]int   `json:"tier_counts"`
	TraitChanges map[string]int `json:"trait_changes"`
	Ending       string         `json:"ending_achieved"`
	Score        int            `json:"session_score"`
}

// ChoiceRecord is the slice of a recorded choice the results care about.
type ChoiceRecord struct {
	Impact Tier
	Trait  string
}

// Summarize folds choice records into session results. The ending label is
// decided by majority impact tier, falling back to the balanced ending on a
// tie. Score is the sum of per-choice deltas.
func Summarize(choices []ChoiceRecord) SessionResults {
	res := SessionResults{
		TierCounts:   map[Tier]int{TierHigh: 0, TierModerate: 0, TierLow: 0},
		TraitChanges: map[string]int{},
	}
	for _, c := range choices {
		res.TotalChoices++
		res.TierCounts[c.Impact]++
		res.Score += c.Impact.Delta()
		if c.Trait != "" {
			res.TraitChanges[c.Trait] += c.Impact.Delta()
		}
	}
	res.Ending = endingFor(res.TierCounts)
	return res
}

func endingFor(counts map[Tier]int) string {
	high, mod, low := counts[TierHigh], counts[TierModerate], counts[TierLow]
	switch {
	case high > mod && high > low:
		return EndingBold
	case low > high && low > mod:
		return EndingCautious
	case mod > high && mod > low:
		return EndingBalanced
	default:
		return EndingBalanced
	}
}
