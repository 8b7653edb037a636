package trait

// Tier describes how strongly a choice moves its focused trait.
type Tier string

const (
	TierHigh     Tier = "high"
	TierModerate Tier = "moderate"
	TierLow      Tier = "low"
)

// Valid reports whether t is one of the known impact tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierHigh, TierModerate, TierLow:
		return true
	}
	return false
}

// Delta returns the trait point value of a tier. Unknown tiers are worth nothing.
func (t Tier) Delta() int {
	switch t {
	case TierHigh:
		return 10
	case TierModerate:
		return 5
	case TierLow:
		return 2
	}
	return 0
}

const (
	// Min and Max bound every trait value.
	Min = 0
	Max = 100

	// Names of the tracked traits. The default profile starts each at 50.
	Focus        = "focus"
	Bravery      = "bravery"
	Empathy      = "empathy"
	Honesty      = "honesty"
	Patience     = "patience"
	Curiosity    = "curiosity"
	Truthfulness = "truthfulness"
)

// Names lists all tracked traits.
var Names = []string{Focus, Bravery, Empathy, Honesty, Patience, Curiosity, Truthfulness}

// Profile is a named vector of bounded trait scores.
type Profile map[string]int

// DefaultProfile returns the profile every new player starts with.
func DefaultProfile() Profile {
	p := make(Profile, len(Names))
	for _, n := range Names {
		p[n] = 50
	}
	return p
}

// Clamp forces v into [Min, Max].
func Clamp(v int) int {
	if v < Min {
		return Min
	}
	if v > Max {
		return Max
	}
	return v
}

// Apply adds delta to the named trait, clamping to the valid range, and
// returns the resulting value. Traits absent from the profile are ignored so
// a stale focus name cannot grow the vector.
func (p Profile) Apply(name string, delta int) int {
	cur, ok := p[name]
	if !ok {
		return 0
	}
	next := Clamp(cur + delta)
	p[name] = next
	return next
}

// ApplyAll applies delta to every trait in the profile.
func (p Profile) ApplyAll(delta int) {
	for n := range p {
		p[n] = Clamp(p[n] + delta)
	}
}

// Dominant returns the highest-valued trait and its value. Ties break toward
// the canonical trait order so the answer is stable. Empty profiles return "".
func (p Profile) Dominant() (string, int) {
	best, bestVal := "", -1
	for _, n := range Names {
		if v, ok := p[n]; ok && v > bestVal {
			best, bestVal = n, v
		}
	}
	if best == "" {
		// profile with only non-canonical names; still pick something stable
		for n, v := range p {
			if v > bestVal || (v == bestVal && (best == "" || n < best)) {
				best, bestVal = n, v
			}
		}
	}
	if best == "" {
		return "", 0
	}
	return best, bestVal
}
