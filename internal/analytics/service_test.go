package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	sessionentity "github.com/duskveil/game-api/internal/session/entity"
	"github.com/duskveil/game-api/internal/trait"
)

type stubGenerator struct {
	text string
	err  error
}

func (s stubGenerator) GenerateJSON(ctx context.Context, system, user string) (map[string]any, error) {
	return nil, errors.New("not used")
}

func (s stubGenerator) GenerateText(ctx context.Context, system, user string) (string, error) {
	return s.text, s.err
}

func TestDominantFocus(t *testing.T) {
	choices := []sessionentity.Choice{
		{TraitFocus: trait.Bravery},
		{TraitFocus: trait.Empathy},
		{TraitFocus: trait.Bravery},
		{TraitFocus: ""},
	}
	assert.Equal(t, trait.Bravery, dominantFocus(choices))
	assert.Equal(t, "", dominantFocus(nil))
}

func TestDominantFocusTieKeepsEarliest(t *testing.T) {
	choices := []sessionentity.Choice{
		{TraitFocus: trait.Patience},
		{TraitFocus: trait.Curiosity},
	}
	assert.Equal(t, trait.Patience, dominantFocus(choices))
}

func TestNarrateSummaryUsesGenerator(t *testing.T) {
	s := &Service{generator: stubGenerator{text: "You barely made it out."}, logger: zap.NewNop().Sugar()}
	sess := &sessionentity.Session{ID: 1, Mode: sessionentity.ModeGrow}
	res := trait.SessionResults{TotalChoices: 5, Ending: trait.EndingBold, Score: 40}

	got := s.narrateSummary(context.Background(), sess, res, trait.Bravery)
	assert.Equal(t, "You barely made it out.", got)
}

func TestNarrateSummaryFallsBack(t *testing.T) {
	s := &Service{generator: stubGenerator{err: errors.New("upstream down")}, logger: zap.NewNop().Sugar()}
	sess := &sessionentity.Session{ID: 1, Mode: sessionentity.ModeLearn}
	res := trait.SessionResults{TotalChoices: 5, Ending: trait.EndingCautious, Score: 12}

	got := s.narrateSummary(context.Background(), sess, res, trait.Patience)
	assert.Equal(t, "You made 5 choices and reached the cautious ending with a score of 12.", got)
}
