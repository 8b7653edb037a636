package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskveil/game-api/internal/trait"
)

func sampleTree() Tree {
	return Tree{
		Root: "start",
		Nodes: map[string]Node{
			"start": {
				Narrative: []Segment{{Text: "The corridor stretches into the dark.", SFX: "wind"}},
				Choices: []Option{
					{ChoiceID: "A", Text: "Press on", TraitImpact: trait.TierHigh, Next: "deeper"},
					{ChoiceID: "B", Text: "Turn back", TraitImpact: trait.TierLow, Next: "exit"},
				},
			},
			"deeper": {
				Narrative: []Segment{{Text: "Something moves behind the wall."}},
				Choices: []Option{
					{ChoiceID: "A", Text: "Call out", TraitImpact: trait.TierModerate, Next: "exit"},
				},
			},
			"exit": {
				Narrative: []Segment{{Text: "Daylight, finally."}},
				IsEnd:     true,
			},
		},
	}
}

func TestTreeWalkRoot(t *testing.T) {
	node, id, err := sampleTree().Walk("")
	require.NoError(t, err)
	assert.Equal(t, "start", id)
	assert.Len(t, node.Choices, 2)
}

func TestTreeWalkPath(t *testing.T) {
	node, id, err := sampleTree().Walk("AA")
	require.NoError(t, err)
	assert.Equal(t, "exit", id)
	assert.True(t, node.IsEnd)
}

func TestTreeWalkMissingEdge(t *testing.T) {
	_, _, err := sampleTree().Walk("AC")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadEdge)
}

func TestTreeWalkMissingRoot(t *testing.T) {
	tr := sampleTree()
	tr.Root = "nowhere"
	_, _, err := tr.Walk("")
	assert.ErrorIs(t, err, ErrBadTree)
}

func TestTreeWalkDanglingEdge(t *testing.T) {
	tr := sampleTree()
	node := tr.Nodes["deeper"]
	node.Choices[0].Next = "void"
	tr.Nodes["deeper"] = node

	_, _, err := tr.Walk("AA")
	assert.ErrorIs(t, err, ErrBadTree)
}

func TestTreeValidate(t *testing.T) {
	require.NoError(t, sampleTree().Validate())
}

func TestTreeValidateMissingRoot(t *testing.T) {
	tr := sampleTree()
	tr.Root = "nowhere"
	assert.ErrorIs(t, tr.Validate(), ErrBadTree)
}

func TestTreeValidateDanglingEdge(t *testing.T) {
	tr := sampleTree()
	node := tr.Nodes["start"]
	node.Choices[1].Next = "void"
	tr.Nodes["start"] = node
	assert.ErrorIs(t, tr.Validate(), ErrBadTree)
}

func TestTreeValidateCycle(t *testing.T) {
	tr := sampleTree()
	node := tr.Nodes["deeper"]
	node.Choices = append(node.Choices, Option{ChoiceID: "B", Text: "Retrace", Next: "start"})
	tr.Nodes["deeper"] = node
	assert.ErrorIs(t, tr.Validate(), ErrBadTree)
}
