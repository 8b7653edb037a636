package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/session/entity"
	"github.com/duskveil/game-api/internal/trait"
	userentity "github.com/duskveil/game-api/internal/user/entity"
)

// stubStore keeps sessions and choices in memory, mirroring the conditional
// update semantics of the SQL repository.
type stubStore struct {
	sessions map[int64]*entity.Session
	choices  map[int64][]entity.Choice
	nextID   int64
}

func newStubStore() *stubStore {
	return &stubStore{
		sessions: map[int64]*entity.Session{},
		choices:  map[int64][]entity.Choice{},
	}
}

func (s *stubStore) EnsureTable(ctx context.Context) error { return nil }

func (s *stubStore) Create(ctx context.Context, publicRef string, userID int64, mode string, scenarioID *int64) (int64, error) {
	s.nextID++
	s.sessions[s.nextID] = &entity.Session{
		ID:         s.nextID,
		PublicRef:  publicRef,
		UserID:     userID,
		Mode:       mode,
		ScenarioID: scenarioID,
	}
	return s.nextID, nil
}

func (s *stubStore) GetByID(ctx context.Context, id int64) (*entity.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *sess
	return &cp, nil
}

func (s *stubStore) ListByUser(ctx context.Context, userID int64, mode string) ([]entity.Session, error) {
	out := []entity.Session{}
	for _, sess := range s.sessions {
		if sess.UserID == userID && (mode == "" || sess.Mode == mode) {
			out = append(out, *sess)
		}
	}
	return out, nil
}

func (s *stubStore) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	sess, ok := s.sessions[id]
	if !ok || sess.IsCompleted {
		return false, nil
	}
	sess.IsCompleted = true
	return true, nil
}

func (s *stubStore) MarkEnded(ctx context.Context, id int64) (bool, error) {
	_, ok := s.sessions[id]
	return ok, nil
}

func (s *stubStore) InsertChoice(ctx context.Context, c *entity.Choice) (int64, error) {
	s.nextID++
	c.ID = s.nextID
	s.choices[c.SessionID] = append(s.choices[c.SessionID], *c)
	return c.ID, nil
}

func (s *stubStore) ChoicesBySession(ctx context.Context, sessionID int64) ([]entity.Choice, error) {
	return s.choices[sessionID], nil
}

func (s *stubStore) CountChoices(ctx context.Context, sessionID int64) (int, error) {
	return len(s.choices[sessionID]), nil
}

type stubPlayers struct {
	profile trait.Profile
}

func (p *stubPlayers) GetByID(ctx context.Context, id int64) (*userentity.User, error) {
	return &userentity.User{ID: id, TraitProfile: p.profile}, nil
}

func (p *stubPlayers) ApplyTraitDeltas(ctx context.Context, id int64, deltas map[string]int) (trait.Profile, error) {
	for name, delta := range deltas {
		p.profile.Apply(name, delta)
	}
	return p.profile, nil
}

type stubScenarios map[int64]bool

func (s stubScenarios) ScenarioExists(ctx context.Context, id int64) (bool, error) {
	return s[id], nil
}

type stubFinalizer struct {
	calls int
	err   error
}

func (f *stubFinalizer) Finalize(ctx context.Context, sess *entity.Session) error {
	f.calls++
	return f.err
}

func newTestService(t *testing.T) (*Service, *stubStore, *stubPlayers, *stubFinalizer) {
	t.Helper()
	store := newStubStore()
	players := &stubPlayers{profile: trait.DefaultProfile()}
	fin := &stubFinalizer{}
	svc := NewService(store, players, stubScenarios{7: true}, zap.NewNop().Sugar())
	svc.SetFinalizer(fin)
	return svc, store, players, fin
}

func choiceAt(depth int) ChoiceInput {
	return ChoiceInput{Depth: depth, ChoiceID: "A", TraitImpact: trait.TierModerate}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	seven := int64(7)
	nine := int64(9)

	cases := []struct {
		name       string
		mode       string
		scenarioID *int64
		wantErr    error
	}{
		{"unknown mode", "dream", nil, ErrValidation},
		{"learn without scenario", entity.ModeLearn, nil, ErrValidation},
		{"learn with missing scenario", entity.ModeLearn, &nine, ErrNotFound},
		{"learn with scenario", entity.ModeLearn, &seven, nil},
		{"grow needs no scenario", entity.ModeGrow, nil, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sess, err := svc.Create(ctx, 1, c.mode, c.scenarioID)
			if c.wantErr != nil {
				assert.ErrorIs(t, err, c.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.mode, sess.Mode)
			assert.NotEmpty(t, sess.PublicRef)
			assert.False(t, sess.IsCompleted)
		})
	}
}

func TestRecordChoiceValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, 1, entity.ModeGrow, nil)
	require.NoError(t, err)

	cases := []struct {
		name string
		in   ChoiceInput
	}{
		{"bad choice id", ChoiceInput{Depth: 0, ChoiceID: "D", TraitImpact: trait.TierHigh}},
		{"bad impact tier", ChoiceInput{Depth: 0, ChoiceID: "A", TraitImpact: "extreme"}},
		{"negative depth", choiceAt(-1)},
		{"depth at max", choiceAt(entity.MaxDepth)},
		{"depth ahead of progress", choiceAt(1)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := svc.RecordChoice(ctx, sess.ID, 1, c.in, false)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRecordChoiceDepthMustMatchProgress(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, 1, entity.ModeGrow, nil)
	require.NoError(t, err)

	_, _, err = svc.RecordChoice(ctx, sess.ID, 1, choiceAt(0), false)
	require.NoError(t, err)

	// replaying depth 0 is rejected, the next depth is accepted
	_, _, err = svc.RecordChoice(ctx, sess.ID, 1, choiceAt(0), false)
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = svc.RecordChoice(ctx, sess.ID, 1, choiceAt(1), false)
	assert.NoError(t, err)
}

func TestRecordChoiceNotOwner(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, 1, entity.ModeGrow, nil)
	require.NoError(t, err)

	_, _, err = svc.RecordChoice(ctx, sess.ID, 2, choiceAt(0), false)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestRecordChoiceUnknownSession(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, _, err := svc.RecordChoice(context.Background(), 99, 1, choiceAt(0), false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordChoiceMaxDepthCompletes(t *testing.T) {
	svc, store, _, fin := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, 1, entity.ModeGrow, nil)
	require.NoError(t, err)

	for depth := 0; depth < entity.MaxDepth-1; depth++ {
		_, completed, err := svc.RecordChoice(ctx, sess.ID, 1, choiceAt(depth), false)
		require.NoError(t, err)
		assert.False(t, completed, "depth %d should not complete", depth)
	}

	_, completed, err := svc.RecordChoice(ctx, sess.ID, 1, choiceAt(entity.MaxDepth-1), false)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.True(t, store.sessions[sess.ID].IsCompleted)
	assert.Equal(t, 1, fin.calls)
}

func TestRecordChoiceCompletedIsTerminal(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, 1, entity.ModeGrow, nil)
	require.NoError(t, err)

	_, completed, err := svc.RecordChoice(ctx, sess.ID, 1, choiceAt(0), true)
	require.NoError(t, err)
	require.True(t, completed)

	_, _, err = svc.RecordChoice(ctx, sess.ID, 1, choiceAt(1), false)
	assert.ErrorIs(t, err, ErrCompleted)
}

func TestRecordChoiceForceEndCompletesEarly(t *testing.T) {
	svc, store, _, fin := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, 1, entity.ModeGrow, nil)
	require.NoError(t, err)

	_, completed, err := svc.RecordChoice(ctx, sess.ID, 1, choiceAt(0), true)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.True(t, store.sessions[sess.ID].IsCompleted)
	assert.Equal(t, 1, fin.calls)
}

func TestRecordChoiceMovesFocusedTrait(t *testing.T) {
	svc, _, players, _ := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, 1, entity.ModeGrow, nil)
	require.NoError(t, err)

	in := ChoiceInput{Depth: 0, ChoiceID: "B", TraitImpact: trait.TierHigh, TraitFocus: trait.Bravery}
	_, _, err = svc.RecordChoice(ctx, sess.ID, 1, in, false)
	require.NoError(t, err)

	assert.Equal(t, 60, players.profile[trait.Bravery])
	assert.Equal(t, 50, players.profile[trait.Empathy], "unfocused traits stay put")
}

func TestRecordChoiceWithoutFocusMovesAllTraits(t *testing.T) {
	svc, _, players, _ := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, 1, entity.ModeGrow, nil)
	require.NoError(t, err)

	_, _, err = svc.RecordChoice(ctx, sess.ID, 1, choiceAt(0), false)
	require.NoError(t, err)

	for _, name := range trait.Names {
		assert.Equal(t, 55, players.profile[name], name)
	}
}

func TestEndWithoutCompleting(t *testing.T) {
	svc, store, _, fin := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, 1, entity.ModeGrow, nil)
	require.NoError(t, err)

	got, err := svc.End(ctx, sess.ID, 1, false)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted)
	assert.False(t, store.sessions[sess.ID].IsCompleted)
	assert.Equal(t, 0, fin.calls)
}

func TestEndCompletedIsTerminal(t *testing.T) {
	svc, _, _, fin := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, 1, entity.ModeGrow, nil)
	require.NoError(t, err)

	got, err := svc.End(ctx, sess.ID, 1, true)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, 1, fin.calls)

	_, err = svc.End(ctx, sess.ID, 1, true)
	assert.ErrorIs(t, err, ErrCompleted)
	assert.Equal(t, 1, fin.calls, "finalizer must not rerun")
}

func TestFinalizerFailureDoesNotBlockCompletion(t *testing.T) {
	svc, store, _, fin := newTestService(t)
	fin.err = errors.New("analytics down")
	ctx := context.Background()
	sess, err := svc.Create(ctx, 1, entity.ModeGrow, nil)
	require.NoError(t, err)

	got, err := svc.End(ctx, sess.ID, 1, true)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.True(t, store.sessions[sess.ID].IsCompleted)
}
