package grow

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/genai"
	growentity "github.com/duskveil/game-api/internal/grow/entity"
	"github.com/duskveil/game-api/internal/session"
	sessionentity "github.com/duskveil/game-api/internal/session/entity"
	"github.com/duskveil/game-api/internal/trait"
	userentity "github.com/duskveil/game-api/internal/user/entity"
)

// stubGrowStore serves canned generated records and records inserts.
type stubGrowStore struct {
	records  map[int]*growentity.Record
	getErr   error
	inserted []growentity.Record
}

func (s *stubGrowStore) EnsureTable(ctx context.Context) error { return nil }

func (s *stubGrowStore) Get(ctx context.Context, sessionID int64, depth int) (*growentity.Record, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[depth]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rec, nil
}

func (s *stubGrowStore) InsertIfAbsent(ctx context.Context, sessionID int64, depth int, sc growentity.Scenario, source string) (*growentity.Record, error) {
	rec := growentity.Record{SessionID: sessionID, Depth: depth, Scenario: sc, Source: source}
	s.inserted = append(s.inserted, rec)
	return &rec, nil
}

func (s *stubGrowStore) ListBySession(ctx context.Context, sessionID int64) ([]growentity.Record, error) {
	out := []growentity.Record{}
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out, nil
}

// stubSessionStore holds a single grow session and its choices.
type stubSessionStore struct {
	session sessionentity.Session
	choices []sessionentity.Choice
}

func (s *stubSessionStore) EnsureTable(ctx context.Context) error { return nil }

func (s *stubSessionStore) Create(ctx context.Context, publicRef string, userID int64, mode string, scenarioID *int64) (int64, error) {
	return s.session.ID, nil
}

func (s *stubSessionStore) GetByID(ctx context.Context, id int64) (*sessionentity.Session, error) {
	if id != s.session.ID {
		return nil, sql.ErrNoRows
	}
	cp := s.session
	return &cp, nil
}

func (s *stubSessionStore) ListByUser(ctx context.Context, userID int64, mode string) ([]sessionentity.Session, error) {
	return []sessionentity.Session{s.session}, nil
}

func (s *stubSessionStore) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	if s.session.IsCompleted {
		return false, nil
	}
	s.session.IsCompleted = true
	return true, nil
}

func (s *stubSessionStore) MarkEnded(ctx context.Context, id int64) (bool, error) { return true, nil }

func (s *stubSessionStore) InsertChoice(ctx context.Context, c *sessionentity.Choice) (int64, error) {
	c.ID = int64(len(s.choices) + 1)
	s.choices = append(s.choices, *c)
	return c.ID, nil
}

func (s *stubSessionStore) ChoicesBySession(ctx context.Context, sessionID int64) ([]sessionentity.Choice, error) {
	return s.choices, nil
}

func (s *stubSessionStore) CountChoices(ctx context.Context, sessionID int64) (int, error) {
	return len(s.choices), nil
}

type stubSessionPlayers struct{}

func (stubSessionPlayers) GetByID(ctx context.Context, id int64) (*userentity.User, error) {
	return &userentity.User{ID: id, TraitProfile: trait.DefaultProfile()}, nil
}

func (stubSessionPlayers) ApplyTraitDeltas(ctx context.Context, id int64, deltas map[string]int) (trait.Profile, error) {
	return trait.DefaultProfile(), nil
}

type noScenarios struct{}

func (noScenarios) ScenarioExists(ctx context.Context, id int64) (bool, error) { return false, nil }

type failingGenerator struct{}

func (failingGenerator) GenerateJSON(ctx context.Context, system, user string) (map[string]any, error) {
	return nil, genai.ErrNoAPIKey
}

func (failingGenerator) GenerateText(ctx context.Context, system, user string) (string, error) {
	return "", genai.ErrNoAPIKey
}

func newGrowTestService(store *stubGrowStore, sessStore *stubSessionStore) *Service {
	logger := zap.NewNop().Sugar()
	sessions := session.NewService(sessStore, stubSessionPlayers{}, noScenarios{}, logger)
	return NewService(store, sessions, failingGenerator{}, logger)
}

func growSessionFixture() *stubSessionStore {
	return &stubSessionStore{
		session: sessionentity.Session{ID: 11, UserID: 1, Mode: sessionentity.ModeGrow},
	}
}

func TestRecordChoicePropagatesStoreErrors(t *testing.T) {
	store := &stubGrowStore{getErr: errors.New("connection reset")}
	svc := newGrowTestService(store, growSessionFixture())

	in := session.ChoiceInput{Depth: 0, ChoiceID: "A", TraitImpact: trait.TierHigh}
	_, _, err := svc.RecordChoice(context.Background(), 11, 1, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.getErr)
}

func TestRecordChoiceWithoutStoredSceneStillRecords(t *testing.T) {
	store := &stubGrowStore{records: map[int]*growentity.Record{}}
	sessStore := growSessionFixture()
	svc := newGrowTestService(store, sessStore)

	in := session.ChoiceInput{Depth: 0, ChoiceID: "A", TraitImpact: trait.TierHigh}
	_, completed, err := svc.RecordChoice(context.Background(), 11, 1, in)
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Len(t, sessStore.choices, 1)
}

func TestRecordChoiceFillsFocusAndEndsFromStoredScene(t *testing.T) {
	sc := fallbackScenario(1, trait.Curiosity)
	sc.IsEnd = true
	store := &stubGrowStore{records: map[int]*growentity.Record{
		1: {SessionID: 11, Depth: 1, Scenario: sc, Source: growentity.SourceFallback},
	}}
	sessStore := growSessionFixture()
	svc := newGrowTestService(store, sessStore)

	in := session.ChoiceInput{Depth: 0, ChoiceID: "B", TraitImpact: trait.TierModerate}
	choice, completed, err := svc.RecordChoice(context.Background(), 11, 1, in)
	require.NoError(t, err)
	assert.Equal(t, trait.Curiosity, choice.TraitFocus, "focus filled from the stored scene")
	assert.True(t, completed, "end-flagged scene completes the session")
	assert.True(t, sessStore.session.IsCompleted)
}

func TestGenerateReturnsStoredRecord(t *testing.T) {
	existing := &growentity.Record{
		SessionID: 11,
		Depth:     2,
		Scenario:  fallbackScenario(2, trait.Bravery),
		Source:    growentity.SourceModel,
	}
	store := &stubGrowStore{records: map[int]*growentity.Record{2: existing}}
	svc := newGrowTestService(store, growSessionFixture())

	rec, err := svc.Generate(context.Background(), 11, 1, GenerateRequest{Depth: 2})
	require.NoError(t, err)
	assert.Equal(t, existing, rec)
	assert.Empty(t, store.inserted, "no regeneration for a stored depth")
}

func TestGenerateFallsBackWhenGenerationFails(t *testing.T) {
	store := &stubGrowStore{records: map[int]*growentity.Record{}}
	svc := newGrowTestService(store, growSessionFixture())

	rec, err := svc.Generate(context.Background(), 11, 1, GenerateRequest{Depth: 1, TraitFocus: trait.Honesty})
	require.NoError(t, err)
	assert.Equal(t, growentity.SourceFallback, rec.Source)
	assert.Equal(t, 1, rec.Scenario.Depth)
	require.NoError(t, rec.Scenario.Validate())
}
