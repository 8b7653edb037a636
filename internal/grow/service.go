package grow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/genai"
	growentity "github.com/duskveil/game-api/internal/grow/entity"
	growrepo "github.com/duskveil/game-api/internal/grow/repo"
	"github.com/duskveil/game-api/internal/session"
	sessionentity "github.com/duskveil/game-api/internal/session/entity"
	"github.com/duskveil/game-api/internal/trait"
)

var (
	ErrNotFound   = errors.New("generated scenario not found")
	ErrValidation = errors.New("validation failed")
)

// Store is the generated-scenario persistence surface.
// *growrepo.GeneratedRepo is the production implementation.
type Store interface {
	EnsureTable(ctx context.Context) error
	InsertIfAbsent(ctx context.Context, sessionID int64, depth int, sc growentity.Scenario, source string) (*growentity.Record, error)
	Get(ctx context.Context, sessionID int64, depth int) (*growentity.Record, error)
	ListBySession(ctx context.Context, sessionID int64) ([]growentity.Record, error)
}

// Service serves grow mode: on-demand scenario synthesis with a
// deterministic fallback and idempotent per-depth persistence.
type Service struct {
	repo      Store
	sessions  *session.Service
	generator genai.Generator
	logger    *zap.SugaredLogger
}

func NewService(repo Store, sessions *session.Service, generator genai.Generator, logger *zap.SugaredLogger) *Service {
	return &Service{
		repo:      repo,
		sessions:  sessions,
		generator: generator,
		logger:    logger,
	}
}

// Repo exposes the generated-scenario store for the router's EnsureTable pass.
func (s *Service) Repo() Store { return s.repo }

// GenerateRequest asks for the scenario at a depth. Depth is 1-based; depth d
// is playable after d-1 recorded choices.
type GenerateRequest struct {
	Depth           int      `json:"depth"`
	TraitFocus      string   `json:"trait_focus"`
	PreviousChoices []string `json:"previous_choices"`
}

func (s *Service) growSession(ctx context.Context, sessionID, userID int64) (*sessionentity.Session, error) {
	sess, err := s.sessions.GetOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Mode != sessionentity.ModeGrow {
		return nil, fmt.Errorf("%w: not a grow session", ErrValidation)
	}
	return sess, nil
}

// Generate returns the scenario for (session, depth), synthesizing and
// persisting it on first request. Re-requests return the stored document,
// never a regeneration. The final depth always carries is_end.
func (s *Service) Generate(ctx context.Context, sessionID, userID int64, req GenerateRequest) (*growentity.Record, error) {
	sess, err := s.growSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.IsCompleted {
		return nil, session.ErrCompleted
	}
	if req.Depth < 1 || req.Depth > sessionentity.MaxDepth {
		return nil, fmt.Errorf("%w: depth must be in [1, %d]", ErrValidation, sessionentity.MaxDepth)
	}
	focus := req.TraitFocus
	if focus == "" {
		focus = trait.Bravery
	}

	// idempotent re-read before paying for a generation
	if rec, err := s.repo.Get(ctx, sessionID, req.Depth); err == nil {
		return rec, nil
	} else if !growrepo.IsNotFound(err) {
		return nil, err
	}

	scenario, source := s.synthesize(ctx, req.Depth, focus, req.PreviousChoices, userID)
	rec, err := s.repo.InsertIfAbsent(ctx, sessionID, req.Depth, scenario, source)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// synthesize asks the generation service for a scenario and falls back to the
// deterministic local one on any failure: transport error, malformed JSON,
// missing fields. The error never reaches the caller.
func (s *Service) synthesize(ctx context.Context, depth int, focus string, previous []string, userID int64) (growentity.Scenario, string) {
	u, err := s.sessions.Users().GetByID(ctx, userID)
	if err != nil {
		s.logger.Warnw("load user for prompt failed", "err", err, "userid", userID)
		return fallbackScenario(depth, focus), growentity.SourceFallback
	}

	raw, err := s.generator.GenerateJSON(ctx, systemPrompt, buildPrompt(depth, focus, previous, u))
	if err != nil {
		s.logger.Infow("generation failed, using fallback", "err", err, "depth", depth)
		return fallbackScenario(depth, focus), growentity.SourceFallback
	}

	scenario, err := decodeScenario(raw)
	if err != nil {
		s.logger.Infow("generated scenario rejected, using fallback", "err", err, "depth", depth)
		return fallbackScenario(depth, focus), growentity.SourceFallback
	}
	// the server, not the model, owns the progression contract
	scenario.Depth = depth
	scenario.IsEnd = depth == sessionentity.MaxDepth
	return scenario, growentity.SourceModel
}

func decodeScenario(raw map[string]any) (growentity.Scenario, error) {
	for _, key := range []string{"depth", "scene_narrative", "choices", "is_end"} {
		if _, ok := raw[key]; !ok {
			return growentity.Scenario{}, fmt.Errorf("missing field %q", key)
		}
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return growentity.Scenario{}, err
	}
	var sc growentity.Scenario
	if err := json.Unmarshal(buf, &sc); err != nil {
		return growentity.Scenario{}, err
	}
	if err := sc.Validate(); err != nil {
		return growentity.Scenario{}, err
	}
	return sc, nil
}

// Get returns the stored scenario for a depth.
func (s *Service) Get(ctx context.Context, sessionID, userID int64, depth int) (*growentity.Record, error) {
	if _, err := s.growSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, sessionID, depth)
	if err != nil {
		if growrepo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List returns every generated scenario of a session, ordered by depth.
func (s *Service) List(ctx context.Context, sessionID, userID int64) ([]growentity.Record, error) {
	if _, err := s.growSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListBySession(ctx, sessionID)
}

// RecordChoice appends a grow-mode choice, moving the focused trait. If the
// scene the choice answers carried the end flag, the session completes now.
func (s *Service) RecordChoice(ctx context.Context, sessionID, userID int64, in session.ChoiceInput) (*sessionentity.Choice, bool, error) {
	if _, err := s.growSession(ctx, sessionID, userID); err != nil {
		return nil, false, err
	}
	forceEnd := false
	rec, err := s.repo.Get(ctx, sessionID, in.Depth+1)
	switch {
	case err == nil:
		if in.TraitFocus == "" {
			in.TraitFocus = focusOf(rec.Scenario, in.ChoiceID)
		}
		forceEnd = rec.Scenario.IsEnd
	case !growrepo.IsNotFound(err):
		return nil, false, err
	}
	return s.sessions.RecordChoice(ctx, sessionID, userID, in, forceEnd)
}

// focusOf pulls the trait a chosen option maps to out of the stored scene.
func focusOf(sc growentity.Scenario, choiceID string) string {
	for _, c := range sc.Choices {
		if c.ChoiceID == choiceID {
			return c.MapsTo.Trait
		}
	}
	return ""
}

// Status describes how far along a grow session is.
type Status struct {
	SessionID    int64 `json:"session_id"`
	IsCompleted  bool  `json:"is_completed"`
	ChoicesMade  int   `json:"choices_made"`
	MaxDepth     int   `json:"max_depth"`
	DepthsStored int   `json:"depths_stored"`
}

// SessionStatus reports completion progress for a grow session.
func (s *Service) SessionStatus(ctx context.Context, sessionID, userID int64) (*Status, error) {
	sess, err := s.growSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	made, err := s.sessions.Repo().CountChoices(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stored, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Status{
		SessionID:    sessionID,
		IsCompleted:  sess.IsCompleted,
		ChoicesMade:  made,
		MaxDepth:     sessionentity.MaxDepth,
		DepthsStored: len(stored),
	}, nil
}
