package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/session/entity"
	sessionrepo "github.com/duskveil/game-api/internal/session/repo"
	"github.com/duskveil/game-api/internal/trait"
	userentity "github.com/duskveil/game-api/internal/user/entity"
	"github.com/duskveil/game-api/pkg/utilities"
)

var (
	ErrNotFound   = errors.New("session not found")
	ErrNotOwner   = errors.New("session belongs to another user")
	ErrCompleted  = errors.New("session already completed")
	ErrValidation = errors.New("validation failed")
)

// ScenarioChecker reports whether a static scenario exists. Implemented by
// the learn repository; kept as an interface so session stays decoupled
// from the scenario storage.
type ScenarioChecker interface {
	ScenarioExists(ctx context.Context, id int64) (bool, error)
}

// Store is the session persistence surface. *sessionrepo.SessionRepo is the
// production implementation.
type Store interface {
	EnsureTable(ctx context.Context) error
	Create(ctx context.Context, publicRef string, userID int64, mode string, scenarioID *int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.Session, error)
	ListByUser(ctx context.Context, userID int64, mode string) ([]entity.Session, error)
	MarkCompleted(ctx context.Context, id int64) (bool, error)
	MarkEnded(ctx context.Context, id int64) (bool, error)
	InsertChoice(ctx context.Context, c *entity.Choice) (int64, error)
	ChoicesBySession(ctx context.Context, sessionID int64) ([]entity.Choice, error)
	CountChoices(ctx context.Context, sessionID int64) (int, error)
}

// PlayerStore is the slice of the user repository the session flow touches.
// *userrepo.UserRepo is the production implementation.
type PlayerStore interface {
	GetByID(ctx context.Context, id int64) (*userentity.User, error)
	ApplyTraitDeltas(ctx context.Context, id int64, deltas map[string]int) (trait.Profile, error)
}

// Finalizer runs the completion side effects of a session: results assembly,
// game history, play counter, achievements. Implemented by the analytics
// service and attached after construction to break the dependency cycle.
type Finalizer interface {
	Finalize(ctx context.Context, s *entity.Session) error
}

// Service enforces the per-session state machine:
// created -> (N x choice recorded) -> completed, completed being terminal.
type Service struct {
	repo      Store
	users     PlayerStore
	scenarios ScenarioChecker
	finalizer Finalizer
	logger    *zap.SugaredLogger
}

func NewService(repo Store, users PlayerStore, scenarios ScenarioChecker, logger *zap.SugaredLogger) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		scenarios: scenarios,
		logger:    logger,
	}
}

// SetFinalizer attaches the completion pipeline.
func (s *Service) SetFinalizer(f Finalizer) { s.finalizer = f }

// Repo exposes the session store to the learn/grow/analytics services.
func (s *Service) Repo() Store { return s.repo }

// Users exposes the player store for collaborators that need player rows.
func (s *Service) Users() PlayerStore { return s.users }

// Create starts a session. Learn mode requires an existing scenario.
func (s *Service) Create(ctx context.Context, userID int64, mode string, scenarioID *int64) (*entity.Session, error) {
	if mode != entity.ModeLearn && mode != entity.ModeGrow {
		return nil, fmt.Errorf("%w: mode must be learn or grow", ErrValidation)
	}
	if mode == entity.ModeLearn {
		if scenarioID == nil {
			return nil, fmt.Errorf("%w: scenario_id is required for learn mode", ErrValidation)
		}
		exists, err := s.scenarios.ScenarioExists(ctx, *scenarioID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("scenario %d: %w", *scenarioID, ErrNotFound)
		}
	}
	ref := utilities.NewSnowflakeID()
	id, err := s.repo.Create(ctx, ref, userID, mode, scenarioID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Get returns a session by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if sessionrepo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// GetOwned returns a session after checking ownership.
func (s *Service) GetOwned(ctx context.Context, id, userID int64) (*entity.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrNotOwner
	}
	return sess, nil
}

// ListByUser returns a user's sessions with an optional mode filter.
func (s *Service) ListByUser(ctx context.Context, userID int64, mode string) ([]entity.Session, error) {
	if mode != "" && mode != entity.ModeLearn && mode != entity.ModeGrow {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrValidation, mode)
	}
	return s.repo.ListByUser(ctx, userID, mode)
}

// End closes a session. With completed=true it transitions to the terminal
// completed state exactly once and runs the finalizer; ending an already
// completed session is a conflict.
func (s *Service) End(ctx context.Context, id, userID int64, completed bool) (*entity.Session, error) {
	sess, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if sess.IsCompleted {
		return nil, ErrCompleted
	}
	if completed {
		return s.complete(ctx, sess)
	}
	if _, err := s.repo.MarkEnded(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) complete(ctx context.Context, sess *entity.Session) (*entity.Session, error) {
	ok, err := s.repo.MarkCompleted(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCompleted
	}
	fresh, err := s.repo.GetByID(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if s.finalizer != nil {
		if err := s.finalizer.Finalize(ctx, fresh); err != nil {
			// results and achievements are derived data; completion stands
			s.logger.Warnw("session finalize failed", "session_id", sess.ID, "err", err)
		}
	}
	return fresh, nil
}

// ChoiceInput carries one decision.
type ChoiceInput struct {
	Depth       int        `json:"depth"`
	ChoiceID    string     `json:"choice_id"`
	TraitImpact trait.Tier `json:"trait_impact"`
	TraitFocus  string     `json:"trait_focus"`
}

// RecordChoice validates and appends a choice, applies the trait deltas and
// completes the session when the final depth is reached or forceEnd is set.
// Returns the stored choice and whether this call completed the session.
func (s *Service) RecordChoice(ctx context.Context, sessionID, userID int64, in ChoiceInput, forceEnd bool) (*entity.Choice, bool, error) {
	sess, err := s.GetOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, false, err
	}
	if sess.IsCompleted {
		return nil, false, ErrCompleted
	}
	if !entity.ValidChoiceID(in.ChoiceID) {
		return nil, false, fmt.Errorf("%w: choice_id must be A, B or C", ErrValidation)
	}
	if !in.TraitImpact.Valid() {
		return nil, false, fmt.Errorf("%w: trait_impact must be high, moderate or low", ErrValidation)
	}
	if in.Depth < 0 || in.Depth >= entity.MaxDepth {
		return nil, false, fmt.Errorf("%w: depth must be in [0, %d)", ErrValidation, entity.MaxDepth)
	}
	recorded, err := s.repo.CountChoices(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if in.Depth != recorded {
		return nil, false, fmt.Errorf("%w: expected depth %d, got %d", ErrValidation, recorded, in.Depth)
	}

	choice := &entity.Choice{
		SessionID:   sessionID,
		Depth:       in.Depth,
		ChoiceID:    in.ChoiceID,
		TraitImpact: in.TraitImpact,
		TraitFocus:  in.TraitFocus,
	}
	id, err := s.repo.InsertChoice(ctx, choice)
	if err != nil {
		return nil, false, err
	}
	choice.ID = id

	delta := in.TraitImpact.Delta()
	deltas := map[string]int{}
	if in.TraitFocus != "" {
		deltas[in.TraitFocus] = delta
	} else {
		for _, name := range trait.Names {
			deltas[name] = delta
		}
	}
	if _, err := s.users.ApplyTraitDeltas(ctx, userID, deltas); err != nil {
		return nil, false, fmt.Errorf("apply trait deltas: %w", err)
	}

	if recorded+1 >= entity.MaxDepth || forceEnd {
		if _, err := s.complete(ctx, sess); err != nil && !errors.Is(err, ErrCompleted) {
			return nil, false, err
		}
		return choice, true, nil
	}
	return choice, false, nil
}

// Choices returns a session's choices after an ownership check.
func (s *Service) Choices(ctx context.Context, sessionID, userID int64) ([]entity.Choice, error) {
	if _, err := s.GetOwned(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	return s.repo.ChoicesBySession(ctx, sessionID)
}
