package learn

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/duskveil/game-api/internal/learn/entity"
	learnrepo "github.com/duskveil/game-api/internal/learn/repo"
	"github.com/duskveil/game-api/internal/session"
	sessionentity "github.com/duskveil/game-api/internal/session/entity"
)

var (
	ErrNotFound   = errors.New("scenario not found")
	ErrValidation = errors.New("validation failed")
)

// NodeView is a tree node as returned to the client, annotated with the
// session and the path that reached it.
type NodeView struct {
	SessionID   int64  `json:"session_id"`
	CurrentPath string `json:"current_path"`
	NodeID      string `json:"node_id"`
	entity.Node
}

// Service serves the fixed-tree learn mode: scenario listing, deterministic
// traversal by choice path and choice recording.
type Service struct {
	repo     *learnrepo.ScenarioRepo
	sessions *session.Service
}

func NewService(db *sqlx.DB, repo *learnrepo.ScenarioRepo, sessions *session.Service) *Service {
	if repo == nil {
		repo = learnrepo.NewScenarioRepo(db)
	}
	return &Service{repo: repo, sessions: sessions}
}

// List returns every authored scenario id.
func (s *Service) List(ctx context.Context) ([]entity.Scenario, error) {
	return s.repo.ListIDs(ctx)
}

// learnSession loads the session, checks ownership and that it is learn mode.
func (s *Service) learnSession(ctx context.Context, sessionID, userID int64) (*sessionentity.Session, error) {
	sess, err := s.sessions.GetOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Mode != sessionentity.ModeLearn {
		return nil, fmt.Errorf("%w: not a learn session", ErrValidation)
	}
	return sess, nil
}

// NodeAtPath walks a session's scenario tree along path. The empty path
// yields the start scenario. A path element with no matching edge is a
// not-found error, per the read-only traversal contract.
func (s *Service) NodeAtPath(ctx context.Context, sessionID, userID int64, path string) (*NodeView, error) {
	sess, err := s.learnSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	scenario, err := s.repo.Get(ctx, *sess.ScenarioID)
	if err != nil {
		if learnrepo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	node, nodeID, err := scenario.Tree.Walk(path)
	if err != nil {
		if errors.Is(err, entity.ErrBadEdge) {
			return nil, fmt.Errorf("path %q: %w", path, ErrNotFound)
		}
		return nil, err
	}
	return &NodeView{
		SessionID:   sessionID,
		CurrentPath: path,
		NodeID:      nodeID,
		Node:        node,
	}, nil
}

// RecordChoice appends a choice to a learn session and applies its trait
// impact. The depth/completion rules live in the session service.
func (s *Service) RecordChoice(ctx context.Context, sessionID, userID int64, in session.ChoiceInput) (*sessionentity.Choice, bool, error) {
	if _, err := s.learnSession(ctx, sessionID, userID); err != nil {
		return nil, false, err
	}
	return s.sessions.RecordChoice(ctx, sessionID, userID, in, false)
}
