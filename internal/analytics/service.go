package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/achievement"
	"github.com/duskveil/game-api/internal/analytics/entity"
	analyticsrepo "github.com/duskveil/game-api/internal/analytics/repo"
	"github.com/duskveil/game-api/internal/genai"
	"github.com/duskveil/game-api/internal/session"
	sessionentity "github.com/duskveil/game-api/internal/session/entity"
	"github.com/duskveil/game-api/internal/trait"
	"github.com/duskveil/game-api/internal/user"
)

var ErrNotFound = errors.New("not found")

// Service computes derived statistics and runs the session completion
// pipeline. It implements session.Finalizer.
type Service struct {
	repo         *analyticsrepo.AnalyticsRepo
	sessions     *session.Service
	users        *user.Service
	achievements *achievement.Service
	generator    genai.Generator
	logger       *zap.SugaredLogger
}

func NewService(db *sqlx.DB, sessions *session.Service, users *user.Service, achievements *achievement.Service, generator genai.Generator, logger *zap.SugaredLogger) *Service {
	return &Service{
		repo:         analyticsrepo.NewAnalyticsRepo(db),
		sessions:     sessions,
		users:        users,
		achievements: achievements,
		generator:    generator,
		logger:       logger,
	}
}

// Repo exposes the analytics repository for the router's EnsureTable pass.
func (s *Service) Repo() *analyticsrepo.AnalyticsRepo { return s.repo }

// Finalize assembles and stores the results of a freshly completed session,
// appends it to the player's game history, bumps the play counter and runs
// achievement checks. Implements session.Finalizer.
func (s *Service) Finalize(ctx context.Context, sess *sessionentity.Session) error {
	choices, err := s.sessions.Repo().ChoicesBySession(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("load choices: %w", err)
	}
	records := make([]trait.ChoiceRecord, 0, len(choices))
	for _, c := range choices {
		records = append(records, trait.ChoiceRecord{Impact: c.TraitImpact, Trait: c.TraitFocus})
	}
	res := trait.Summarize(records)
	focus := dominantFocus(choices)
	summary := s.narrateSummary(ctx, sess, res, focus)

	if err := s.repo.SaveResults(ctx, sess.ID, focus, res, summary); err != nil {
		return fmt.Errorf("save results: %w", err)
	}

	historyEntry := map[string]any{
		"mode":         sess.Mode,
		"completed_at": time.Now().UTC(),
		"results":      res,
		"summary":      summary,
	}
	userRepo := s.users.Repo()
	if err := userRepo.AppendGameHistory(ctx, sess.UserID, fmt.Sprintf("session_%d", sess.ID), historyEntry); err != nil {
		return fmt.Errorf("append game history: %w", err)
	}
	if err := userRepo.IncrementGamesPlayed(ctx, sess.UserID); err != nil {
		return fmt.Errorf("increment games played: %w", err)
	}
	if err := s.achievements.CheckAndUnlock(ctx, sess.UserID); err != nil {
		// badge misses should not fail completion
		s.logger.Warnw("achievement check failed", "userid", sess.UserID, "err", err)
	}
	return nil
}

// narrateSummary asks the generation service for a short session recap and
// falls back to a deterministic sentence on any failure.
func (s *Service) narrateSummary(ctx context.Context, sess *sessionentity.Session, res trait.SessionResults, focus string) string {
	prompt := fmt.Sprintf(
		"Summarize a psychological thriller play session in 2 sentences, second person. Mode: %s. Choices made: %d. Ending achieved: %s. Dominant trait focus: %s. Score: %d.",
		sess.Mode, res.TotalChoices, res.Ending, focus, res.Score,
	)
	text, err := s.generator.GenerateText(ctx, "You narrate game session summaries. Reply with prose only.", prompt)
	if err != nil || text == "" {
		if err != nil {
			s.logger.Debugw("summary generation failed, using fallback", "session_id", sess.ID, "err", err)
		}
		return fmt.Sprintf("You made %d choices and reached the %s ending with a score of %d.",
			res.TotalChoices, res.Ending, res.Score)
	}
	return text
}

// dominantFocus picks the most frequent trait focus among the choices; ties
// break toward the earliest choice. Empty when no choice named a trait.
func dominantFocus(choices []sessionentity.Choice) string {
	counts := map[string]int{}
	best, bestN := "", 0
	for _, c := range choices {
		if c.TraitFocus == "" {
			continue
		}
		counts[c.TraitFocus]++
		if counts[c.TraitFocus] > bestN {
			best, bestN = c.TraitFocus, counts[c.TraitFocus]
		}
	}
	return best
}

// UserStats returns the per-user analytics payload.
func (s *Service) UserStats(ctx context.Context, userID int64) (*entity.UserStats, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	modes, err := s.repo.UserModeStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	impacts, err := s.repo.UserImpactCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &entity.UserStats{
		UserID:       u.ID,
		GamePlayed:   u.GamePlayed,
		TraitProfile: u.TraitProfile,
		Sessions:     modes,
		Impacts:      impacts,
	}, nil
}

// Leaderboard returns the top players by games played.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.Leaderboard(ctx, limit)
}

// ChoiceDistribution buckets all recorded choices, optionally per scenario.
func (s *Service) ChoiceDistribution(ctx context.Context, scenarioID *int64) ([]entity.ChoiceBucket, error) {
	return s.repo.ChoiceDistribution(ctx, scenarioID)
}

// SessionSummary aggregates one session's choices for its owner.
func (s *Service) SessionSummary(ctx context.Context, sessionID, userID int64) (map[string]any, error) {
	choices, err := s.sessions.Choices(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	tierCounts := map[trait.Tier]int{trait.TierHigh: 0, trait.TierModerate: 0, trait.TierLow: 0}
	choiceCounts := map[string]int{"A": 0, "B": 0, "C": 0}
	for _, c := range choices {
		tierCounts[c.TraitImpact]++
		choiceCounts[c.ChoiceID]++
	}
	out := map[string]any{
		"session_id":          sessionID,
		"total_choices":       len(choices),
		"trait_impacts":       tierCounts,
		"choice_distribution": choiceCounts,
		"choices":             choices,
	}
	// completed sessions also carry the stored results row
	if rec, err := s.repo.GetResults(ctx, sessionID); err == nil {
		rec.Results.TierCounts = tierCounts
		out["results"] = rec.Results
		out["summary"] = rec.Summary
		out["trait_focus"] = rec.TraitFocus
	} else if !analyticsrepo.IsNotFound(err) {
		return nil, err
	}
	return out, nil
}

// Progression returns a user's trait-change timeline over completed sessions.
func (s *Service) Progression(ctx context.Context, userID int64) ([]entity.ProgressionPoint, error) {
	return s.repo.Progression(ctx, userID)
}
