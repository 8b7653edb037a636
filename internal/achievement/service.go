package achievement

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/achievement/entity"
	achievementrepo "github.com/duskveil/game-api/internal/achievement/repo"
	userrepo "github.com/duskveil/game-api/internal/user/repo"
)

// Service evaluates and grants achievements. Everything here is derived
// data: failures are logged by the caller, never fatal to gameplay.
type Service struct {
	repo   *achievementrepo.AchievementRepo
	users  *userrepo.UserRepo
	logger *zap.SugaredLogger
}

func NewService(db *sqlx.DB, logger *zap.SugaredLogger) *Service {
	return &Service{
		repo:   achievementrepo.NewAchievementRepo(db),
		users:  userrepo.NewUserRepo(db),
		logger: logger,
	}
}

// Repo exposes the achievement repository for the router's EnsureTable pass.
func (s *Service) Repo() *achievementrepo.AchievementRepo { return s.repo }

// List returns every achievement.
func (s *Service) List(ctx context.Context) ([]entity.Achievement, error) {
	return s.repo.List(ctx)
}

// ForUser returns a player's unlocked achievements.
func (s *Service) ForUser(ctx context.Context, userID int64) ([]entity.Unlocked, error) {
	return s.repo.ForUser(ctx, userID)
}

// CheckAndUnlock grants every achievement the player now qualifies for.
// Runs as a side effect of session completion.
func (s *Service) CheckAndUnlock(ctx context.Context, userID int64) error {
	completed, err := s.repo.CompletedCount(ctx, userID)
	if err != nil {
		return err
	}
	if completed >= 1 {
		if err := s.repo.Unlock(ctx, userID, entity.CodeFirstGame); err != nil {
			return err
		}
	}
	if completed >= 5 {
		if err := s.repo.Unlock(ctx, userID, entity.CodeFiveGames); err != nil {
			return err
		}
	}

	modes, err := s.repo.CompletedModeCount(ctx, userID)
	if err != nil {
		return err
	}
	if modes >= 2 {
		if err := s.repo.Unlock(ctx, userID, entity.CodeExplorer); err != nil {
			return err
		}
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	for _, v := range u.TraitProfile {
		if v >= 90 {
			if err := s.repo.Unlock(ctx, userID, entity.CodeTraitMaster); err != nil {
				return err
			}
			break
		}
	}
	return nil
}
