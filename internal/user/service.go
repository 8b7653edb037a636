package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/duskveil/game-api/internal/trait"
	"github.com/duskveil/game-api/internal/user/entity"
	userrepo "github.com/duskveil/game-api/internal/user/repo"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrDuplicate  = errors.New("username or email already exists")
	ErrValidation = errors.New("validation failed")
)

// Service owns player lifecycle: registration, profile reads/patches and the
// soft delete. Credential verification lives in internal/auth; it shares the
// repo through this package's constructor.
type Service struct {
	repo *userrepo.UserRepo
}

func NewService(db *sqlx.DB, r *userrepo.UserRepo) *Service {
	if r == nil {
		r = userrepo.NewUserRepo(db)
	}
	return &Service{repo: r}
}

// Repo exposes the underlying repository for collaborators (auth middleware,
// session completion) that need row-level operations.
func (s *Service) Repo() *userrepo.UserRepo { return s.repo }

// Register validates and creates a player with the default trait profile
// unless one is supplied.
func (s *Service) Register(ctx context.Context, username, email, password string, profile trait.Profile) (int64, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if len(username) < 3 || len(username) > 50 {
		return 0, fmt.Errorf("%w: username must be 3-50 characters", ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return 0, fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if len(password) < 6 {
		return 0, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	if profile == nil {
		profile = trait.DefaultProfile()
	}
	for name, v := range profile {
		if v < trait.Min || v > trait.Max {
			return 0, fmt.Errorf("%w: trait %s out of range", ErrValidation, name)
		}
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrDuplicate
	}

	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}
	return s.repo.Create(ctx, username, email, hash, profile)
}

// Get returns a player by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if userrepo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// Update patches email and/or trait profile.
func (s *Service) Update(ctx context.Context, id int64, email *string, profile trait.Profile) error {
	if email != nil && !strings.Contains(*email, "@") {
		return fmt.Errorf("%w: invalid email", ErrValidation)
	}
	for name, v := range profile {
		if v < trait.Min || v > trait.Max {
			return fmt.Errorf("%w: trait %s out of range", ErrValidation, name)
		}
	}
	rows, err := s.repo.UpdateProfile(ctx, id, email, profile)
	if err != nil {
		return err
	}
	if rows == 0 && (email != nil || profile != nil) {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a player.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	rows, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive returns active users with pagination defaults of 0/100.
func (s *Service) ListActive(ctx context.Context, skip, limit int) ([]entity.Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	return s.repo.ListActive(ctx, skip, limit)
}
