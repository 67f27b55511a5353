package service

import (
	"context"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-tracker/internal/auth"
	"github.com/spec-kit/task-tracker/internal/config"
	"github.com/spec-kit/task-tracker/internal/domain"
	"github.com/spec-kit/task-tracker/internal/repository"
	apperrors "github.com/spec-kit/task-tracker/pkg/util"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 6

// AuthService coordinates registration, login and profile flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// ProfileUpdateInput carries optional profile fields. A field updates the
// stored value only when present and non-empty; otherwise the prior value
// is retained.
type ProfileUpdateInput struct {
	Name  *string
	Email *string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates a new account and issues a session token.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	if name == "" || email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("Please provide all fields")
	}
	if !emailPattern.MatchString(email) {
		return nil, "", time.Time{}, apperrors.NewValidationError("Please provide a valid email address")
	}
	if len(password) < minPasswordLength {
		return nil, "", time.Time{}, apperrors.NewValidationError("Password must be at least 6 characters long")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("User already exists")
	} else if err != pgx.ErrNoRows {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	// The unique index on email turns a concurrent duplicate insert into a
	// conflict instead of letting it slip past the lookup above.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// Login authenticates credentials and issues a fresh session token. Unknown
// email and wrong password collapse into the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	if email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("Please provide email and password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, apperrors.NewAuthenticationError("Invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewAuthenticationError("Invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// CurrentUser fetches the public projection of an already-resolved identity.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateProfile applies present-and-non-empty fields and retains the rest.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input ProfileUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("User not found")
		}
		return nil, apperrors.MapError(err)
	}

	if input.Email != nil && *input.Email != "" && *input.Email != user.Email {
		if !emailPattern.MatchString(*input.Email) {
			return nil, apperrors.NewValidationError("Please provide a valid email address")
		}
		existing, err := s.users.GetByEmail(ctx, *input.Email)
		if err == nil && existing.ID != user.ID {
			return nil, apperrors.NewConflict("Email is already in use")
		} else if err != nil && err != pgx.ErrNoRows {
			return nil, apperrors.MapError(err)
		}
		user.Email = *input.Email
	}
	if input.Name != nil && *input.Name != "" {
		user.Name = *input.Name
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
