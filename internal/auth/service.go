package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/user"
)

// Repository is the persistence surface the auth service needs.
type Repository interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	Create(ctx context.Context, u *user.User) error
}

type Service struct {
	repo   Repository
	tokens TokenGenerator
	logger *slog.Logger
}

func NewService(repo Repository, tokens TokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		logger: logger,
	}
}

// Register creates a user with a bcrypt password hash. Usernames are unique.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*user.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByUsername(ctx, dto.Username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.NewInternalError("failed to check username").WithCause(err)
	}
	if existing != nil {
		return nil, internal.NewConflictError("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password").WithCause(err)
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Username:     dto.Username,
		PasswordHash: string(hash),
		Status:       user.StatusOffline,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, internal.NewInternalError("failed to create user").WithCause(err)
	}

	s.logger.Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Authenticate verifies credentials and issues a token pair. Unknown username
// and wrong password produce the same error so callers cannot probe accounts.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*AuthTokens, *user.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, nil, err
	}

	u, err := s.repo.GetByUsername(ctx, dto.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, internal.ErrInvalidCredentials
		}
		return nil, nil, internal.NewInternalError("failed to load user").WithCause(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, nil, internal.ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(u)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user authenticated", "user_id", u.ID)
	return tokens, u, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The subject must
// still exist.
func (s *Service) Refresh(ctx context.Context, dto RefreshTokenDTO) (*AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	claims, err := s.tokens.ValidateRefreshToken(dto.RefreshToken)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, internal.NewInternalError("failed to load user").WithCause(err)
	}

	return s.issueTokens(u)
}

// ValidateAccessToken resolves the token subject to a live user. Tokens for
// users that no longer exist are rejected.
func (s *Service) ValidateAccessToken(ctx context.Context, tokenString string) (*user.User, error) {
	claims, err := s.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, internal.NewInternalError("failed to load user").WithCause(err)
	}
	return u, nil
}

func (s *Service) issueTokens(u *user.User) (*AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID, u.Username)
	if err != nil {
		return nil, internal.NewInternalError("failed to sign access token").WithCause(err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID, u.Username)
	if err != nil {
		return nil, internal.NewInternalError("failed to sign refresh token").WithCause(err)
	}
	return &AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}
