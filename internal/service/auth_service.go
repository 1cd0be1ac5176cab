package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskhub/internal/auth"
	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

const bcryptCost = 10

// AuthService orchestrates the session lifecycle: register, login, refresh
// with rotation, and logout.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*model.User, *TokenPair, error)
	Login(ctx context.Context, email, password string) (*model.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// TokenPair bundles a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type authService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	log    *zap.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, log *zap.Logger) AuthService {
	return &authService{users: users, tokens: tokens, log: log}
}

// Register creates a user with a hashed password and opens a session.
func (s *authService) Register(ctx context.Context, name, email, password string) (*model.User, *TokenPair, error) {
	email = normalizeEmail(email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, nil, apperrors.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("new user registered", zap.String("email", user.Email))
	return user, pair, nil
}

// Login authenticates credentials and opens a session. Unknown email and
// password mismatch produce the same error.
func (s *authService) Login(ctx context.Context, email, password string) (*model.User, *TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("user logged in", zap.String("email", user.Email))
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair, rotating the stored
// token so the presented one is permanently invalid afterwards.
//
// Validation and the overwrite are separate round trips; two concurrent
// refreshes on the same stale token can both pass validation before either
// writes. Known race, kept as-is pending a compare-and-swap on the column.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	// Exact match against the stored value detects reuse of a rotated-out token.
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	return s.openSession(ctx, user)
}

// Logout revokes the session holding the given refresh token. Best effort:
// an unknown or empty token still succeeds so the caller can always clear
// its cookie.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	user, err := s.users.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, nil); err != nil {
		s.log.Error("clear refresh token", zap.Error(err))
	}
	return nil
}

// openSession issues a fresh pair and persists the refresh token on the user,
// invalidating any previously stored value.
func (s *authService) openSession(ctx context.Context, user *model.User) (*TokenPair, error) {
	accessToken, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
