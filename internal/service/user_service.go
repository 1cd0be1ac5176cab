package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskhub/internal/cache"
	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

const (
	userCachePrefix = "user:"
	userCacheTTL    = 5 * time.Minute
)

// ProfilePatch is a partial profile update; nil fields are left unchanged.
type ProfilePatch struct {
	Name  *string
	Email *string
}

// UserService exposes the authenticated user's profile.
type UserService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*model.User, error)
}

type userService struct {
	users repository.UserRepository
	cache *cache.Client
	log   *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, cacheClient *cache.Client, log *zap.Logger) UserService {
	return &userService{users: users, cache: cacheClient, log: log}
}

// GetByID resolves a user, serving identity lookups from cache when possible.
// The cached copy never contains the password hash or refresh token.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	key := userCachePrefix + id.String()
	if data, _ := s.cache.Get(ctx, key); data != nil {
		var user model.User
		if err := json.Unmarshal(data, &user); err == nil {
			return &user, nil
		}
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, key, payload, userCacheTTL)
	}
	return user, nil
}

// UpdateProfile applies a partial update and invalidates the cached copy.
func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*model.User, error) {
	if patch.Name == nil && patch.Email == nil {
		return nil, apperrors.ErrNoFields
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		taken, err := s.users.EmailTakenByOther(ctx, email, id)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return nil, apperrors.ErrEmailTaken
		}
		user.Email = email
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	_ = s.cache.Delete(ctx, userCachePrefix+id.String())
	s.log.Info("profile updated", zap.String("userId", id.String()))
	return user, nil
}
