package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"crmbot/internal/models"
	"crmbot/internal/repository"
	"crmbot/internal/service/integration"
)

type UserService interface {
	Register(ctx context.Context, telegramID, chatID int64, nickname, password string) (*models.User, error)
	Login(ctx context.Context, telegramID int64, nickname, password string) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	RecordConsent(ctx context.Context, userID int64, given bool) error
	StreamRoster(ctx context.Context, streamID int64) ([]models.User, error)
	AssignStream(ctx context.Context, userID, streamID int64) error
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
}

type userService struct {
	userRepo repository.UserRepository
	events   integration.EventsClient
	logger   zerolog.Logger
}

func NewUserService(userRepo repository.UserRepository, events integration.EventsClient, logger zerolog.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		events:   events,
		logger:   logger,
	}
}

func (s *userService) Register(ctx context.Context, telegramID, chatID int64, nickname, password string) (*models.User, error) {
	existing, err := s.userRepo.GetByNickname(ctx, nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing nickname: %w", err)
	}
	if existing != nil {
		return nil, models.ErrNicknameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		TelegramID:   telegramID,
		ChatID:       chatID,
		Nickname:     nickname,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("nickname", user.Nickname).
		Msg("User registered")

	if s.events != nil {
		event := &models.UserRegisteredEvent{
			UserID:     user.ID,
			TelegramID: user.TelegramID,
			Nickname:   user.Nickname,
			StreamID:   user.StreamID,
			Timestamp:  time.Now().Unix(),
		}
		if err := s.events.PublishUserRegistered(ctx, event); err != nil {
			s.logger.Error().Err(err).Msg("Failed to publish user registered event")
		}
	}

	return user, nil
}

// Login сверяет пароль с bcrypt-хэшем. Старые записи, где пароль лежал в
// открытом виде, проверяются прямым сравнением и тут же перехэшируются.
func (s *userService) Login(ctx context.Context, telegramID int64, nickname, password string) (*models.User, error) {
	user, err := s.userRepo.GetByNickname(ctx, nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if user.PasswordHash != password {
			return nil, models.ErrInvalidCredentials
		}

		hash, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if hashErr != nil {
			return nil, fmt.Errorf("failed to rehash legacy password: %w", hashErr)
		}
		if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, string(hash)); err != nil {
			return nil, fmt.Errorf("failed to migrate legacy password: %w", err)
		}
		user.PasswordHash = string(hash)

		s.logger.Info().Int64("user_id", user.ID).Msg("Legacy password migrated to bcrypt")
	}

	return user, nil
}

func (s *userService) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by telegram id: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}

	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}

	return user, nil
}

func (s *userService) RecordConsent(ctx context.Context, userID int64, given bool) error {
	consent := &models.Consent{
		UserID:    userID,
		Given:     given,
		DecidedAt: time.Now(),
	}

	if err := s.userRepo.UpsertConsent(ctx, consent); err != nil {
		return fmt.Errorf("failed to record consent: %w", err)
	}

	return nil
}

func (s *userService) StreamRoster(ctx context.Context, streamID int64) ([]models.User, error) {
	users, err := s.userRepo.GetByStream(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream roster: %w", err)
	}

	return users, nil
}

func (s *userService) AssignStream(ctx context.Context, userID, streamID int64) error {
	if err := s.userRepo.AssignStream(ctx, userID, streamID); err != nil {
		return fmt.Errorf("failed to assign stream: %w", err)
	}

	return nil
}

func (s *userService) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return false, nil
	}

	return user.Role == models.RoleAdmin, nil
}
