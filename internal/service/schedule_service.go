package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"crmbot/internal/models"
	"crmbot/internal/repository"
)

type ScheduleService interface {
	ResolveUserStream(ctx context.Context, userID int64) (int64, error)
	UpcomingSessions(ctx context.Context, streamID int64, limit int) ([]models.SessionWithStream, error)
	RecentPastSessions(ctx context.Context, streamID int64, limit int) ([]models.SessionWithStream, error)
	GetSession(ctx context.Context, id int64) (*models.Session, error)
	CreateSession(ctx context.Context, req *models.CreateSessionRequest) (*models.Session, error)
	CreateStream(ctx context.Context, name string) (*models.Stream, error)
	GetStreams(ctx context.Context) ([]models.StreamWithStats, error)
	GetStreamByName(ctx context.Context, name string) (*models.Stream, error)
}

type scheduleService struct {
	sessionRepo repository.SessionRepository
	streamRepo  repository.StreamRepository
	userRepo    repository.UserRepository
	logger      zerolog.Logger
}

func NewScheduleService(
	sessionRepo repository.SessionRepository,
	streamRepo repository.StreamRepository,
	userRepo repository.UserRepository,
	logger zerolog.Logger,
) ScheduleService {
	return &scheduleService{
		sessionRepo: sessionRepo,
		streamRepo:  streamRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

// ResolveUserStream возвращает 0, если поток не назначен. Это не ошибка:
// пользователю без потока показывается расписание всех потоков.
func (s *scheduleService) ResolveUserStream(ctx context.Context, userID int64) (int64, error) {
	streamID, err := s.userRepo.ResolveStream(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve user stream: %w", err)
	}

	return streamID, nil
}

func (s *scheduleService) UpcomingSessions(ctx context.Context, streamID int64, limit int) ([]models.SessionWithStream, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}

	sessions, err := s.sessionRepo.Upcoming(ctx, streamID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming sessions: %w", err)
	}

	return sessions, nil
}

func (s *scheduleService) RecentPastSessions(ctx context.Context, streamID int64, limit int) ([]models.SessionWithStream, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}

	sessions, err := s.sessionRepo.RecentPast(ctx, streamID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get past sessions: %w", err)
	}

	return sessions, nil
}

func (s *scheduleService) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}

	return session, nil
}

func (s *scheduleService) CreateSession(ctx context.Context, req *models.CreateSessionRequest) (*models.Session, error) {
	stream, err := s.streamRepo.GetByID(ctx, req.StreamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}
	if stream == nil {
		return nil, models.ErrStreamNotFound
	}

	heldOn, err := time.Parse("2006-01-02", req.HeldOn)
	if err != nil {
		return nil, fmt.Errorf("invalid session date %q: %w", req.HeldOn, err)
	}

	session := &models.Session{
		StreamID:     req.StreamID,
		HeldOn:       heldOn,
		TopicCode:    req.TopicCode,
		Title:        req.Title,
		Annotation:   req.Annotation,
		HomeworkLink: req.HomeworkLink,
		CreatedAt:    time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info().
		Int64("session_id", session.ID).
		Int64("stream_id", session.StreamID).
		Str("held_on", req.HeldOn).
		Msg("Session created")

	return session, nil
}

func (s *scheduleService) CreateStream(ctx context.Context, name string) (*models.Stream, error) {
	existing, err := s.streamRepo.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing stream: %w", err)
	}
	if existing != nil {
		return nil, models.ErrStreamNameTaken
	}

	stream := &models.Stream{
		Name:      name,
		CreatedAt: time.Now(),
	}

	if err := s.streamRepo.Create(ctx, stream); err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	s.logger.Info().
		Int64("stream_id", stream.ID).
		Str("name", stream.Name).
		Msg("Stream created")

	return stream, nil
}

func (s *scheduleService) GetStreams(ctx context.Context) ([]models.StreamWithStats, error) {
	streams, err := s.streamRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get streams: %w", err)
	}

	return streams, nil
}

func (s *scheduleService) GetStreamByName(ctx context.Context, name string) (*models.Stream, error) {
	stream, err := s.streamRepo.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream by name: %w", err)
	}
	if stream == nil {
		return nil, models.ErrStreamNotFound
	}

	return stream, nil
}
