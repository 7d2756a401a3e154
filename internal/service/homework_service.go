package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"crmbot/internal/models"
	"crmbot/internal/repository"
)

type HomeworkService interface {
	NotYetDelivered(ctx context.Context, sessionID int64) ([]int64, error)
	MarkDelivered(ctx context.Context, sessionID, userID int64, link string) error
}

type homeworkService struct {
	homeworkRepo   repository.HomeworkRepository
	attendanceRepo repository.AttendanceRepository
	sessionRepo    repository.SessionRepository
	logger         zerolog.Logger
}

func NewHomeworkService(
	homeworkRepo repository.HomeworkRepository,
	attendanceRepo repository.AttendanceRepository,
	sessionRepo repository.SessionRepository,
	logger zerolog.Logger,
) HomeworkService {
	return &homeworkService{
		homeworkRepo:   homeworkRepo,
		attendanceRepo: attendanceRepo,
		sessionRepo:    sessionRepo,
		logger:         logger,
	}
}

// NotYetDelivered — разность между «присутствовал на занятии» и «уже получил
// ссылку». Несуществующее занятие — ErrSessionNotFound, а не пустой список.
func (s *homeworkService) NotYetDelivered(ctx context.Context, sessionID int64) ([]int64, error) {
	exists, err := s.sessionRepo.Exists(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if !exists {
		return nil, models.ErrSessionNotFound
	}

	present, err := s.attendanceRepo.PresentUsers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get present users: %w", err)
	}

	delivered, err := s.homeworkRepo.DeliveredUsers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get delivered users: %w", err)
	}

	deliveredSet := make(map[int64]struct{}, len(delivered))
	for _, userID := range delivered {
		deliveredSet[userID] = struct{}{}
	}

	var pending []int64
	for _, userID := range present {
		if _, ok := deliveredSet[userID]; !ok {
			pending = append(pending, userID)
		}
	}

	return pending, nil
}

func (s *homeworkService) MarkDelivered(ctx context.Context, sessionID, userID int64, link string) error {
	if err := s.homeworkRepo.MarkDelivered(ctx, sessionID, userID, link); err != nil {
		return fmt.Errorf("failed to mark homework delivered: %w", err)
	}

	return nil
}
