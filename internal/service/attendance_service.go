package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"crmbot/internal/models"
	"crmbot/internal/repository"
)

type AttendanceService interface {
	Marks(ctx context.Context, sessionID int64) (map[int64]models.AttendanceStatus, error)
	Toggle(ctx context.Context, userID, sessionID, actorID int64) (models.AttendanceStatus, error)
	SetStatus(ctx context.Context, userID, sessionID int64, status models.AttendanceStatus, actorID int64) error
}

type attendanceService struct {
	attendanceRepo repository.AttendanceRepository
	sessionRepo    repository.SessionRepository
	logger         zerolog.Logger
}

func NewAttendanceService(
	attendanceRepo repository.AttendanceRepository,
	sessionRepo repository.SessionRepository,
	logger zerolog.Logger,
) AttendanceService {
	return &attendanceService{
		attendanceRepo: attendanceRepo,
		sessionRepo:    sessionRepo,
		logger:         logger,
	}
}

func (s *attendanceService) Marks(ctx context.Context, sessionID int64) (map[int64]models.AttendanceStatus, error) {
	exists, err := s.sessionRepo.Exists(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if !exists {
		return nil, models.ErrSessionNotFound
	}

	marks, err := s.attendanceRepo.GetMarks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance marks: %w", err)
	}

	return marks, nil
}

// Toggle переводит отметку по фиксированному циклу: нет записи -> present ->
// absent -> expelled -> нет записи. Каждый переход — один атомарный оператор;
// при гонке двух админов побеждает последняя запись.
func (s *attendanceService) Toggle(ctx context.Context, userID, sessionID, actorID int64) (models.AttendanceStatus, error) {
	exists, err := s.sessionRepo.Exists(ctx, sessionID)
	if err != nil {
		return models.AttendanceNone, fmt.Errorf("failed to check session: %w", err)
	}
	if !exists {
		return models.AttendanceNone, models.ErrSessionNotFound
	}

	current, err := s.attendanceRepo.GetMark(ctx, userID, sessionID)
	if err != nil {
		return models.AttendanceNone, fmt.Errorf("failed to get current mark: %w", err)
	}

	next := models.NextAttendanceStatus(current)

	if next == models.AttendanceNone {
		if err := s.attendanceRepo.Delete(ctx, userID, sessionID); err != nil {
			return models.AttendanceNone, fmt.Errorf("failed to clear mark: %w", err)
		}
		return models.AttendanceNone, nil
	}

	mark := &models.AttendanceMark{
		UserID:    userID,
		SessionID: sessionID,
		Status:    next,
		MarkedBy:  actorID,
		MarkedAt:  time.Now(),
	}

	if err := s.attendanceRepo.Upsert(ctx, mark); err != nil {
		return models.AttendanceNone, fmt.Errorf("failed to upsert mark: %w", err)
	}

	return next, nil
}

func (s *attendanceService) SetStatus(ctx context.Context, userID, sessionID int64, status models.AttendanceStatus, actorID int64) error {
	if !models.IsValidAttendanceStatus(status.String()) {
		return fmt.Errorf("invalid attendance status %q", status)
	}

	exists, err := s.sessionRepo.Exists(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if !exists {
		return models.ErrSessionNotFound
	}

	mark := &models.AttendanceMark{
		UserID:    userID,
		SessionID: sessionID,
		Status:    status,
		MarkedBy:  actorID,
		MarkedAt:  time.Now(),
	}

	if err := s.attendanceRepo.Upsert(ctx, mark); err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}

	s.logger.Info().
		Int64("user_id", userID).
		Int64("session_id", sessionID).
		Str("status", status.String()).
		Int64("marked_by", actorID).
		Msg("Attendance status set")

	return nil
}
