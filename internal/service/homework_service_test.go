package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmbot/internal/models"
)

func newHomeworkFixture(t *testing.T) (HomeworkService, *mockHomeworkRepository, *mockAttendanceRepository, *mockSessionRepository) {
	t.Helper()

	homeworkRepo := newMockHomeworkRepository()
	attendanceRepo := newMockAttendanceRepository()
	sessionRepo := newMockSessionRepository()
	svc := NewHomeworkService(homeworkRepo, attendanceRepo, sessionRepo, zerolog.Nop())

	return svc, homeworkRepo, attendanceRepo, sessionRepo
}

func markPresent(t *testing.T, repo *mockAttendanceRepository, sessionID int64, userIDs ...int64) {
	t.Helper()

	for _, userID := range userIDs {
		require.NoError(t, repo.Upsert(context.Background(), &models.AttendanceMark{
			UserID:    userID,
			SessionID: sessionID,
			Status:    models.AttendancePresent,
		}))
	}
}

func TestNotYetDelivered(t *testing.T) {
	svc, _, attendanceRepo, sessionRepo := newHomeworkFixture(t)
	ctx := context.Background()
	sessionID := seedSession(t, sessionRepo)

	markPresent(t, attendanceRepo, sessionID, 1, 2, 3)

	require.NoError(t, svc.MarkDelivered(ctx, sessionID, 2, "https://example.com/hw"))

	pending, err := svc.NotYetDelivered(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, pending)
}

func TestNotYetDeliveredUnknownSession(t *testing.T) {
	svc, _, _, _ := newHomeworkFixture(t)

	_, err := svc.NotYetDelivered(context.Background(), 999)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestNotYetDeliveredEmptyWhenAllCovered(t *testing.T) {
	svc, _, attendanceRepo, sessionRepo := newHomeworkFixture(t)
	ctx := context.Background()
	sessionID := seedSession(t, sessionRepo)

	markPresent(t, attendanceRepo, sessionID, 1, 2)
	require.NoError(t, svc.MarkDelivered(ctx, sessionID, 1, "https://example.com/hw"))
	require.NoError(t, svc.MarkDelivered(ctx, sessionID, 2, "https://example.com/hw"))

	pending, err := svc.NotYetDelivered(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// Повторная раздача не создаёт дубликатов и не трогает первую запись.
func TestMarkDeliveredIdempotent(t *testing.T) {
	svc, homeworkRepo, attendanceRepo, sessionRepo := newHomeworkFixture(t)
	ctx := context.Background()
	sessionID := seedSession(t, sessionRepo)

	markPresent(t, attendanceRepo, sessionID, 1)

	require.NoError(t, svc.MarkDelivered(ctx, sessionID, 1, "https://example.com/hw-v1"))
	require.NoError(t, svc.MarkDelivered(ctx, sessionID, 1, "https://example.com/hw-v2"))

	delivered, err := homeworkRepo.DeliveredUsers(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, delivered)

	delivery, err := homeworkRepo.GetDelivery(ctx, sessionID, 1)
	require.NoError(t, err)
	require.NotNil(t, delivery)
	assert.Equal(t, "https://example.com/hw-v1", delivery.Link)

	pending, err := svc.NotYetDelivered(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// Отсутствующие и отчисленные в раздачу не попадают.
func TestNotYetDeliveredOnlyPresent(t *testing.T) {
	svc, _, attendanceRepo, sessionRepo := newHomeworkFixture(t)
	ctx := context.Background()
	sessionID := seedSession(t, sessionRepo)

	markPresent(t, attendanceRepo, sessionID, 1)
	require.NoError(t, attendanceRepo.Upsert(ctx, &models.AttendanceMark{
		UserID: 2, SessionID: sessionID, Status: models.AttendanceAbsent,
	}))
	require.NoError(t, attendanceRepo.Upsert(ctx, &models.AttendanceMark{
		UserID: 3, SessionID: sessionID, Status: models.AttendanceExpelled,
	}))

	pending, err := svc.NotYetDelivered(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, pending)
}
