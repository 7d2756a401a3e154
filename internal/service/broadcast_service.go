package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crmbot/internal/models"
	"crmbot/internal/repository"
	"crmbot/internal/service/integration"
)

// MessageSender — граница с ботом: рассылке нужна только отправка одного
// сообщения в один чат.
type MessageSender interface {
	SendBroadcastMessage(chatID int64, body, attachmentFileID string) error
}

type BroadcastService interface {
	Compose(ctx context.Context, body, attachmentFileID, audience string, createdBy int64) (*models.Broadcast, error)
	Start(ctx context.Context, broadcastID string, sender MessageSender) error
	Resume(ctx context.Context, broadcastID string, sender MessageSender) error
	Stop(broadcastID string) bool
	GetBroadcast(ctx context.Context, id string) (*models.Broadcast, error)
	GetAllBroadcasts(ctx context.Context, page, limit int) ([]models.Broadcast, int, error)
}

type broadcastService struct {
	broadcastRepo repository.BroadcastRepository
	userRepo      repository.UserRepository
	events        integration.EventsClient
	batchSize     int
	batchDelay    time.Duration
	logger        zerolog.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewBroadcastService(
	broadcastRepo repository.BroadcastRepository,
	userRepo repository.UserRepository,
	events integration.EventsClient,
	batchSize int,
	batchDelay time.Duration,
	logger zerolog.Logger,
) BroadcastService {
	if batchSize < 1 {
		batchSize = 25
	}

	return &broadcastService{
		broadcastRepo: broadcastRepo,
		userRepo:      userRepo,
		events:        events,
		batchSize:     batchSize,
		batchDelay:    batchDelay,
		logger:        logger,
		running:       make(map[string]context.CancelFunc),
	}
}

func (s *broadcastService) Compose(ctx context.Context, body, attachmentFileID, audience string, createdBy int64) (*models.Broadcast, error) {
	broadcast := &models.Broadcast{
		ID:               uuid.New().String(),
		Body:             body,
		AttachmentFileID: attachmentFileID,
		Audience:         audience,
		Status:           models.BroadcastDraft,
		CreatedBy:        createdBy,
		CreatedAt:        time.Now(),
	}

	if err := s.broadcastRepo.Create(ctx, broadcast); err != nil {
		return nil, fmt.Errorf("failed to create broadcast: %w", err)
	}

	s.logger.Info().
		Str("broadcast_id", broadcast.ID).
		Str("audience", broadcast.Audience).
		Msg("Broadcast composed")

	return broadcast, nil
}

// Start снимает срез аудитории в момент запуска: все получатели пишутся в БД
// со статусом queued до первой отправки, чтобы падение посреди прогона
// оставляло точную частичную картину.
func (s *broadcastService) Start(ctx context.Context, broadcastID string, sender MessageSender) error {
	broadcast, err := s.broadcastRepo.GetByID(ctx, broadcastID)
	if err != nil {
		return fmt.Errorf("failed to get broadcast: %w", err)
	}
	if broadcast == nil {
		return models.ErrBroadcastNotFound
	}
	if broadcast.Status != models.BroadcastDraft {
		return models.ErrBroadcastRunning
	}

	users, err := s.resolveAudience(ctx, broadcast.Audience)
	if err != nil {
		return fmt.Errorf("failed to resolve audience: %w", err)
	}

	recipients := make([]models.BroadcastRecipient, 0, len(users))
	for _, user := range users {
		recipients = append(recipients, models.BroadcastRecipient{
			ID:          uuid.New().String(),
			BroadcastID: broadcast.ID,
			UserID:      user.ID,
			ChatID:      user.ChatID,
			Status:      models.RecipientQueued,
		})
	}

	if err := s.broadcastRepo.AddRecipients(ctx, recipients); err != nil {
		return fmt.Errorf("failed to queue recipients: %w", err)
	}

	runCtx, ok := s.acquire(broadcast.ID)
	if !ok {
		return models.ErrBroadcastRunning
	}

	if err := s.broadcastRepo.MarkStarted(ctx, broadcast.ID); err != nil {
		s.release(broadcast.ID)
		return fmt.Errorf("failed to mark broadcast started: %w", err)
	}

	go s.run(runCtx, broadcast, sender)

	return nil
}

// Resume дочитывает получателей, оставшихся в queued после падения или
// остановки, и продолжает прогон.
func (s *broadcastService) Resume(ctx context.Context, broadcastID string, sender MessageSender) error {
	broadcast, err := s.broadcastRepo.GetByID(ctx, broadcastID)
	if err != nil {
		return fmt.Errorf("failed to get broadcast: %w", err)
	}
	if broadcast == nil {
		return models.ErrBroadcastNotFound
	}
	if broadcast.Status != models.BroadcastSending && broadcast.Status != models.BroadcastStopped {
		return models.ErrBroadcastNotResumable
	}

	runCtx, ok := s.acquire(broadcastID)
	if !ok {
		return models.ErrBroadcastRunning
	}

	if err := s.broadcastRepo.UpdateStatus(ctx, broadcastID, models.BroadcastSending); err != nil {
		s.release(broadcastID)
		return fmt.Errorf("failed to update broadcast status: %w", err)
	}

	go s.run(runCtx, broadcast, sender)

	return nil
}

func (s *broadcastService) Stop(broadcastID string) bool {
	s.mu.Lock()
	cancel, ok := s.running[broadcastID]
	s.mu.Unlock()

	if ok {
		cancel()
	}

	return ok
}

func (s *broadcastService) GetBroadcast(ctx context.Context, id string) (*models.Broadcast, error) {
	broadcast, err := s.broadcastRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get broadcast: %w", err)
	}
	if broadcast == nil {
		return nil, models.ErrBroadcastNotFound
	}

	return broadcast, nil
}

func (s *broadcastService) GetAllBroadcasts(ctx context.Context, page, limit int) ([]models.Broadcast, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	offset := (page - 1) * limit

	broadcasts, total, err := s.broadcastRepo.GetAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get broadcasts: %w", err)
	}

	return broadcasts, total, nil
}

func (s *broadcastService) resolveAudience(ctx context.Context, audience string) ([]models.User, error) {
	if audience == models.AudienceAll {
		return s.userRepo.GetAll(ctx)
	}

	streamID, err := strconv.ParseInt(audience, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid audience %q: %w", audience, err)
	}

	return s.userRepo.GetByStream(ctx, streamID)
}

// acquire регистрирует прогон под мьютексом: проверка «уже идёт» и запись в
// running — одна критическая секция, иначе два Resume запустят рассылку дважды.
func (s *broadcastService) acquire(broadcastID string) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.running[broadcastID]; running {
		return nil, false
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.running[broadcastID] = cancel

	return runCtx, true
}

func (s *broadcastService) release(broadcastID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.running[broadcastID]; ok {
		cancel()
		delete(s.running, broadcastID)
	}
}

func (s *broadcastService) run(ctx context.Context, broadcast *models.Broadcast, sender MessageSender) {
	defer s.release(broadcast.ID)

	recipients, err := s.broadcastRepo.QueuedRecipients(ctx, broadcast.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("broadcast_id", broadcast.ID).Msg("Failed to load queued recipients")
		return
	}

	stopped := false

	for i, rec := range recipients {
		select {
		case <-ctx.Done():
			stopped = true
		default:
		}
		if stopped {
			break
		}

		// Исход каждой отправки фиксируется сразу, не пакетно
		if err := sender.SendBroadcastMessage(rec.ChatID, broadcast.Body, broadcast.AttachmentFileID); err != nil {
			s.logger.Warn().
				Err(err).
				Str("broadcast_id", broadcast.ID).
				Int64("user_id", rec.UserID).
				Msg("Broadcast send failed")

			if dbErr := s.broadcastRepo.MarkRecipientFailed(context.Background(), rec.ID, err.Error()); dbErr != nil {
				s.logger.Error().Err(dbErr).Str("recipient_id", rec.ID).Msg("Failed to record send failure")
			}
		} else {
			if dbErr := s.broadcastRepo.MarkRecipientSent(context.Background(), rec.ID); dbErr != nil {
				s.logger.Error().Err(dbErr).Str("recipient_id", rec.ID).Msg("Failed to record send success")
			}
		}

		// Пауза после каждой пачки, чтобы не упереться в лимиты Telegram
		if (i+1)%s.batchSize == 0 && i+1 < len(recipients) {
			select {
			case <-ctx.Done():
				stopped = true
			case <-time.After(s.batchDelay):
			}
		}
	}

	finishCtx, finishCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer finishCancel()

	sent, failed, total, err := s.broadcastRepo.CountRecipients(finishCtx, broadcast.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("broadcast_id", broadcast.ID).Msg("Failed to count recipients")
		return
	}

	status := models.BroadcastFinished
	if stopped {
		status = models.BroadcastStopped
	}

	if err := s.broadcastRepo.Finish(finishCtx, broadcast.ID, status, sent, failed, total); err != nil {
		s.logger.Error().Err(err).Str("broadcast_id", broadcast.ID).Msg("Failed to finish broadcast")
		return
	}

	s.logger.Info().
		Str("broadcast_id", broadcast.ID).
		Str("status", status.String()).
		Int("sent", sent).
		Int("failed", failed).
		Int("total", total).
		Msg("Broadcast run completed")

	if s.events != nil {
		event := &models.BroadcastFinishedEvent{
			BroadcastID: broadcast.ID,
			Status:      status.String(),
			Sent:        sent,
			Failed:      failed,
			Total:       total,
			Timestamp:   time.Now().Unix(),
		}
		if err := s.events.PublishBroadcastFinished(finishCtx, event); err != nil {
			s.logger.Error().Err(err).Msg("Failed to publish broadcast finished event")
		}
	}
}
