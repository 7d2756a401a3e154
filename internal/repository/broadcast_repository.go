package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"crmbot/internal/models"
)

type BroadcastRepository interface {
	Create(ctx context.Context, broadcast *models.Broadcast) error
	GetByID(ctx context.Context, id string) (*models.Broadcast, error)
	GetAll(ctx context.Context, limit, offset int) ([]models.Broadcast, int, error)
	UpdateStatus(ctx context.Context, id string, status models.BroadcastStatus) error
	MarkStarted(ctx context.Context, id string) error
	Finish(ctx context.Context, id string, status models.BroadcastStatus, sent, failed, total int) error

	AddRecipients(ctx context.Context, recipients []models.BroadcastRecipient) error
	QueuedRecipients(ctx context.Context, broadcastID string) ([]models.BroadcastRecipient, error)
	MarkRecipientSent(ctx context.Context, id string) error
	MarkRecipientFailed(ctx context.Context, id string, sendErr string) error
	CountRecipients(ctx context.Context, broadcastID string) (sent, failed, total int, err error)
}

type broadcastRepository struct {
	*PostgresRepository
}

func NewBroadcastRepository(db *sql.DB, logger zerolog.Logger) BroadcastRepository {
	return &broadcastRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *broadcastRepository) Create(ctx context.Context, broadcast *models.Broadcast) error {
	query := `
		INSERT INTO broadcasts (id, body, attachment_file_id, audience, status, sent, failed, total, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		broadcast.ID,
		broadcast.Body,
		broadcast.AttachmentFileID,
		broadcast.Audience,
		broadcast.Status,
		broadcast.Sent,
		broadcast.Failed,
		broadcast.Total,
		broadcast.CreatedBy,
		broadcast.CreatedAt,
	)

	return err
}

func (r *broadcastRepository) GetByID(ctx context.Context, id string) (*models.Broadcast, error) {
	query := `
		SELECT id, body, attachment_file_id, audience, status, sent, failed, total, created_by, created_at, started_at, finished_at
		FROM broadcasts
		WHERE id = $1
	`

	broadcast := &models.Broadcast{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&broadcast.ID,
		&broadcast.Body,
		&broadcast.AttachmentFileID,
		&broadcast.Audience,
		&broadcast.Status,
		&broadcast.Sent,
		&broadcast.Failed,
		&broadcast.Total,
		&broadcast.CreatedBy,
		&broadcast.CreatedAt,
		&broadcast.StartedAt,
		&broadcast.FinishedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return broadcast, err
}

func (r *broadcastRepository) GetAll(ctx context.Context, limit, offset int) ([]models.Broadcast, int, error) {
	countQuery := `SELECT COUNT(*) FROM broadcasts`
	var total int
	err := r.db.QueryRowContext(ctx, countQuery).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, body, attachment_file_id, audience, status, sent, failed, total, created_by, created_at, started_at, finished_at
		FROM broadcasts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var broadcasts []models.Broadcast
	for rows.Next() {
		var broadcast models.Broadcast
		err := rows.Scan(
			&broadcast.ID,
			&broadcast.Body,
			&broadcast.AttachmentFileID,
			&broadcast.Audience,
			&broadcast.Status,
			&broadcast.Sent,
			&broadcast.Failed,
			&broadcast.Total,
			&broadcast.CreatedBy,
			&broadcast.CreatedAt,
			&broadcast.StartedAt,
			&broadcast.FinishedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		broadcasts = append(broadcasts, broadcast)
	}

	return broadcasts, total, rows.Err()
}

func (r *broadcastRepository) UpdateStatus(ctx context.Context, id string, status models.BroadcastStatus) error {
	query := `UPDATE broadcasts SET status = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	return err
}

func (r *broadcastRepository) MarkStarted(ctx context.Context, id string) error {
	query := `UPDATE broadcasts SET status = 'sending', started_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}

func (r *broadcastRepository) Finish(ctx context.Context, id string, status models.BroadcastStatus, sent, failed, total int) error {
	query := `
		UPDATE broadcasts
		SET status = $1, sent = $2, failed = $3, total = $4, finished_at = $5
		WHERE id = $6
	`

	_, err := r.db.ExecContext(ctx, query, status, sent, failed, total, time.Now(), id)
	return err
}

func (r *broadcastRepository) AddRecipients(ctx context.Context, recipients []models.BroadcastRecipient) error {
	if len(recipients) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO broadcast_recipients (id, broadcast_id, user_id, chat_id, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (broadcast_id, user_id) DO NOTHING
	`

	for _, rec := range recipients {
		if _, err := tx.ExecContext(ctx, query, rec.ID, rec.BroadcastID, rec.UserID, rec.ChatID, rec.Status); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *broadcastRepository) QueuedRecipients(ctx context.Context, broadcastID string) ([]models.BroadcastRecipient, error) {
	query := `
		SELECT id, broadcast_id, user_id, chat_id, status, error, sent_at
		FROM broadcast_recipients
		WHERE broadcast_id = $1 AND status = 'queued'
		ORDER BY user_id
	`

	rows, err := r.db.QueryContext(ctx, query, broadcastID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []models.BroadcastRecipient
	for rows.Next() {
		var rec models.BroadcastRecipient
		err := rows.Scan(
			&rec.ID,
			&rec.BroadcastID,
			&rec.UserID,
			&rec.ChatID,
			&rec.Status,
			&rec.Error,
			&rec.SentAt,
		)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}

	return recipients, rows.Err()
}

func (r *broadcastRepository) MarkRecipientSent(ctx context.Context, id string) error {
	query := `UPDATE broadcast_recipients SET status = 'sent', sent_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}

func (r *broadcastRepository) MarkRecipientFailed(ctx context.Context, id string, sendErr string) error {
	query := `UPDATE broadcast_recipients SET status = 'failed', error = $1, sent_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, sendErr, time.Now(), id)
	return err
}

func (r *broadcastRepository) CountRecipients(ctx context.Context, broadcastID string) (int, int, int, error) {
	query := `
		SELECT
			COUNT(CASE WHEN status = 'sent' THEN 1 END),
			COUNT(CASE WHEN status = 'failed' THEN 1 END),
			COUNT(*)
		FROM broadcast_recipients
		WHERE broadcast_id = $1
	`

	var sent, failed, total int
	err := r.db.QueryRowContext(ctx, query, broadcastID).Scan(&sent, &failed, &total)
	return sent, failed, total, err
}
