package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"crmbot/internal/models"
)

type HomeworkRepository interface {
	MarkDelivered(ctx context.Context, sessionID, userID int64, link string) error
	DeliveredUsers(ctx context.Context, sessionID int64) ([]int64, error)
	GetDelivery(ctx context.Context, sessionID, userID int64) (*models.HomeworkDelivery, error)
}

type homeworkRepository struct {
	*PostgresRepository
}

func NewHomeworkRepository(db *sql.DB, logger zerolog.Logger) HomeworkRepository {
	return &homeworkRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

// MarkDelivered идемпотентен по паре (session, user): повторный вызов с другой
// ссылкой не создаёт дубликат и не перетирает первую запись.
func (r *homeworkRepository) MarkDelivered(ctx context.Context, sessionID, userID int64, link string) error {
	query := `
		INSERT INTO homework_deliveries (session_id, user_id, link, delivered_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, user_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, sessionID, userID, link, time.Now())
	return err
}

func (r *homeworkRepository) DeliveredUsers(ctx context.Context, sessionID int64) ([]int64, error) {
	query := `
		SELECT user_id
		FROM homework_deliveries
		WHERE session_id = $1
		ORDER BY user_id
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		users = append(users, userID)
	}

	return users, rows.Err()
}

func (r *homeworkRepository) GetDelivery(ctx context.Context, sessionID, userID int64) (*models.HomeworkDelivery, error) {
	query := `
		SELECT session_id, user_id, link, delivered_at
		FROM homework_deliveries
		WHERE session_id = $1 AND user_id = $2
	`

	delivery := &models.HomeworkDelivery{}
	err := r.db.QueryRowContext(ctx, query, sessionID, userID).Scan(
		&delivery.SessionID,
		&delivery.UserID,
		&delivery.Link,
		&delivery.DeliveredAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return delivery, err
}
