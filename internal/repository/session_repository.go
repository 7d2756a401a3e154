package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"crmbot/internal/models"
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id int64) (*models.Session, error)
	Upcoming(ctx context.Context, streamID int64, limit int) ([]models.SessionWithStream, error)
	RecentPast(ctx context.Context, streamID int64, limit int) ([]models.SessionWithStream, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type sessionRepository struct {
	*PostgresRepository
}

func NewSessionRepository(db *sql.DB, logger zerolog.Logger) SessionRepository {
	return &sessionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (stream_id, held_on, topic_code, title, annotation, homework_link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		session.StreamID,
		session.HeldOn,
		session.TopicCode,
		session.Title,
		session.Annotation,
		session.HomeworkLink,
		session.CreatedAt,
	).Scan(&session.ID)
}

func (r *sessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	query := `
		SELECT id, stream_id, held_on, topic_code, title, annotation, homework_link, created_at
		FROM sessions
		WHERE id = $1
	`

	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.StreamID,
		&session.HeldOn,
		&session.TopicCode,
		&session.Title,
		&session.Annotation,
		&session.HomeworkLink,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return session, err
}

// Upcoming возвращает занятия с датой не раньше сегодняшней по возрастанию даты,
// id — вторичный ключ сортировки. streamID = 0 означает все потоки.
func (r *sessionRepository) Upcoming(ctx context.Context, streamID int64, limit int) ([]models.SessionWithStream, error) {
	query := `
		SELECT s.id, s.stream_id, s.held_on, s.topic_code, s.title, s.annotation, s.homework_link, s.created_at, st.name as stream_name
		FROM sessions s
		JOIN streams st ON st.id = s.stream_id
		WHERE s.held_on >= CURRENT_DATE
		  AND ($1 = 0 OR s.stream_id = $1)
		ORDER BY s.held_on ASC, s.id ASC
		LIMIT $2
	`

	return r.scanMany(ctx, query, streamID, limit)
}

func (r *sessionRepository) RecentPast(ctx context.Context, streamID int64, limit int) ([]models.SessionWithStream, error) {
	query := `
		SELECT s.id, s.stream_id, s.held_on, s.topic_code, s.title, s.annotation, s.homework_link, s.created_at, st.name as stream_name
		FROM sessions s
		JOIN streams st ON st.id = s.stream_id
		WHERE s.held_on < CURRENT_DATE
		  AND ($1 = 0 OR s.stream_id = $1)
		ORDER BY s.held_on DESC, s.id DESC
		LIMIT $2
	`

	return r.scanMany(ctx, query, streamID, limit)
}

func (r *sessionRepository) scanMany(ctx context.Context, query string, args ...interface{}) ([]models.SessionWithStream, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.SessionWithStream
	for rows.Next() {
		var session models.SessionWithStream
		err := rows.Scan(
			&session.ID,
			&session.StreamID,
			&session.HeldOn,
			&session.TopicCode,
			&session.Title,
			&session.Annotation,
			&session.HomeworkLink,
			&session.CreatedAt,
			&session.StreamName,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

func (r *sessionRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	return exists, err
}
