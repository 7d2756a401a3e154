package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"crmbot/internal/models"
)

type StreamRepository interface {
	Create(ctx context.Context, stream *models.Stream) error
	GetByID(ctx context.Context, id int64) (*models.Stream, error)
	GetByName(ctx context.Context, name string) (*models.Stream, error)
	GetAll(ctx context.Context) ([]models.StreamWithStats, error)
}

type streamRepository struct {
	*PostgresRepository
}

func NewStreamRepository(db *sql.DB, logger zerolog.Logger) StreamRepository {
	return &streamRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *streamRepository) Create(ctx context.Context, stream *models.Stream) error {
	query := `
		INSERT INTO streams (name, created_at)
		VALUES ($1, $2)
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query, stream.Name, stream.CreatedAt).Scan(&stream.ID)
}

func (r *streamRepository) GetByID(ctx context.Context, id int64) (*models.Stream, error) {
	query := `SELECT id, name, created_at FROM streams WHERE id = $1`

	stream := &models.Stream{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&stream.ID, &stream.Name, &stream.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return stream, err
}

func (r *streamRepository) GetByName(ctx context.Context, name string) (*models.Stream, error) {
	query := `SELECT id, name, created_at FROM streams WHERE name = $1`

	stream := &models.Stream{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&stream.ID, &stream.Name, &stream.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return stream, err
}

func (r *streamRepository) GetAll(ctx context.Context) ([]models.StreamWithStats, error) {
	query := `
		SELECT
			st.id, st.name, st.created_at,
			COUNT(DISTINCT u.id) as total_users,
			COUNT(DISTINCT s.id) as total_sessions
		FROM streams st
		LEFT JOIN users u ON u.stream_id = st.id
		LEFT JOIN sessions s ON s.stream_id = st.id
		GROUP BY st.id
		ORDER BY st.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var streams []models.StreamWithStats
	for rows.Next() {
		var stream models.StreamWithStats
		err := rows.Scan(
			&stream.ID,
			&stream.Name,
			&stream.CreatedAt,
			&stream.TotalUsers,
			&stream.TotalSessions,
		)
		if err != nil {
			return nil, err
		}
		streams = append(streams, stream)
	}

	return streams, rows.Err()
}
