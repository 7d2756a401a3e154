package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"crmbot/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetByNickname(ctx context.Context, nickname string) (*models.User, error)
	GetByStream(ctx context.Context, streamID int64) ([]models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateRole(ctx context.Context, id int64, role models.UserRole) error
	UpdateContacts(ctx context.Context, id int64, phone, email string) error
	AssignStream(ctx context.Context, id, streamID int64) error
	ResolveStream(ctx context.Context, id int64) (int64, error)
	UpsertConsent(ctx context.Context, consent *models.Consent) error
	GetConsent(ctx context.Context, userID int64) (*models.Consent, error)
}

type userRepository struct {
	*PostgresRepository
}

func NewUserRepository(db *sql.DB, logger zerolog.Logger) UserRepository {
	return &userRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (telegram_id, chat_id, nickname, password_hash, role, phone, email, stream_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, 0), $9, $10)
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		user.TelegramID,
		user.ChatID,
		user.Nickname,
		user.PasswordHash,
		user.Role,
		user.Phone,
		user.Email,
		user.StreamID,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, telegram_id, chat_id, nickname, password_hash, role, phone, email, COALESCE(stream_id, 0), created_at, updated_at
		FROM users
		WHERE id = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `
		SELECT id, telegram_id, chat_id, nickname, password_hash, role, phone, email, COALESCE(stream_id, 0), created_at, updated_at
		FROM users
		WHERE telegram_id = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, telegramID))
}

func (r *userRepository) GetByNickname(ctx context.Context, nickname string) (*models.User, error) {
	query := `
		SELECT id, telegram_id, chat_id, nickname, password_hash, role, phone, email, COALESCE(stream_id, 0), created_at, updated_at
		FROM users
		WHERE nickname = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, nickname))
}

func (r *userRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.ChatID,
		&user.Nickname,
		&user.PasswordHash,
		&user.Role,
		&user.Phone,
		&user.Email,
		&user.StreamID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return user, err
}

func (r *userRepository) GetByStream(ctx context.Context, streamID int64) ([]models.User, error) {
	query := `
		SELECT id, telegram_id, chat_id, nickname, password_hash, role, phone, email, COALESCE(stream_id, 0), created_at, updated_at
		FROM users
		WHERE stream_id = $1
		   OR id IN (SELECT user_id FROM user_streams WHERE stream_id = $1)
		ORDER BY id
	`

	return r.scanMany(ctx, query, streamID)
}

func (r *userRepository) GetAll(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT id, telegram_id, chat_id, nickname, password_hash, role, phone, email, COALESCE(stream_id, 0), created_at, updated_at
		FROM users
		ORDER BY id
	`

	return r.scanMany(ctx, query)
}

func (r *userRepository) scanMany(ctx context.Context, query string, args ...interface{}) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.TelegramID,
			&user.ChatID,
			&user.Nickname,
			&user.PasswordHash,
			&user.Role,
			&user.Phone,
			&user.Email,
			&user.StreamID,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, hash, id)
	return err
}

func (r *userRepository) UpdateRole(ctx context.Context, id int64, role models.UserRole) error {
	query := `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, role, id)
	return err
}

func (r *userRepository) UpdateContacts(ctx context.Context, id int64, phone, email string) error {
	query := `UPDATE users SET phone = $1, email = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, phone, email, id)
	return err
}

func (r *userRepository) AssignStream(ctx context.Context, id, streamID int64) error {
	query := `UPDATE users SET stream_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, streamID, id)
	return err
}

// ResolveStream смотрит явное назначение в users.stream_id, затем запасную
// таблицу связей user_streams. Возвращает 0, если поток нигде не назначен.
func (r *userRepository) ResolveStream(ctx context.Context, id int64) (int64, error) {
	query := `SELECT COALESCE(stream_id, 0) FROM users WHERE id = $1`

	var streamID int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&streamID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if streamID != 0 {
		return streamID, nil
	}

	fallback := `
		SELECT stream_id FROM user_streams
		WHERE user_id = $1
		ORDER BY assigned_at DESC
		LIMIT 1
	`

	err = r.db.QueryRowContext(ctx, fallback, id).Scan(&streamID)
	if err == sql.ErrNoRows {
		return 0, nil
	}

	return streamID, err
}

func (r *userRepository) UpsertConsent(ctx context.Context, consent *models.Consent) error {
	query := `
		INSERT INTO consents (user_id, given, decided_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET given = EXCLUDED.given, decided_at = EXCLUDED.decided_at
	`

	_, err := r.db.ExecContext(ctx, query, consent.UserID, consent.Given, consent.DecidedAt)
	return err
}

func (r *userRepository) GetConsent(ctx context.Context, userID int64) (*models.Consent, error) {
	query := `SELECT user_id, given, decided_at FROM consents WHERE user_id = $1`

	consent := &models.Consent{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&consent.UserID,
		&consent.Given,
		&consent.DecidedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return consent, err
}
