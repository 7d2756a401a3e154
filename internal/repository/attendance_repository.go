package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"crmbot/internal/models"
)

type AttendanceRepository interface {
	GetMarks(ctx context.Context, sessionID int64) (map[int64]models.AttendanceStatus, error)
	GetMark(ctx context.Context, userID, sessionID int64) (models.AttendanceStatus, error)
	Upsert(ctx context.Context, mark *models.AttendanceMark) error
	Delete(ctx context.Context, userID, sessionID int64) error
	PresentUsers(ctx context.Context, sessionID int64) ([]int64, error)
}

type attendanceRepository struct {
	*PostgresRepository
}

func NewAttendanceRepository(db *sql.DB, logger zerolog.Logger) AttendanceRepository {
	return &attendanceRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *attendanceRepository) GetMarks(ctx context.Context, sessionID int64) (map[int64]models.AttendanceStatus, error) {
	query := `
		SELECT user_id, status
		FROM attendance_marks
		WHERE session_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	marks := make(map[int64]models.AttendanceStatus)
	for rows.Next() {
		var userID int64
		var status models.AttendanceStatus
		if err := rows.Scan(&userID, &status); err != nil {
			return nil, err
		}
		marks[userID] = status
	}

	return marks, rows.Err()
}

func (r *attendanceRepository) GetMark(ctx context.Context, userID, sessionID int64) (models.AttendanceStatus, error) {
	query := `
		SELECT status
		FROM attendance_marks
		WHERE user_id = $1 AND session_id = $2
	`

	var status models.AttendanceStatus
	err := r.db.QueryRowContext(ctx, query, userID, sessionID).Scan(&status)

	if err == sql.ErrNoRows {
		return models.AttendanceNone, nil
	}

	return status, err
}

// Upsert — один атомарный оператор на переход, чтобы одновременные нажатия
// двух админов сводились к «последняя запись побеждает», а не к порче данных.
func (r *attendanceRepository) Upsert(ctx context.Context, mark *models.AttendanceMark) error {
	query := `
		INSERT INTO attendance_marks (user_id, session_id, status, marked_by, marked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, session_id)
		DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, marked_at = EXCLUDED.marked_at
	`

	if mark.MarkedAt.IsZero() {
		mark.MarkedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		mark.UserID,
		mark.SessionID,
		mark.Status,
		mark.MarkedBy,
		mark.MarkedAt,
	)

	return err
}

func (r *attendanceRepository) Delete(ctx context.Context, userID, sessionID int64) error {
	query := `DELETE FROM attendance_marks WHERE user_id = $1 AND session_id = $2`
	_, err := r.db.ExecContext(ctx, query, userID, sessionID)
	return err
}

func (r *attendanceRepository) PresentUsers(ctx context.Context, sessionID int64) ([]int64, error) {
	query := `
		SELECT user_id
		FROM attendance_marks
		WHERE session_id = $1 AND status = 'present'
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
