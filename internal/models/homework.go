package models

import (
	"time"
)

type HomeworkDelivery struct {
	SessionID   int64     `json:"session_id" db:"session_id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	Link        string    `json:"link" db:"link"`
	DeliveredAt time.Time `json:"delivered_at" db:"delivered_at"`
}

// HomeworkReport — итог раздачи домашки админом по одному занятию.
type HomeworkReport struct {
	SessionID int64 `json:"session_id"`
	Sent      int   `json:"sent"`
	Failed    int   `json:"failed"`
	Skipped   int   `json:"skipped"`
}
