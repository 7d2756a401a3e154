package models

import (
	"time"
)

type Stream struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type StreamWithStats struct {
	Stream
	TotalUsers    int `json:"total_users" db:"total_users"`
	TotalSessions int `json:"total_sessions" db:"total_sessions"`
}
