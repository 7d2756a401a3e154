package models

import "time"

// Data Transfer Objects

type CreateStreamRequest struct {
	Name string `json:"name"`
}

type CreateSessionRequest struct {
	StreamID     int64  `json:"stream_id"`
	HeldOn       string `json:"held_on"` // формат 2006-01-02
	TopicCode    string `json:"topic_code"`
	Title        string `json:"title"`
	Annotation   string `json:"annotation"`
	HomeworkLink string `json:"homework_link"`
}

type SetAttendanceRequest struct {
	UserID  int64  `json:"user_id"`
	Status  string `json:"status"`
	ActorID int64  `json:"actor_id"`
}

type AttendanceReportResponse struct {
	SessionID int64                      `json:"session_id"`
	Marks     map[int64]AttendanceStatus `json:"marks"`
}

type BroadcastResponse struct {
	ID         string          `json:"id"`
	Body       string          `json:"body"`
	Audience   string          `json:"audience"`
	Status     BroadcastStatus `json:"status"`
	Sent       int             `json:"sent"`
	Failed     int             `json:"failed"`
	Total      int             `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

type BroadcastsResponse struct {
	Broadcasts []BroadcastResponse `json:"broadcasts"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
}
