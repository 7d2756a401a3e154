package models

import (
	"time"
)

type Session struct {
	ID           int64     `json:"id" db:"id"`
	StreamID     int64     `json:"stream_id" db:"stream_id"`
	HeldOn       time.Time `json:"held_on" db:"held_on"`
	TopicCode    string    `json:"topic_code,omitempty" db:"topic_code"`
	Title        string    `json:"title" db:"title"`
	Annotation   string    `json:"annotation,omitempty" db:"annotation"`
	HomeworkLink string    `json:"homework_link,omitempty" db:"homework_link"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type SessionWithStream struct {
	Session
	StreamName string `json:"stream_name" db:"stream_name"`
}
