package models

import (
	"time"
)

type BroadcastStatus string

const (
	BroadcastDraft    BroadcastStatus = "draft"
	BroadcastSending  BroadcastStatus = "sending"
	BroadcastStopped  BroadcastStatus = "stopped"
	BroadcastFinished BroadcastStatus = "finished"
)

func (s BroadcastStatus) String() string {
	return string(s)
}

// AudienceAll — рассылка по всем пользователям, иначе audience хранит id потока.
const AudienceAll = "all"

type Broadcast struct {
	ID               string          `json:"id" db:"id"`
	Body             string          `json:"body" db:"body"`
	AttachmentFileID string          `json:"attachment_file_id,omitempty" db:"attachment_file_id"`
	Audience         string          `json:"audience" db:"audience"`
	Status           BroadcastStatus `json:"status" db:"status"`
	Sent             int             `json:"sent" db:"sent"`
	Failed           int             `json:"failed" db:"failed"`
	Total            int             `json:"total" db:"total"`
	CreatedBy        int64           `json:"created_by" db:"created_by"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	StartedAt        *time.Time      `json:"started_at,omitempty" db:"started_at"`
	FinishedAt       *time.Time      `json:"finished_at,omitempty" db:"finished_at"`
}

type RecipientStatus string

const (
	RecipientQueued RecipientStatus = "queued"
	RecipientSent   RecipientStatus = "sent"
	RecipientFailed RecipientStatus = "failed"
)

type BroadcastRecipient struct {
	ID          string          `json:"id" db:"id"`
	BroadcastID string          `json:"broadcast_id" db:"broadcast_id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	ChatID      int64           `json:"chat_id" db:"chat_id"`
	Status      RecipientStatus `json:"status" db:"status"`
	Error       string          `json:"error,omitempty" db:"error"`
	SentAt      *time.Time      `json:"sent_at,omitempty" db:"sent_at"`
}
