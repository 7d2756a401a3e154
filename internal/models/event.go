package models

type UserRegisteredEvent struct {
	UserID     int64  `json:"user_id"`
	TelegramID int64  `json:"telegram_id"`
	Nickname   string `json:"nickname"`
	StreamID   int64  `json:"stream_id,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

type BroadcastFinishedEvent struct {
	BroadcastID string `json:"broadcast_id"`
	Status      string `json:"status"`
	Sent        int    `json:"sent"`
	Failed      int    `json:"failed"`
	Total       int    `json:"total"`
	Timestamp   int64  `json:"timestamp"`
}
