package models

import "errors"

// Отсутствие записи — нормальный исход, а не исключение; обработчики
// сверяются с этими ошибками через errors.Is и показывают короткое сообщение.
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrSessionNotFound       = errors.New("session not found")
	ErrStreamNotFound        = errors.New("stream not found")
	ErrBroadcastNotFound     = errors.New("broadcast not found")
	ErrNicknameTaken         = errors.New("nickname already taken")
	ErrStreamNameTaken       = errors.New("stream name already taken")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrBroadcastNotResumable = errors.New("broadcast is not resumable")
	ErrBroadcastRunning      = errors.New("broadcast is already running")
)
