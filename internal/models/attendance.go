package models

import (
	"time"
)

type AttendanceStatus string

const (
	AttendancePresent  AttendanceStatus = "present"
	AttendanceAbsent   AttendanceStatus = "absent"
	AttendanceLate     AttendanceStatus = "late"
	AttendanceExpelled AttendanceStatus = "expelled"
	// AttendanceNone означает отсутствие записи, в БД не хранится
	AttendanceNone AttendanceStatus = ""
)

func (s AttendanceStatus) String() string {
	return string(s)
}

func IsValidAttendanceStatus(status string) bool {
	switch status {
	case "present", "absent", "late", "expelled":
		return true
	default:
		return false
	}
}

// NextAttendanceStatus возвращает следующий статус в цикле переключения:
// нет записи -> present -> absent -> expelled -> нет записи.
// Статус late в цикл не входит и ставится только напрямую.
func NextAttendanceStatus(current AttendanceStatus) AttendanceStatus {
	switch current {
	case AttendanceNone:
		return AttendancePresent
	case AttendancePresent:
		return AttendanceAbsent
	case AttendanceAbsent:
		return AttendanceExpelled
	default:
		return AttendanceNone
	}
}

type AttendanceMark struct {
	UserID    int64            `json:"user_id" db:"user_id"`
	SessionID int64            `json:"session_id" db:"session_id"`
	Status    AttendanceStatus `json:"status" db:"status"`
	MarkedBy  int64            `json:"marked_by" db:"marked_by"`
	MarkedAt  time.Time        `json:"marked_at" db:"marked_at"`
}
