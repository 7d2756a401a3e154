package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextAttendanceStatus(t *testing.T) {
	tests := []struct {
		current AttendanceStatus
		next    AttendanceStatus
	}{
		{AttendanceNone, AttendancePresent},
		{AttendancePresent, AttendanceAbsent},
		{AttendanceAbsent, AttendanceExpelled},
		{AttendanceExpelled, AttendanceNone},
		// late ставится только напрямую и из цикла выпадает в начало
		{AttendanceLate, AttendanceNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.next, NextAttendanceStatus(tt.current))
	}
}

func TestIsValidAttendanceStatus(t *testing.T) {
	assert.True(t, IsValidAttendanceStatus("present"))
	assert.True(t, IsValidAttendanceStatus("late"))
	assert.False(t, IsValidAttendanceStatus(""))
	assert.False(t, IsValidAttendanceStatus("vacation"))
}
