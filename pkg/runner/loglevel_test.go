package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line  string
		level LogLevel
		msg   string
	}{
		{"ERROR: boom", LevelError, "boom"},
		{"error: boom", LevelError, "boom"},
		{"CRITICAL: meltdown", LevelCritical, "meltdown"},
		{"WARNING - disk almost full", LevelWarning, "disk almost full"},
		{"[INFO] starting up", LevelInfo, "starting up"},
		{"[debug] details", LevelDebug, "details"},
		{"DEBUG details", LevelDebug, "details"},
		{"WARN: legacy marker", LevelWarning, "legacy marker"},
		{"FATAL: dead", LevelCritical, "dead"},
		{"Traceback (most recent call last):", LevelUnknown, "Traceback (most recent call last):"},
		{"just some text", LevelUnknown, "just some text"},
		{"", LevelUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			lvl, msg := ParseLogLevel(tt.line)
			assert.Equal(t, tt.level, lvl)
			assert.Equal(t, tt.msg, msg)
		})
	}
}

func TestFailureLevel(t *testing.T) {
	assert.True(t, failureLevel(LevelError))
	assert.True(t, failureLevel(LevelCritical))
	assert.False(t, failureLevel(LevelWarning))
	assert.False(t, failureLevel(LevelInfo))
	assert.False(t, failureLevel(LevelUnknown))
}
