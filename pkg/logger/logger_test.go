package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskNIC(t *testing.T) {
	assert.Equal(t, "******789V", MaskNIC("123456789V"))
	assert.Equal(t, "***", MaskNIC("abc"))
	assert.Equal(t, "", MaskNIC(""))
}

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, getLogLevel("warning"))
	assert.Equal(t, slog.LevelError, getLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getLogLevel("verbose"))
}

func TestLogSeatConflictMasksNIC(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info")

	l.LogSeatConflict(context.Background(), "trip-1", "123456789V", []int{12})

	out := buf.String()
	assert.Contains(t, out, "Seat Conflict")
	assert.Contains(t, out, "******789V")
	assert.NotContains(t, out, "123456789V")
}
