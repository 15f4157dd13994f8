package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, getLogLevel("warning"))
	assert.Equal(t, slog.LevelError, getLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getLogLevel(""))
}

func TestNewWithWriter_JSONOutsideDebugMode(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	t.Cleanup(func() { gin.SetMode(gin.DebugMode) })

	var buf bytes.Buffer
	log := NewWithWriter(&buf)
	log.LogInconsistency(context.Background(), "F1", "12A", "seat already unavailable")

	out := buf.String()
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, `"msg":"Reservation Inconsistency"`)
	assert.Contains(t, out, `"seat_no":"12A"`)
}

func TestLogReclaimPass_QuietWhenNothingReleased(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	t.Cleanup(func() { gin.SetMode(gin.DebugMode) })

	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	log.LogReclaimPass(context.Background(), 0, time.Millisecond)
	assert.Empty(t, buf.String())

	log.LogReclaimPass(context.Background(), 3, time.Millisecond)
	assert.Contains(t, buf.String(), `"released":3`)
}

func TestWithHelpers_AddAttributes(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	t.Cleanup(func() { gin.SetMode(gin.DebugMode) })

	var buf bytes.Buffer
	log := NewWithWriter(&buf).WithSeat("F2", "3C").WithHoldID("h-1").WithRequestID("req-9")
	log.WithError(assert.AnError).Warn("dropped")

	out := buf.String()
	assert.Contains(t, out, `"flight_id":"F2"`)
	assert.Contains(t, out, `"hold_id":"h-1"`)
	assert.Contains(t, out, `"request_id":"req-9"`)
	assert.Contains(t, out, assert.AnError.Error())
}
