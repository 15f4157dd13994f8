package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance writing to stdout
func New() *Logger {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a logger writing to w. The level comes from LOG_LEVEL;
// gin debug mode selects the text handler, any other mode JSON.
func NewWithWriter(w io.Writer) *Logger {
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithSeat adds the reservation key to logger context
func (l *Logger) WithSeat(flightID, seatNo string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("flight_id", flightID), slog.String("seat_no", seatNo)),
	}
}

// WithHoldID adds hold ID to logger context
func (l *Logger) WithHoldID(holdID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("hold_id", holdID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", c.GetString("request_id")),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Reservation logging methods

// LogHoldCreated logs a granted hold
func (l *Logger) LogHoldCreated(ctx context.Context, holdID, flightID, seatNo string, expiresAt time.Time) {
	l.Logger.InfoContext(ctx,
		"Hold Created",
		slog.String("hold_id", holdID),
		slog.String("flight_id", flightID),
		slog.String("seat_no", seatNo),
		slog.Time("expires_at", expiresAt),
	)
}

// LogHoldReleased logs a hold leaving HELD for a reason other than booking
func (l *Logger) LogHoldReleased(ctx context.Context, holdID, flightID, seatNo, reason string, restored bool) {
	l.Logger.InfoContext(ctx,
		"Hold Released",
		slog.String("hold_id", holdID),
		slog.String("flight_id", flightID),
		slog.String("seat_no", seatNo),
		slog.String("reason", reason),
		slog.Bool("seat_restored", restored),
	)
}

// LogBookingConfirmed logs a booking appended to the ledger
func (l *Logger) LogBookingConfirmed(ctx context.Context, bookingID, code, flightID, seatNo string) {
	l.Logger.InfoContext(ctx,
		"Booking Confirmed",
		slog.String("booking_id", bookingID),
		slog.String("confirmation_code", code),
		slog.String("flight_id", flightID),
		slog.String("seat_no", seatNo),
	)
}

// LogReclaimPass logs the outcome of one expiry sweep
func (l *Logger) LogReclaimPass(ctx context.Context, released int, duration time.Duration) {
	level := slog.LevelDebug
	if released > 0 {
		level = slog.LevelInfo
	}
	l.Logger.Log(ctx, level,
		"Reclaim Pass",
		slog.Int("released", released),
		slog.Duration("duration", duration),
	)
}

// LogInconsistency logs hold store and catalog disagreeing about a seat
func (l *Logger) LogInconsistency(ctx context.Context, flightID, seatNo, detail string) {
	l.Logger.ErrorContext(ctx,
		"Reservation Inconsistency",
		slog.String("flight_id", flightID),
		slog.String("seat_no", seatNo),
		slog.String("detail", detail),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Helper methods for common patterns

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
