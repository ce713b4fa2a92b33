// Package logger provides structured logging using log/slog.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/AlmogShaul/bar-mitzva/internal/config"
)

// Context keys for request-scoped values
type contextKey string

const (
	// RequestIDKey is the context key for request IDs
	RequestIDKey contextKey = "request_id"
)

// Setup initializes the global logger based on configuration.
// Call this once at application startup.
func Setup(cfg *config.Config) *slog.Logger {
	logger := New(os.Stdout, cfg.LogLevel, cfg.LogFormat).
		With(slog.String("env", cfg.Env))
	slog.SetDefault(logger)

	return logger
}

// New builds a logger writing to w without touching the global default.
// The CLI uses it to log to stderr while results go to stdout.
func New(w io.Writer, level, format string) *slog.Logger {
	var handler slog.Handler

	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug, // Add source file info in debug mode
	}

	// Choose handler based on format
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops every record. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds a request ID to the logger context.
// Use this in middleware to tag all logs for a request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID extracts the request ID from context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns base tagged with the request ID carried by ctx.
// A nil base falls back to the default logger.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if requestID := RequestID(ctx); requestID != "" {
		return base.With(slog.String("request_id", requestID))
	}
	return base
}
