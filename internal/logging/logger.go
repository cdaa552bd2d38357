// Package logging provides structured logging configuration using log/slog.
//
// A load ID placed in the context with ContextWithLoadID is attached to every
// entry produced through FromContext, so all log lines of one import run can
// be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const ctxKeyLoadID contextKey = "load_id"

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w. Setup uses it for the default logger.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextWithLoadID returns a context carrying the given load ID.
func ContextWithLoadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyLoadID, id)
}

// LoadIDFromContext extracts the load ID from context.
func LoadIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyLoadID).(string); ok {
		return v
	}
	return ""
}

// FromContext returns the default logger enriched with the load ID found in
// ctx, if any.
//
// Usage:
//
//	logger := logging.FromContext(ctx)
//	logger.Info("saving batch", "table", table)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if id := LoadIDFromContext(ctx); id != "" {
		logger = logger.With("load_id", id)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	storeLogger := logging.WithFields(ctx, "table", "t_personne")
//	storeLogger.Debug("committed", "op", "update")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
