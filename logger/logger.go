// Package logger provides structured logging for the engine and its nodes.
//
// It wraps Go's standard log/slog with:
//   - a global DefaultLogger usable as a package-level convenience API,
//   - per-node scoped loggers carrying the node id as a constant attribute,
//   - LOG_LEVEL environment-variable control for command-line entry points.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// DefaultLogger is the global structured logger instance. It is safe for
// concurrent use and initialized with slog.LevelInfo by default.
var DefaultLogger *slog.Logger

func init() {
	DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFromEnv(),
	}))
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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

// SetLevel changes the logging level for all subsequent log operations.
// This replaces the DefaultLogger variable without synchronization, so it is
// not safe to call while other goroutines are logging.
func SetLevel(level slog.Level) {
	DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// Info logs an informational message with structured key-value attributes.
func Info(msg string, args ...any) { DefaultLogger.Info(msg, args...) }

// Debug logs a debug-level message with structured attributes.
func Debug(msg string, args ...any) { DefaultLogger.Debug(msg, args...) }

// Warn logs a warning message with structured attributes.
func Warn(msg string, args ...any) { DefaultLogger.Warn(msg, args...) }

// Error logs an error-level message with structured attributes.
func Error(msg string, args ...any) { DefaultLogger.Error(msg, args...) }

// InfoContext logs an informational message honoring context cancellation fields.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// ErrorContext logs an error-level message honoring context cancellation fields.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// ForNode returns a logger scoped to a single node id. Every record emitted
// through it carries "node"=id, matching a node's log(level, msg) contract
// (spec §4.3): a node never needs its own level filtering, it just writes
// through the handle it was constructed with.
func ForNode(id string) *slog.Logger {
	return DefaultLogger.With("node", id)
}
