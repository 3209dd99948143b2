// Package logging provides the leveled, field-carrying logger used across
// the indexer and CLI, replacing the teacher's ad hoc debug-output writer
// (internal/debug) with structured log/slog output now that there is no
// MCP stdio channel for plain debug text to collide with.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Level mirrors slog's levels under names that read naturally at call
// sites: logging.Info("walking history", "branch", tip).
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var std = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: LevelInfo}))

// SetLevel adjusts the minimum level emitted by the default logger.
func SetLevel(level slog.Level) {
	std = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Default returns the process-wide logger.
func Default() *slog.Logger { return std }

// With returns a logger carrying the given key/value fields on every
// subsequent record, the way a per-component logger is derived in the
// teacher's debug output (one file/component per writer).
func With(args ...any) *slog.Logger { return std.With(args...) }

func Debug(msg string, args ...any) { std.Debug(msg, args...) }
func Info(msg string, args ...any)  { std.Info(msg, args...) }
func Warn(msg string, args ...any)  { std.Warn(msg, args...) }
func Error(msg string, args ...any) { std.Error(msg, args...) }

// Context-aware variants, for call sites where a ctx is already at hand.
func InfoCtx(ctx context.Context, msg string, args ...any)  { std.InfoContext(ctx, msg, args...) }
func ErrorCtx(ctx context.Context, msg string, args ...any) { std.ErrorContext(ctx, msg, args...) }
