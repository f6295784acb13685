package posisync

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/posisync/model"
)

// Logger wraps slog.Logger with posisync-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithRunID tags the logger with the manifest run ID.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithTechnology tags the logger with a technology.
func (l *Logger) WithTechnology(tech model.Technology) *Logger {
	return &Logger{
		Logger: l.Logger.With("technology", tech),
	}
}

// LogClean logs one technology's cleaning pass.
func (l *Logger) LogClean(ctx context.Context, tech model.Technology, raw, kept int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "cleaning failed",
			"technology", tech,
			"raw", raw,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "cleaning completed",
			"technology", tech,
			"raw", raw,
			"kept", kept,
		)
	}
}

// LogMerge logs the synchronization pass.
func (l *Logger) LogMerge(ctx context.Context, tables, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "merge failed",
			"tables", tables,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "merge completed",
			"tables", tables,
			"rows", rows,
		)
	}
}

// LogWrite logs one written table blob.
func (l *Logger) LogWrite(ctx context.Context, blob string, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "table write failed",
			"blob", blob,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "table written",
			"blob", blob,
			"rows", rows,
		)
	}
}

// LogCommit logs a manifest commit.
func (l *Logger) LogCommit(ctx context.Context, runID string, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "manifest commit failed",
			"run_id", runID,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "manifest committed",
			"run_id", runID,
			"took", took,
		)
	}
}
