package horago

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with registry-specific context.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// WithIndex adds an index name field to the logger.
func (l *Logger) WithIndex(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("index", name),
	}
}

// LogAdd logs a rejected add. Successful adds are not logged.
func (l *Logger) LogAdd(ctx context.Context, name string, dimension int, err error) {
	if err == nil {
		return
	}
	l.WarnContext(ctx, "add rejected",
		"index", name,
		"dimension", dimension,
		"error", err,
	)
}

// LogBuild logs a build operation.
func (l *Logger) LogBuild(ctx context.Context, name, metric string, items int, duration time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "build failed",
			"index", name,
			"metric", metric,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"index", name,
			"metric", metric,
			"items", items,
			"duration", duration,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, name string, k, resultsFound int, err error) {
	if err != nil {
		l.WarnContext(ctx, "search failed",
			"index", name,
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"index", name,
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogLoad logs a load operation.
func (l *Logger) LogLoad(ctx context.Context, name, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"index", name,
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index loaded",
			"index", name,
			"path", path,
		)
	}
}

// LogDump logs a dump operation.
func (l *Logger) LogDump(ctx context.Context, name, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "dump failed",
			"index", name,
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index dumped",
			"index", name,
			"path", path,
		)
	}
}

// LogMissing logs an operation addressed to an unknown index name.
func (l *Logger) LogMissing(ctx context.Context, op, name string) {
	l.DebugContext(ctx, "no such index",
		"op", op,
		"index", name,
	)
}
