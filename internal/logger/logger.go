// Package logger configures log/slog for chlog and carries loggers through
// contexts.
package logger

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey struct{}

var loggerKey = contextKey{}

// Level returns the minimum level for the given flags: warnings by default,
// info with --verbose, debug with --debug.
func Level(debug, verbose bool) slog.Level {
	switch {
	case debug:
		return slog.LevelDebug
	case verbose:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// Initialize installs a PrettyHandler writing to w as the default logger and
// returns it.
func Initialize(w io.Writer, debug, verbose bool) *slog.Logger {
	l := slog.New(NewPrettyHandler(w, &slog.HandlerOptions{
		Level:     Level(debug, verbose),
		AddSource: debug,
	}))
	slog.SetDefault(l)
	return l
}

// NewRunID returns a short identifier that ties together the log lines of
// one invocation.
func NewRunID() string {
	return uuid.NewString()[:8]
}

func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// With returns a context whose logger carries args on every record.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}

func Debug(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug(msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

func Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, slog.Any("error", err))
	}
	FromContext(ctx).Error(msg, args...)
}
