// Package logger configures the process-wide slog logger. Output goes to
// stderr so that stdout stays reserved for command results.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type sessionKey struct{}

func Setup(level string, format string) {
	SetupWriter(os.Stderr, level, format)
}

// SetupWriter installs a text or json handler on w. Unknown levels fall
// back to info.
func SetupWriter(w io.Writer, level string, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithSession tags ctx with a build session id.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// FromContext returns the default logger, carrying the session id of ctx
// when there is one.
func FromContext(ctx context.Context) *slog.Logger {
	if id, ok := ctx.Value(sessionKey{}).(string); ok {
		return slog.Default().With("session", id)
	}
	return slog.Default()
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
