// Package logger wraps log/slog: JSON output in production, text elsewhere,
// and a per-request logger carried on the context so every line a handler
// or service writes is tagged with the request id.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

var L = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Init replaces the base logger for the given environment.
func Init(env string) *slog.Logger {
	return InitWriter(env, os.Stdout)
}

func InitWriter(env string, w io.Writer) *slog.Logger {
	var handler slog.Handler
	switch env {
	case "production":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	L = slog.New(handler)
	slog.SetDefault(L)
	return L
}

type ctxKey struct{}

// WithCtx returns the request logger stored in ctx, or the base logger.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
			return log
		}
	}
	return L
}

// InjectLogger stores a request logger into ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}
