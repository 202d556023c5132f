package events

import (
	"context"
	"log/slog"
)

// Emit publishes a draft event. It is a no-op until an emitter is installed.
var Emit = func(ctx context.Context, name string, evt DraftEvent) {}

// EnableLogEmitter routes every event to logger.
func EnableLogEmitter(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	SetCustomEmitter(func(ctx context.Context, name string, evt DraftEvent) {
		logEvent(ctx, logger, name, evt)
	})
}

func SetCustomEmitter(f func(ctx context.Context, name string, evt DraftEvent)) {
	if f == nil {
		Emit = func(context.Context, string, DraftEvent) {}
		return
	}
	Emit = func(ctx context.Context, name string, evt DraftEvent) {
		if evt.SessionKey == "" {
			if session := SessionFromContext(ctx); session != "" {
				evt.SessionKey = session
			}
		}
		f(ctx, name, evt)
	}
}

func logEvent(ctx context.Context, logger *slog.Logger, name string, evt DraftEvent) {
	level := slog.LevelInfo
	switch evt.Type {
	case EventWarn:
		level = slog.LevelWarn
	case EventError:
		level = slog.LevelError
	case EventInfo, EventSuccess:
		level = slog.LevelDebug
	}

	attrs := []any{
		slog.String("event", name),
		slog.String("id", evt.ID),
	}
	if evt.SessionKey != "" {
		attrs = append(attrs, slog.String("session", evt.SessionKey))
	}
	for k, v := range evt.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}
	logger.Log(ctx, level, evt.Message, attrs...)
}
