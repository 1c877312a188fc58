package avdecclog

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to a log/slog.Logger. Useful for development
// console output; grounded on the same adapter shape the reference
// stack uses to bridge its own protocol logger into slog.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("layer", event.Layer.String()),
		slog.String("corr_id", event.CorrelationID),
	}
	if event.EntityID != "" {
		attrs = append(attrs, slog.String("entity_id", event.EntityID))
	}

	level := slog.LevelDebug
	switch event.Level {
	case LevelTrace, LevelDebug:
		level = slog.LevelDebug
	case LevelInfo:
		level = slog.LevelInfo
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	case LevelNone:
		return
	}

	a.logger.LogAttrs(context.Background(), level, event.Message, attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
