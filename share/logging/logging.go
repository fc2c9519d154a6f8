// Package logging bridges a zerolog.Logger into a log/slog.Handler, the way
// vvfs/globals.go's GetLogger wires zerolog as the process's log sink
// (spec §4.11). Every sharecore package logs through log/slog directly;
// this adapter is only installed once, at the process entry point.
package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// Handler adapts slog's structured logging calls onto a zerolog.Logger.
type Handler struct {
	logger zerolog.Logger
	attrs  []slog.Attr
	group  string
}

// NewHandler wraps logger as a slog.Handler.
func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelDebug
}

func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	var event *zerolog.Event
	switch {
	case record.Level >= slog.LevelError:
		event = h.logger.Error()
	case record.Level >= slog.LevelWarn:
		event = h.logger.Warn()
	case record.Level >= slog.LevelInfo:
		event = h.logger.Info()
	default:
		event = h.logger.Debug()
	}

	for _, a := range h.attrs {
		event = withAttr(event, h.group, a)
	}
	record.Attrs(func(a slog.Attr) bool {
		event = withAttr(event, h.group, a)
		return true
	})
	event.Msg(record.Message)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *Handler) WithGroup(name string) slog.Handler {
	next := *h
	next.group = name
	return &next
}

func withAttr(event *zerolog.Event, group string, a slog.Attr) *zerolog.Event {
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	return event.Interface(key, a.Value.Any())
}
