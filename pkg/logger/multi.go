package logger

import (
	"context"
	"errors"
	"log/slog"
)

type multiHandler struct {
	handlers []slog.Handler
}

// Multi returns a logger dispatching every record to the handlers of all
// given loggers. Nil loggers are skipped. serve uses it to mirror console
// output into the JSON file configured by log.file.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	handlers := make([]slog.Handler, 0, len(loggers))
	for _, l := range loggers {
		if l == nil {
			continue
		}
		handlers = append(handlers, l.Handler())
	}
	return slog.New(&multiHandler{handlers: handlers})
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes r to every enabled handler. A failing handler does not
// prevent the others from receiving the record.
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *multiHandler) each(fn func(slog.Handler) slog.Handler) *multiHandler {
	children := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		children[i] = fn(h)
	}
	return &multiHandler{handlers: children}
}
