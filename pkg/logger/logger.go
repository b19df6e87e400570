// Package logger builds the *slog.Logger instances used across raggadon.
//
// The server logs through one of three handlers: slog's text handler (the
// default), slog's JSON handler for log shipping, or charmbracelet/log for a
// colorized console. Records can additionally be mirrored to a JSON log file
// with NewFile and Multi.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	attrs   []any
	writers []io.Writer
}

// New returns a logger configured by opts. Without options it writes
// slog text records at Info level to stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(c)
	}

	l := slog.New(c.handler(c.writer()))
	if len(c.attrs) > 0 {
		l = l.With(c.attrs...)
	}
	return l
}

// NewFile opens path for appending and returns a JSON logger writing to it
// along with a function closing the file. opts apply as for New; the JSON
// handler is always used.
func NewFile(path string, opts ...Option) (*slog.Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	opts = append(opts, WithWriter(f), WithJSON(true), WithPretty(false))
	return New(opts...), f.Close, nil
}

func (c *config) writer() io.Writer {
	switch len(c.writers) {
	case 0:
		return os.Stdout
	case 1:
		return c.writers[0]
	default:
		return io.MultiWriter(c.writers...)
	}
}

func (c *config) handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     c.level,
		AddSource: c.source,
	}

	switch {
	case c.json:
		return slog.NewJSONHandler(w, opts)
	case c.pretty:
		return charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			ReportCaller:    c.source,
			Level:           charmlog.Level(c.level),
		})
	default:
		return slog.NewTextHandler(w, opts)
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
