package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger created with New or NewFile.
type Option func(*config)

// WithDebug lowers the level to Debug when debug is true.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithLevel sets the minimum level explicitly.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithPretty selects the charmbracelet/log console handler.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON selects slog's JSON handler. It takes precedence over WithPretty.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter replaces the output writers with w. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters replaces the output writers, combined via io.MultiWriter.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource includes the source file and line of each record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}

// WithAttrs stamps key/value pairs on every record, e.g. "service", "raggadon".
func WithAttrs(args ...any) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, args...)
	}
}
