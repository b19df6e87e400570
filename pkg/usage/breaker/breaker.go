// Package breaker wraps a usage ledger in a circuit breaker so a failing
// accounting store is skipped quickly instead of slowing every request.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/papercomputeco/raggadon/pkg/usage"
)

const (
	defaultMaxFailures uint32        = 5
	defaultTimeout     time.Duration = 30 * time.Second
	defaultInterval    time.Duration = 60 * time.Second
)

// Config configures the breaker. Zero values select the defaults.
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before a probe is allowed.
	Timeout time.Duration

	// Interval clears failure counts while the circuit is closed.
	Interval time.Duration
}

// Ledger guards the writes and reads of an inner ledger with one shared
// circuit breaker.
type Ledger struct {
	inner   usage.Ledger
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

var _ usage.Ledger = (*Ledger)(nil)

// New wraps inner.
func New(inner usage.Ledger, c Config, logger *slog.Logger) *Ledger {
	if c.MaxFailures == 0 {
		c.MaxFailures = defaultMaxFailures
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.Interval == 0 {
		c.Interval = defaultInterval
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "usage-ledger",
		MaxRequests: 1,
		Interval:    c.Interval,
		Timeout:     c.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// caller mistakes say nothing about the ledger's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, usage.ErrInvalidRecord)
		},
	})

	return &Ledger{inner: inner, breaker: cb, logger: logger}
}

// State reports the breaker state.
func (l *Ledger) State() gobreaker.State {
	return l.breaker.State()
}

func (l *Ledger) Record(ctx context.Context, project string, usageType usage.Type, tokens int) error {
	_, err := l.breaker.Execute(func() (any, error) {
		return nil, l.inner.Record(ctx, project, usageType, tokens)
	})
	return wrap(err)
}

// MonthlyTokens reports 0 while the circuit is open. Since the inner ledger
// swallows its own errors, only Record and the stats reads move the breaker.
func (l *Ledger) MonthlyTokens(ctx context.Context, project string) int {
	if l.breaker.State() == gobreaker.StateOpen {
		return 0
	}
	return l.inner.MonthlyTokens(ctx, project)
}

func (l *Ledger) ProjectStats(ctx context.Context, project string) (*usage.ProjectStats, error) {
	res, err := l.breaker.Execute(func() (any, error) {
		return l.inner.ProjectStats(ctx, project)
	})
	if err != nil {
		return nil, wrap(err)
	}
	return res.(*usage.ProjectStats), nil
}

func (l *Ledger) AllProjectsUsage(ctx context.Context) (*usage.Overview, error) {
	res, err := l.breaker.Execute(func() (any, error) {
		return l.inner.AllProjectsUsage(ctx)
	})
	if err != nil {
		return nil, wrap(err)
	}
	return res.(*usage.Overview), nil
}

func (l *Ledger) RecentActivities(ctx context.Context, project string, limit int) ([]usage.Activity, error) {
	res, err := l.breaker.Execute(func() (any, error) {
		return l.inner.RecentActivities(ctx, project, limit)
	})
	if err != nil {
		return nil, wrap(err)
	}
	return res.([]usage.Activity), nil
}

// Close closes the inner ledger.
func (l *Ledger) Close() error {
	return l.inner.Close()
}

func wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit open: %v", usage.ErrLedgerUnavailable, err)
	}
	return err
}
