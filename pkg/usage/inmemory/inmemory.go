// Package inmemory provides a process-local usage ledger.
package inmemory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/raggadon/pkg/usage"
)

// Ledger implements usage.Ledger on a mutex-guarded slice.
type Ledger struct {
	mu        sync.RWMutex
	records   []usage.Record
	unitPrice float64
	now       func() time.Time
	logger    *slog.Logger
}

var _ usage.Ledger = (*Ledger)(nil)

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the ledger's time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger returns an empty ledger pricing tokens at unitPrice per 1K.
func NewLedger(unitPrice float64, logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		unitPrice: unitPrice,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Record(_ context.Context, project string, usageType usage.Type, tokens int) error {
	if err := usage.ValidateRecord(project, usageType, tokens); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, usage.Record{
		Project:   project,
		Type:      usageType,
		Tokens:    tokens,
		CreatedAt: l.now().UTC(),
	})

	return nil
}

func (l *Ledger) MonthlyTokens(_ context.Context, project string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	monthStart := usage.MonthStart(l.now())
	total := 0
	for _, r := range l.records {
		if r.Project == project && !r.CreatedAt.Before(monthStart) {
			total += r.Tokens
		}
	}
	return total
}

func (l *Ledger) ProjectStats(_ context.Context, project string) (*usage.ProjectStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return usage.Aggregate(project, l.records, l.now(), l.unitPrice), nil
}

func (l *Ledger) AllProjectsUsage(_ context.Context) (*usage.Overview, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := l.now()

	seen := map[string]struct{}{}
	for _, r := range l.records {
		seen[r.Project] = struct{}{}
	}
	projects := make([]string, 0, len(seen))
	for p := range seen {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	stats := make([]usage.ProjectStats, 0, len(projects))
	for _, p := range projects {
		stats = append(stats, *usage.Aggregate(p, l.records, now, l.unitPrice))
	}

	l.logger.Debug("aggregated usage overview", "projects", len(projects))

	return usage.BuildOverview(stats, l.unitPrice, now), nil
}

func (l *Ledger) RecentActivities(_ context.Context, project string, limit int) ([]usage.Activity, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return usage.Recent(project, l.records, limit), nil
}

// Close is a no-op.
func (l *Ledger) Close() error {
	return nil
}
