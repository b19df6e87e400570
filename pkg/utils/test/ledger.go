package testutils

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/raggadon/pkg/pricing"
	"github.com/papercomputeco/raggadon/pkg/usage"
)

// MockLedger is an in-process usage.Ledger that counts calls and can be
// told to fail.
type MockLedger struct {
	mu sync.Mutex

	Records []usage.Record

	// FailRecord causes Record to return ErrLedgerUnavailable.
	FailRecord bool

	// FailRead causes every read to fail; MonthlyTokens reports 0.
	FailRead bool

	RecordCalls int
}

var _ usage.Ledger = (*MockLedger)(nil)

func NewMockLedger() *MockLedger {
	return &MockLedger{Records: make([]usage.Record, 0)}
}

func (m *MockLedger) Record(_ context.Context, project string, usageType usage.Type, tokens int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordCalls++
	if m.FailRecord {
		return fmt.Errorf("%w: mock record failure", usage.ErrLedgerUnavailable)
	}
	if err := usage.ValidateRecord(project, usageType, tokens); err != nil {
		return err
	}

	m.Records = append(m.Records, usage.Record{
		Project:   project,
		Type:      usageType,
		Tokens:    tokens,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *MockLedger) MonthlyTokens(_ context.Context, project string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailRead {
		return 0
	}
	return usage.Aggregate(project, m.Records, time.Now(), pricing.DefaultUnitPrice).MonthlyTokens
}

func (m *MockLedger) ProjectStats(_ context.Context, project string) (*usage.ProjectStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailRead {
		return nil, fmt.Errorf("%w: mock read failure", usage.ErrLedgerUnavailable)
	}
	return usage.Aggregate(project, m.Records, time.Now(), pricing.DefaultUnitPrice), nil
}

func (m *MockLedger) AllProjectsUsage(_ context.Context) (*usage.Overview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailRead {
		return nil, fmt.Errorf("%w: mock read failure", usage.ErrLedgerUnavailable)
	}

	seen := map[string]bool{}
	var projects []string
	for _, r := range m.Records {
		if !seen[r.Project] {
			seen[r.Project] = true
			projects = append(projects, r.Project)
		}
	}
	sort.Strings(projects)

	now := time.Now()
	stats := make([]usage.ProjectStats, 0, len(projects))
	for _, p := range projects {
		stats = append(stats, *usage.Aggregate(p, m.Records, now, pricing.DefaultUnitPrice))
	}
	return usage.BuildOverview(stats, pricing.DefaultUnitPrice, now), nil
}

func (m *MockLedger) RecentActivities(_ context.Context, project string, limit int) ([]usage.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailRead {
		return nil, fmt.Errorf("%w: mock read failure", usage.ErrLedgerUnavailable)
	}
	return usage.Recent(project, m.Records, limit), nil
}

func (m *MockLedger) Close() error {
	return nil
}
