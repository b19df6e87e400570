// Package usage records token consumption per project and operation and
// derives monthly and lifetime statistics from those records.
//
// The ledger is a best-effort side channel. Callers on the memory path must
// tolerate every failure reported here; only the accounting endpoints surface
// ErrLedgerUnavailable to clients.
package usage

import (
	"context"
	"time"
)

// Type is the kind of operation that consumed tokens.
type Type string

const (
	TypeSave   Type = "save"
	TypeSearch Type = "search"
)

// Valid reports whether t is a known usage type.
func (t Type) Valid() bool {
	return t == TypeSave || t == TypeSearch
}

// Ledger is an append-only log of token consumption.
type Ledger interface {
	// Record appends one usage record. A write the backend cannot accept is
	// reported as ErrLedgerUnavailable.
	Record(ctx context.Context, project string, usageType Type, tokens int) error

	// MonthlyTokens sums tokens recorded for project since the start of the
	// current UTC calendar month. Backend errors are logged and reported as 0.
	MonthlyTokens(ctx context.Context, project string) int

	// ProjectStats aggregates every record of project. A project without
	// records yields zero counters and nil first/last usage.
	ProjectStats(ctx context.Context, project string) (*ProjectStats, error)

	// AllProjectsUsage aggregates every project seen by the ledger.
	AllProjectsUsage(ctx context.Context) (*Overview, error)

	// RecentActivities returns up to limit records of project, newest first.
	RecentActivities(ctx context.Context, project string, limit int) ([]Activity, error)

	// Close releases ledger resources.
	Close() error
}

// Record is one persisted unit of token consumption.
type Record struct {
	Project   string    `json:"project"`
	Type      Type      `json:"usage_type"`
	Tokens    int       `json:"tokens"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity is the public view of a record in recent activity listings.
type Activity struct {
	Type      Type      `json:"usage_type"`
	Tokens    int       `json:"tokens"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectStats is the derived usage view of one project.
type ProjectStats struct {
	Project          string     `json:"project"`
	TotalTokens      int        `json:"total_tokens"`
	MonthlyTokens    int        `json:"monthly_tokens"`
	SaveOperations   int        `json:"save_operations"`
	SearchOperations int        `json:"search_operations"`
	TotalOperations  int        `json:"total_operations"`
	EstimatedCostUSD float64    `json:"estimated_cost_usd"`
	MonthlyCostUSD   float64    `json:"monthly_cost_usd"`
	FirstUsage       *time.Time `json:"first_usage"`
	LastUsage        *time.Time `json:"last_usage"`
}

// Overview is the usage view across all projects.
type Overview struct {
	Projects           []ProjectStats `json:"projects"`
	TotalProjects      int            `json:"total_projects"`
	TotalTokens        int            `json:"total_tokens"`
	TotalMonthlyTokens int            `json:"total_monthly_tokens"`
	EstimatedCostUSD   float64        `json:"estimated_cost_usd"`
	GeneratedAt        time.Time      `json:"generated_at"`
}
