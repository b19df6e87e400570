// Package postgres provides a PostgreSQL usage ledger.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx PostgreSQL driver as "pgx"

	"github.com/papercomputeco/raggadon/pkg/usage"
)

// Ledger implements usage.Ledger on an embedding_usage table.
type Ledger struct {
	db        *sql.DB
	unitPrice float64
	now       func() time.Time
	logger    *slog.Logger
}

var _ usage.Ledger = (*Ledger)(nil)

// NewLedger connects to connStr and creates the embedding_usage table.
func NewLedger(ctx context.Context, connStr string, unitPrice float64, logger *slog.Logger) (*Ledger, error) {
	if connStr == "" {
		return nil, errors.New("postgres connection string is required")
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS embedding_usage (
			id BIGSERIAL PRIMARY KEY,
			project TEXT NOT NULL,
			usage_type TEXT NOT NULL,
			tokens INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS embedding_usage_project_idx ON embedding_usage (project, created_at)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	logger.Info("postgres usage ledger initialized")

	return &Ledger{
		db:        db,
		unitPrice: unitPrice,
		now:       time.Now,
		logger:    logger,
	}, nil
}

func (l *Ledger) Record(ctx context.Context, project string, usageType usage.Type, tokens int) error {
	if err := usage.ValidateRecord(project, usageType, tokens); err != nil {
		return err
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO embedding_usage (project, usage_type, tokens) VALUES ($1, $2, $3)`,
		project, string(usageType), tokens,
	)
	if err != nil {
		return fmt.Errorf("%w: recording usage: %v", usage.ErrLedgerUnavailable, err)
	}
	return nil
}

func (l *Ledger) MonthlyTokens(ctx context.Context, project string) int {
	var total int64
	err := l.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(tokens), 0) FROM embedding_usage WHERE project = $1 AND created_at >= $2`,
		project, usage.MonthStart(l.now()),
	).Scan(&total)
	if err != nil {
		l.logger.Warn("reading monthly usage failed", "project", project, "error", err)
		return 0
	}
	return int(total)
}

func (l *Ledger) ProjectStats(ctx context.Context, project string) (*usage.ProjectStats, error) {
	var (
		total, monthly              int64
		saves, searches, operations int64
		first, last                 sql.NullTime
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(tokens), 0),
			COALESCE(SUM(tokens) FILTER (WHERE created_at >= $2), 0),
			COUNT(*) FILTER (WHERE usage_type = 'save'),
			COUNT(*) FILTER (WHERE usage_type = 'search'),
			COUNT(*),
			MIN(created_at),
			MAX(created_at)
		FROM embedding_usage
		WHERE project = $1
	`, project, usage.MonthStart(l.now())).Scan(&total, &monthly, &saves, &searches, &operations, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("%w: reading project stats: %v", usage.ErrLedgerUnavailable, err)
	}

	stats := &usage.ProjectStats{
		Project:          project,
		TotalTokens:      int(total),
		MonthlyTokens:    int(monthly),
		SaveOperations:   int(saves),
		SearchOperations: int(searches),
		TotalOperations:  int(operations),
		FirstUsage:       nullTime(first),
		LastUsage:        nullTime(last),
	}
	stats.Price(l.unitPrice)

	return stats, nil
}

func (l *Ledger) AllProjectsUsage(ctx context.Context) (*usage.Overview, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT DISTINCT project FROM embedding_usage ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing projects: %v", usage.ErrLedgerUnavailable, err)
	}

	var projects []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scanning project: %v", usage.ErrLedgerUnavailable, err)
		}
		projects = append(projects, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing projects: %v", usage.ErrLedgerUnavailable, err)
	}

	stats := make([]usage.ProjectStats, 0, len(projects))
	for _, p := range projects {
		s, err := l.ProjectStats(ctx, p)
		if err != nil {
			return nil, err
		}
		stats = append(stats, *s)
	}

	return usage.BuildOverview(stats, l.unitPrice, l.now()), nil
}

func (l *Ledger) RecentActivities(ctx context.Context, project string, limit int) ([]usage.Activity, error) {
	if limit <= 0 {
		limit = usage.DefaultRecentLimit
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT usage_type, tokens, created_at
		FROM embedding_usage
		WHERE project = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, project, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: reading activities: %v", usage.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	activities := make([]usage.Activity, 0, limit)
	for rows.Next() {
		var (
			a    usage.Activity
			kind string
		)
		if err := rows.Scan(&kind, &a.Tokens, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning activity: %v", usage.ErrLedgerUnavailable, err)
		}
		a.Type = usage.Type(kind)
		a.CreatedAt = a.CreatedAt.UTC()
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading activities: %v", usage.ErrLedgerUnavailable, err)
	}

	return activities, nil
}

// Close releases the connection pool.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}
