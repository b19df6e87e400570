// Package sqlite provides a SQLite usage ledger.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/raggadon/pkg/usage"
)

// Ledger implements usage.Ledger on an embedding_usage table. Timestamps are
// stored as unix nanoseconds in UTC.
type Ledger struct {
	db        *sql.DB
	unitPrice float64
	now       func() time.Time
	logger    *slog.Logger
}

var _ usage.Ledger = (*Ledger)(nil)

// NewLedger opens the database at path (":memory:" for a private in-memory
// database) and creates the embedding_usage table.
func NewLedger(path string, unitPrice float64, logger *slog.Logger) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS embedding_usage (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project TEXT NOT NULL,
			usage_type TEXT NOT NULL,
			tokens INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS embedding_usage_project_idx ON embedding_usage (project, created_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating embedding_usage table: %w", err)
	}

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
		`INSERT INTO embedding_usage (project, usage_type, tokens, created_at) VALUES (?, ?, ?, ?)`,
		project, string(usageType), tokens, l.now().UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: recording usage: %v", usage.ErrLedgerUnavailable, err)
	}
	return nil
}

func (l *Ledger) MonthlyTokens(ctx context.Context, project string) int {
	var total int
	err := l.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(tokens), 0) FROM embedding_usage WHERE project = ? AND created_at >= ?`,
		project, usage.MonthStart(l.now()).UnixNano(),
	).Scan(&total)
	if err != nil {
		l.logger.Warn("reading monthly usage failed", "project", project, "error", err)
		return 0
	}
	return total
}

func (l *Ledger) ProjectStats(ctx context.Context, project string) (*usage.ProjectStats, error) {
	stats := &usage.ProjectStats{Project: project}

	var first, last sql.NullInt64
	err := l.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(tokens), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN tokens ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN usage_type = 'save' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN usage_type = 'search' THEN 1 ELSE 0 END), 0),
			COUNT(*),
			MIN(created_at),
			MAX(created_at)
		FROM embedding_usage
		WHERE project = ?
	`, usage.MonthStart(l.now()).UnixNano(), project).Scan(
		&stats.TotalTokens,
		&stats.MonthlyTokens,
		&stats.SaveOperations,
		&stats.SearchOperations,
		&stats.TotalOperations,
		&first,
		&last,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: reading project stats: %v", usage.ErrLedgerUnavailable, err)
	}

	stats.FirstUsage = fromNanos(first)
	stats.LastUsage = fromNanos(last)
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
		WHERE project = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, project, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: reading activities: %v", usage.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	activities := make([]usage.Activity, 0, limit)
	for rows.Next() {
		var (
			a       usage.Activity
			kind    string
			created int64
		)
		if err := rows.Scan(&kind, &a.Tokens, &created); err != nil {
			return nil, fmt.Errorf("%w: scanning activity: %v", usage.ErrLedgerUnavailable, err)
		}
		a.Type = usage.Type(kind)
		a.CreatedAt = time.Unix(0, created).UTC()
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading activities: %v", usage.ErrLedgerUnavailable, err)
	}

	return activities, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func fromNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}
