package usage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/papercomputeco/raggadon/pkg/pricing"
)

// DefaultRecentLimit is the number of activities listed by project stats.
const DefaultRecentLimit = 5

// MonthStart returns the first instant of now's calendar month in UTC.
func MonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ValidateRecord checks the arguments of Ledger.Record.
func ValidateRecord(project string, usageType Type, tokens int) error {
	switch {
	case strings.TrimSpace(project) == "":
		return fmt.Errorf("%w: project is required", ErrInvalidRecord)
	case !usageType.Valid():
		return fmt.Errorf("%w: unknown usage type %q", ErrInvalidRecord, usageType)
	case tokens < 0:
		return fmt.Errorf("%w: negative token count %d", ErrInvalidRecord, tokens)
	}
	return nil
}

// Aggregate folds the records of one project into its stats. Records may be
// in any order; records of other projects are ignored.
func Aggregate(project string, records []Record, now time.Time, unitPrice float64) *ProjectStats {
	stats := &ProjectStats{Project: project}
	monthStart := MonthStart(now)

	for _, r := range records {
		if r.Project != project {
			continue
		}

		stats.TotalTokens += r.Tokens
		stats.TotalOperations++
		switch r.Type {
		case TypeSave:
			stats.SaveOperations++
		case TypeSearch:
			stats.SearchOperations++
		}

		if !r.CreatedAt.Before(monthStart) {
			stats.MonthlyTokens += r.Tokens
		}

		created := r.CreatedAt
		if stats.FirstUsage == nil || created.Before(*stats.FirstUsage) {
			stats.FirstUsage = &created
		}
		if stats.LastUsage == nil || created.After(*stats.LastUsage) {
			last := created
			stats.LastUsage = &last
		}
	}

	stats.Price(unitPrice)
	return stats
}

// Price fills the cost fields from the token counters.
func (s *ProjectStats) Price(unitPrice float64) {
	s.EstimatedCostUSD = pricing.Round6(pricing.Cost(s.TotalTokens, unitPrice))
	s.MonthlyCostUSD = pricing.Round6(pricing.Cost(s.MonthlyTokens, unitPrice))
}

// BuildOverview sums per-project stats and orders projects by total tokens
// descending, then by name.
func BuildOverview(stats []ProjectStats, unitPrice float64, now time.Time) *Overview {
	projects := make([]ProjectStats, len(stats))
	copy(projects, stats)

	sort.SliceStable(projects, func(i, j int) bool {
		if projects[i].TotalTokens != projects[j].TotalTokens {
			return projects[i].TotalTokens > projects[j].TotalTokens
		}
		return projects[i].Project < projects[j].Project
	})

	overview := &Overview{
		Projects:      projects,
		TotalProjects: len(projects),
		GeneratedAt:   now.UTC(),
	}
	for _, p := range projects {
		overview.TotalTokens += p.TotalTokens
		overview.TotalMonthlyTokens += p.MonthlyTokens
	}
	overview.EstimatedCostUSD = pricing.Round6(pricing.Cost(overview.TotalTokens, unitPrice))

	return overview
}

// Recent returns up to limit activities of project from records, newest
// first. Among records sharing a timestamp, later ones come first.
func Recent(project string, records []Record, limit int) []Activity {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	matching := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Project == project {
			matching = append(matching, r)
		}
	}

	for i, j := 0, len(matching)-1; i < j; i, j = i+1, j-1 {
		matching[i], matching[j] = matching[j], matching[i]
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].CreatedAt.After(matching[j].CreatedAt)
	})

	if len(matching) > limit {
		matching = matching[:limit]
	}

	activities := make([]Activity, 0, len(matching))
	for _, r := range matching {
		activities = append(activities, Activity{Type: r.Type, Tokens: r.Tokens, CreatedAt: r.CreatedAt})
	}
	return activities
}
