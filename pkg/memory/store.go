// Package memory stores project-scoped text entries with their embeddings and
// answers similarity queries within a project.
//
// Ranking is delegated to each backend's native vector capability. The Store
// contract fixes the policy every backend must honor: results are scoped to
// one project, never exceed the limit, meet the similarity threshold, and are
// ordered by cosine similarity descending with earlier entries first on ties.
//
// Backends are pluggable via configuration:
//
//	[memory]
//	provider = "postgres"   # or "sqlite", "qdrant", "memory"
package memory

import (
	"context"
	"time"
)

// Store persists memory entries and retrieves them by similarity.
type Store interface {
	// Save inserts one entry in a single atomic write. The store assigns
	// the entry's ID and CreatedAt.
	Save(ctx context.Context, project, role, content string, vector []float32) (*Entry, error)

	// Search returns at most q.Limit entries of q.Project whose cosine
	// similarity to q.Vector is at least q.Threshold. No match is not an error.
	Search(ctx context.Context, q Query) ([]Match, error)

	// Count returns the number of entries in project. Errors are logged and
	// reported as 0.
	Count(ctx context.Context, project string) int

	// FirstActivity returns the earliest CreatedAt in project, or nil when
	// the project has no entries.
	FirstActivity(ctx context.Context, project string) (*time.Time, error)

	// LastActivity returns the latest CreatedAt in project, or nil when the
	// project has no entries.
	LastActivity(ctx context.Context, project string) (*time.Time, error)

	// Close releases store resources.
	Close() error
}

// Entry is a stored unit of project memory. Content is stored exactly as the
// caller supplied it.
type Entry struct {
	ID        string    `json:"id"`
	Project   string    `json:"project"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Query is a similarity search scoped to one project.
type Query struct {
	Project   string
	Vector    []float32
	Limit     int
	Threshold float64
}

// Match is an entry together with its cosine similarity to the query.
type Match struct {
	Entry
	Similarity float64 `json:"similarity"`
}
