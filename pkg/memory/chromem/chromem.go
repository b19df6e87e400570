// Package chromem provides an in-process memory store built on chromem-go,
// with one collection per project. It is meant for local development and
// tests; entries do not survive a restart.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/papercomputeco/raggadon/pkg/memory"
)

// Config holds configuration for the chromem store.
type Config struct {
	// Dimensions is the vector length every entry must have.
	Dimensions uint
}

type activity struct {
	first time.Time
	last  time.Time
}

// Store implements memory.Store in process.
type Store struct {
	db         *chromem.DB
	dimensions uint
	logger     *slog.Logger

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	activity    map[string]activity
	lastCreated time.Time
}

// NewStore creates an empty in-process store.
func NewStore(c Config, logger *slog.Logger) (*Store, error) {
	if c.Dimensions == 0 {
		return nil, errors.New("chromem embedding dimensions cannot be 0, must be configured")
	}

	return &Store{
		db:          chromem.NewDB(),
		dimensions:  c.Dimensions,
		logger:      logger,
		collections: make(map[string]*chromem.Collection),
		activity:    make(map[string]activity),
	}, nil
}

func (s *Store) collection(project string, create bool) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[project]
	s.mu.RUnlock()
	if ok || !create {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[project]; ok {
		return col, nil
	}

	// embeddings are always supplied, so no embedding func is needed
	col, err := s.db.CreateCollection("project_"+project, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[project] = col
	return col, nil
}

// nextCreatedAt returns a timestamp strictly after every previous one so
// insertion order survives equal clock readings.
func (s *Store) nextCreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if !now.After(s.lastCreated) {
		now = s.lastCreated.Add(time.Nanosecond)
	}
	s.lastCreated = now
	return now
}

// Save adds one document to the project's collection.
func (s *Store) Save(ctx context.Context, project, role, content string, vector []float32) (*memory.Entry, error) {
	if err := memory.ValidateSave(project, vector); err != nil {
		return nil, err
	}
	if uint(len(vector)) != s.dimensions {
		return nil, fmt.Errorf("%w: embedding has %d dimensions, store expects %d",
			memory.ErrPersistence, len(vector), s.dimensions)
	}

	col, err := s.collection(project, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memory.ErrPersistence, err)
	}

	entry := &memory.Entry{
		ID:        uuid.NewString(),
		Project:   project,
		Role:      role,
		Content:   content,
		Embedding: vector,
		CreatedAt: s.nextCreatedAt(),
	}

	// chromem normalizes embeddings in place
	stored := make([]float32, len(vector))
	copy(stored, vector)

	err = col.AddDocument(ctx, chromem.Document{
		ID:        entry.ID,
		Content:   content,
		Embedding: stored,
		Metadata: map[string]string{
			"role":       role,
			"created_at": strconv.FormatInt(entry.CreatedAt.UnixNano(), 10),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: add document: %v", memory.ErrPersistence, err)
	}

	s.recordActivity(project, entry.CreatedAt)

	return entry, nil
}

// recordActivity widens the project's first/last window to include at.
// Concurrent saves may arrive here out of timestamp order.
func (s *Store) recordActivity(project string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.activity[project]
	if !ok {
		s.activity[project] = activity{first: at, last: at}
		return
	}
	if at.Before(a.first) {
		a.first = at
	}
	if at.After(a.last) {
		a.last = at
	}
	s.activity[project] = a
}

// Search scores every document of the project and ranks them with
// memory.Rank.
func (s *Store) Search(ctx context.Context, q memory.Query) ([]memory.Match, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}
	if uint(len(q.Vector)) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			memory.ErrPersistence, len(q.Vector), s.dimensions)
	}

	col, err := s.collection(q.Project, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memory.ErrPersistence, err)
	}
	if col == nil || col.Count() == 0 {
		return []memory.Match{}, nil
	}

	query := make([]float32, len(q.Vector))
	copy(query, q.Vector)

	// chromem-go requires nResults <= collection size
	results, err := col.QueryEmbedding(ctx, query, col.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: chromem query: %v", memory.ErrPersistence, err)
	}

	matches := make([]memory.Match, 0, len(results))
	for _, r := range results {
		nanos, _ := strconv.ParseInt(r.Metadata["created_at"], 10, 64)
		matches = append(matches, memory.Match{
			Entry: memory.Entry{
				ID:        r.ID,
				Project:   q.Project,
				Role:      r.Metadata["role"],
				Content:   r.Content,
				CreatedAt: time.Unix(0, nanos).UTC(),
			},
			Similarity: float64(r.Similarity),
		})
	}

	return memory.Rank(matches, q.Threshold, q.Limit), nil
}

// Count returns the number of documents in the project's collection.
func (s *Store) Count(_ context.Context, project string) int {
	col, _ := s.collection(project, false)
	if col == nil {
		return 0
	}
	return col.Count()
}

// FirstActivity returns the earliest entry timestamp of project.
func (s *Store) FirstActivity(_ context.Context, project string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.activity[project]
	if !ok {
		return nil, nil
	}
	return &a.first, nil
}

// LastActivity returns the latest entry timestamp of project.
func (s *Store) LastActivity(_ context.Context, project string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.activity[project]
	if !ok {
		return nil, nil
	}
	return &a.last, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

var _ memory.Store = (*Store)(nil)
