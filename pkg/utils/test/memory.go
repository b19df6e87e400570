package testutils

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/papercomputeco/raggadon/pkg/memory"
)

// MockStore is an in-process memory.Store that counts calls and can be told
// to fail.
type MockStore struct {
	mu sync.Mutex

	Entries []memory.Entry

	// FailSave causes Save to return ErrPersistence.
	FailSave bool

	// FailSearch causes Search, FirstActivity and LastActivity to return
	// ErrPersistence.
	FailSearch bool

	SaveCalls   int
	SearchCalls int

	// LastQuery is the most recent query passed to Search.
	LastQuery memory.Query
}

var _ memory.Store = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{
		Entries: make([]memory.Entry, 0),
	}
}

func (m *MockStore) Save(_ context.Context, project, role, content string, vector []float32) (*memory.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	if err := memory.ValidateSave(project, vector); err != nil {
		return nil, err
	}
	if m.FailSave {
		return nil, fmt.Errorf("%w: mock save failure", memory.ErrPersistence)
	}

	createdAt := time.Now().UTC()
	if n := len(m.Entries); n > 0 && !createdAt.After(m.Entries[n-1].CreatedAt) {
		createdAt = m.Entries[n-1].CreatedAt.Add(time.Microsecond)
	}

	entry := memory.Entry{
		ID:        strconv.Itoa(len(m.Entries) + 1),
		Project:   project,
		Role:      role,
		Content:   content,
		Embedding: vector,
		CreatedAt: createdAt,
	}
	m.Entries = append(m.Entries, entry)
	return &entry, nil
}

func (m *MockStore) Search(_ context.Context, q memory.Query) ([]memory.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SearchCalls++
	m.LastQuery = q
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}
	if m.FailSearch {
		return nil, fmt.Errorf("%w: mock search failure", memory.ErrPersistence)
	}

	var matches []memory.Match
	for _, e := range m.Entries {
		if e.Project != q.Project {
			continue
		}
		matches = append(matches, memory.Match{
			Entry:      e,
			Similarity: memory.CosineSimilarity(q.Vector, e.Embedding),
		})
	}
	return memory.Rank(matches, q.Threshold, q.Limit), nil
}

func (m *MockStore) Count(_ context.Context, project string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, e := range m.Entries {
		if e.Project == project {
			n++
		}
	}
	return n
}

func (m *MockStore) FirstActivity(_ context.Context, project string) (*time.Time, error) {
	return m.activity(project, true)
}

func (m *MockStore) LastActivity(_ context.Context, project string) (*time.Time, error) {
	return m.activity(project, false)
}

func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) activity(project string, first bool) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSearch {
		return nil, fmt.Errorf("%w: mock activity failure", memory.ErrPersistence)
	}

	var found *time.Time
	for _, e := range m.Entries {
		if e.Project != project {
			continue
		}
		t := e.CreatedAt
		if found == nil || (first && t.Before(*found)) || (!first && t.After(*found)) {
			found = &t
		}
	}
	return found, nil
}
