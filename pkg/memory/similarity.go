package memory

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultLimit is the number of matches returned when a query sets none.
const DefaultLimit = 5

// ValidateSave checks the arguments shared by every backend's Save.
func ValidateSave(project string, vector []float32) error {
	if strings.TrimSpace(project) == "" {
		return fmt.Errorf("%w: project is required", ErrInvalidInput)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: embedding is empty", ErrInvalidInput)
	}
	return nil
}

// Normalize validates q and fills in the default limit.
func (q Query) Normalize() (Query, error) {
	if strings.TrimSpace(q.Project) == "" {
		return q, fmt.Errorf("%w: project is required", ErrInvalidInput)
	}
	if len(q.Vector) == 0 {
		return q, fmt.Errorf("%w: query embedding is empty", ErrInvalidInput)
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q, nil
}

// CosineSimilarity returns the cosine of the angle between a and b. Vectors
// of different length or zero magnitude have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank filters matches below threshold, orders the rest by similarity
// descending and then by CreatedAt and ID ascending, and truncates to limit.
// Backends that rank in Go use it to honor the Store ordering contract.
func Rank(matches []Match, threshold float64, limit int) []Match {
	kept := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Similarity >= threshold {
			kept = append(kept, m)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Similarity != kept[j].Similarity {
			return kept[i].Similarity > kept[j].Similarity
		}
		if !kept[i].CreatedAt.Equal(kept[j].CreatedAt) {
			return kept[i].CreatedAt.Before(kept[j].CreatedAt)
		}
		return kept[i].ID < kept[j].ID
	})

	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}
