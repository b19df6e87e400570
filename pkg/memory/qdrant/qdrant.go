// Package qdrant provides a memory store backed by a Qdrant collection.
//
// All projects share one collection; every point carries a keyword-indexed
// "project" payload that scopes queries, and an integer-indexed "created_at"
// payload (unix nanoseconds) used for activity lookups and tie-breaking.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/raggadon/pkg/memory"
)

const (
	// DefaultCollection is the collection used when none is configured.
	DefaultCollection = "project_memory"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	fieldProject   = "project"
	fieldRole      = "role"
	fieldContent   = "content"
	fieldCreatedAt = "created_at"

	// searchOverfetch extra candidates are requested past the limit so points
	// tied at the cut can be ordered by creation time before truncating.
	searchOverfetch = 16
	maxSearchFetch  = 1024
)

// Config holds configuration for the Qdrant store.
type Config struct {
	// Target is the Qdrant gRPC endpoint, e.g. "localhost:6334" or
	// "https://xyz.cloud.qdrant.io:6334". A https scheme enables TLS.
	Target string

	// APIKey is the optional Qdrant API key.
	APIKey string

	// Collection defaults to DefaultCollection if empty.
	Collection string

	// Dimensions is the vector size of the collection.
	Dimensions uint
}

// Store implements memory.Store on Qdrant.
type Store struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

// NewStore connects to Qdrant and creates the collection and payload indexes
// when they do not exist.
func NewStore(ctx context.Context, c Config, logger *slog.Logger) (*Store, error) {
	if c.Target == "" {
		return nil, errors.New("qdrant target is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host, port, useTLS, err := ParseTarget(c.Target)
	if err != nil {
		return nil, err
	}

	collection := c.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	s := &Store{
		client:     client,
		collection: collection,
		logger:     logger,
	}

	if err := s.ensureCollection(ctx, c.Dimensions); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("qdrant memory store initialized",
		"host", host,
		"port", port,
		"collection", collection,
		"dimensions", c.Dimensions,
	)

	return s, nil
}

// ParseTarget splits a Qdrant target into host, port and whether TLS is used.
func ParseTarget(target string) (string, int, bool, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		// bare host or host:port
		u, err = url.Parse("grpc://" + target)
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid qdrant target %q: %w", target, err)
		}
	}

	port := DefaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid qdrant port %q: %w", p, err)
		}
	}

	return u.Hostname(), port, u.Scheme == "https", nil
}

func (s *Store) ensureCollection(ctx context.Context, dimensions uint) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	indexes := map[string]qdrant.FieldType{
		fieldProject:   qdrant.FieldType_FieldTypeKeyword,
		fieldCreatedAt: qdrant.FieldType_FieldTypeInteger,
	}
	for field, fieldType := range indexes {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      fieldType.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("creating %s index: %w", field, err)
		}
	}

	return nil
}

// Save upserts one point with a fresh UUID and waits for it to be applied.
func (s *Store) Save(ctx context.Context, project, role, content string, vector []float32) (*memory.Entry, error) {
	if err := memory.ValidateSave(project, vector); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()

	result, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(id),
				Vectors: qdrant.NewVectorsDense(vector),
				Payload: qdrant.NewValueMap(map[string]any{
					fieldProject:   project,
					fieldRole:      role,
					fieldContent:   content,
					fieldCreatedAt: createdAt.UnixNano(),
				}),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upserting point: %v", memory.ErrPersistence, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: upsert returned no confirmation", memory.ErrPersistence)
	}

	return &memory.Entry{
		ID:        id,
		Project:   project,
		Role:      role,
		Content:   content,
		Embedding: vector,
		CreatedAt: createdAt,
	}, nil
}

// Search queries the collection with a project filter and score threshold,
// then applies memory.Rank so equal scores are ordered by creation time.
// Qdrant cuts at its own limit, so candidates past q.Limit are fetched until
// no point tied with the last kept one can be missing.
func (s *Store) Search(ctx context.Context, q memory.Query) ([]memory.Match, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	var points []*qdrant.ScoredPoint
	for fetch := q.Limit + searchOverfetch; ; fetch *= 2 {
		points, err = s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.collection,
			Query:          qdrant.NewQueryDense(q.Vector),
			Filter:         projectFilter(q.Project),
			Limit:          qdrant.PtrOf(uint64(fetch)),
			ScoreThreshold: qdrant.PtrOf(float32(q.Threshold)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: querying points: %v", memory.ErrPersistence, err)
		}
		if fetch >= maxSearchFetch || !tieAtCut(scores(points), q.Limit, fetch) {
			break
		}
	}

	matches := make([]memory.Match, 0, len(points))
	for _, p := range points {
		matches = append(matches, memory.Match{
			Entry:      entryFromPayload(p.GetId(), p.GetPayload()),
			Similarity: float64(p.GetScore()),
		})
	}

	return memory.Rank(matches, q.Threshold, q.Limit), nil
}

func scores(points []*qdrant.ScoredPoint) []float32 {
	out := make([]float32, len(points))
	for i, p := range points {
		out[i] = p.GetScore()
	}
	return out
}

// tieAtCut reports whether a full page of score-descending results ends on
// the same score as the last point inside limit, meaning more tied points may
// exist beyond the page.
func tieAtCut(scores []float32, limit, fetched int) bool {
	if limit <= 0 || len(scores) < fetched || len(scores) <= limit {
		return false
	}
	return scores[len(scores)-1] == scores[limit-1]
}

// Count returns the exact number of points in project.
func (s *Store) Count(ctx context.Context, project string) int {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         projectFilter(project),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		s.logger.Warn("counting memory entries failed", "project", project, "error", err)
		return 0
	}
	return int(n)
}

// FirstActivity returns the earliest entry timestamp of project.
func (s *Store) FirstActivity(ctx context.Context, project string) (*time.Time, error) {
	return s.activity(ctx, project, qdrant.Direction_Asc)
}

// LastActivity returns the latest entry timestamp of project.
func (s *Store) LastActivity(ctx context.Context, project string) (*time.Time, error) {
	return s.activity(ctx, project, qdrant.Direction_Desc)
}

func (s *Store) activity(ctx context.Context, project string, dir qdrant.Direction) (*time.Time, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         projectFilter(project),
		Limit:          qdrant.PtrOf(uint32(1)),
		OrderBy: &qdrant.OrderBy{
			Key:       fieldCreatedAt,
			Direction: dir.Enum(),
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scrolling points: %v", memory.ErrPersistence, err)
	}
	if len(points) == 0 {
		return nil, nil
	}

	t := entryFromPayload(points[0].GetId(), points[0].GetPayload()).CreatedAt
	return &t, nil
}

// Close closes the gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func projectFilter(project string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(fieldProject, project),
		},
	}
}

func entryFromPayload(id *qdrant.PointId, payload map[string]*qdrant.Value) memory.Entry {
	e := memory.Entry{
		ID:        id.GetUuid(),
		Project:   payload[fieldProject].GetStringValue(),
		Role:      payload[fieldRole].GetStringValue(),
		Content:   payload[fieldContent].GetStringValue(),
		CreatedAt: time.Unix(0, payload[fieldCreatedAt].GetIntegerValue()).UTC(),
	}
	if e.ID == "" {
		e.ID = strconv.FormatUint(id.GetNum(), 10)
	}
	return e
}

var _ memory.Store = (*Store)(nil)
