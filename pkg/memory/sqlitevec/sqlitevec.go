// Package sqlitevec provides a SQLite memory store ranked with sqlite-vec's
// cosine distance function.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/raggadon/pkg/memory"
)

// Config holds configuration for the SQLite memory store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the vector length every entry must have.
	Dimensions uint
}

// Store implements memory.Store using SQLite with sqlite-vec.
type Store struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger
}

// NewStore opens the database, checks that sqlite-vec is loaded and creates
// the project_memory table.
func NewStore(c Config, logger *slog.Logger) (*Store, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across queries
	// and serializes writers.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS project_memory (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating project_memory table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS project_memory_project_idx ON project_memory (project, created_at)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating project index: %w", err)
	}

	logger.Info("sqlite-vec memory store initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Store{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Save inserts one entry.
func (s *Store) Save(ctx context.Context, project, role, content string, vector []float32) (*memory.Entry, error) {
	if err := memory.ValidateSave(project, vector); err != nil {
		return nil, err
	}
	if uint(len(vector)) != s.dimensions {
		return nil, fmt.Errorf("%w: embedding has %d dimensions, store expects %d",
			memory.ErrPersistence, len(vector), s.dimensions)
	}

	createdAt := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO project_memory (project, role, content, embedding, created_at) VALUES (?, ?, ?, ?, ?)`,
		project, role, content, serializeFloat32(vector), createdAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: inserting entry: %v", memory.ErrPersistence, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: reading inserted id: %v", memory.ErrPersistence, err)
	}

	return &memory.Entry{
		ID:        strconv.FormatInt(id, 10),
		Project:   project,
		Role:      role,
		Content:   content,
		Embedding: vector,
		CreatedAt: createdAt,
	}, nil
}

// Search scans the project's entries with vec_distance_cosine. Ties fall
// back to the autoincrement id, which follows insertion order.
func (s *Store) Search(ctx context.Context, q memory.Query) ([]memory.Match, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}
	if uint(len(q.Vector)) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			memory.ErrPersistence, len(q.Vector), s.dimensions)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, role, content, created_at, similarity
		FROM (
			SELECT id, project, role, content, created_at,
				1 - vec_distance_cosine(embedding, ?) AS similarity
			FROM project_memory
			WHERE project = ?
		)
		WHERE similarity >= ?
		ORDER BY similarity DESC, id ASC
		LIMIT ?
	`, serializeFloat32(q.Vector), q.Project, q.Threshold, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: querying entries: %v", memory.ErrPersistence, err)
	}
	defer rows.Close()

	matches := make([]memory.Match, 0, q.Limit)
	for rows.Next() {
		var (
			m         memory.Match
			id        int64
			createdAt int64
		)
		if err := rows.Scan(&id, &m.Project, &m.Role, &m.Content, &createdAt, &m.Similarity); err != nil {
			return nil, fmt.Errorf("%w: scanning entry: %v", memory.ErrPersistence, err)
		}
		m.ID = strconv.FormatInt(id, 10)
		m.CreatedAt = time.Unix(0, createdAt).UTC()
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating entries: %v", memory.ErrPersistence, err)
	}

	s.logger.Debug("queried sqlite-vec", "project", q.Project, "results", len(matches))

	return matches, nil
}

// Count returns the number of entries in project.
func (s *Store) Count(ctx context.Context, project string) int {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM project_memory WHERE project = ?`, project,
	).Scan(&n)
	if err != nil {
		s.logger.Warn("counting memory entries failed", "project", project, "error", err)
		return 0
	}
	return n
}

// FirstActivity returns the earliest entry timestamp of project.
func (s *Store) FirstActivity(ctx context.Context, project string) (*time.Time, error) {
	return s.activity(ctx, `SELECT min(created_at) FROM project_memory WHERE project = ?`, project)
}

// LastActivity returns the latest entry timestamp of project.
func (s *Store) LastActivity(ctx context.Context, project string) (*time.Time, error) {
	return s.activity(ctx, `SELECT max(created_at) FROM project_memory WHERE project = ?`, project)
}

func (s *Store) activity(ctx context.Context, query, project string) (*time.Time, error) {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, project).Scan(&n); err != nil {
		return nil, fmt.Errorf("%w: reading activity: %v", memory.ErrPersistence, err)
	}
	if !n.Valid {
		return nil, nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t, nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ memory.Store = (*Store)(nil)
