// Package service orchestrates the memory operations over the embedding
// provider, the memory store and the usage ledger.
//
// Embedding and persistence failures are fatal to an operation. Ledger
// failures never are: Save and Search always return their primary result and
// fall back to approximate usage figures when accounting is unavailable.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/raggadon/pkg/embeddings"
	"github.com/papercomputeco/raggadon/pkg/eventstream"
	"github.com/papercomputeco/raggadon/pkg/memory"
	"github.com/papercomputeco/raggadon/pkg/pricing"
	"github.com/papercomputeco/raggadon/pkg/usage"
)

const (
	// DefaultThreshold is the minimum cosine similarity of a search match.
	DefaultThreshold = 0.5

	// DefaultRole tags content saved without a role.
	DefaultRole = "user"
)

// Config holds the collaborators of a Service. Embedder, Store and Logger are
// required; Ledger and Publisher may be nil.
type Config struct {
	Embedder  embeddings.Provider
	Store     memory.Store
	Ledger    usage.Ledger
	Publisher eventstream.Publisher

	// Pricing resolves the embedding model's price. Defaults to
	// pricing.DefaultTable.
	Pricing pricing.Table

	// Threshold is the minimum similarity of search matches. Zero selects
	// DefaultThreshold.
	Threshold float64

	// SearchLimit caps search results when a request sets no limit. Zero
	// selects memory.DefaultLimit.
	SearchLimit int

	Logger *slog.Logger
}

// Service implements Save, Search and Stats. It holds no per-request state
// and is safe for concurrent use.
type Service struct {
	embedder  embeddings.Provider
	store     memory.Store
	ledger    usage.Ledger
	publisher eventstream.Publisher
	unitPrice float64
	threshold float64
	limit     int
	logger    *slog.Logger
}

// New validates c and builds a Service.
func New(c Config) (*Service, error) {
	switch {
	case c.Embedder == nil:
		return nil, errors.New("embedding provider is required")
	case c.Store == nil:
		return nil, errors.New("memory store is required")
	case c.Logger == nil:
		return nil, errors.New("logger is required")
	}

	if c.Pricing == nil {
		c.Pricing = pricing.DefaultTable()
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Threshold < -1 || c.Threshold > 1 {
		return nil, fmt.Errorf("similarity threshold %v outside [-1, 1]", c.Threshold)
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = memory.DefaultLimit
	}

	return &Service{
		embedder:  c.Embedder,
		store:     c.Store,
		ledger:    c.Ledger,
		publisher: c.Publisher,
		unitPrice: c.Pricing.UnitPrice(c.Embedder.Model()),
		threshold: c.Threshold,
		limit:     c.SearchLimit,
		logger:    c.Logger,
	}, nil
}

// Model returns the embedding model name.
func (s *Service) Model() string {
	return s.embedder.Model()
}

// UnitPrice returns the USD price per 1K tokens of the embedding model.
func (s *Service) UnitPrice() float64 {
	return s.unitPrice
}

// Threshold returns the similarity threshold applied to searches.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Save embeds and stores one piece of content.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	if err := validateProject(req.Project); err != nil {
		return nil, stepError(StepValidate, err)
	}
	if embeddings.IsBlank(req.Content) {
		return nil, stepError(StepValidate, fmt.Errorf("%w: content is blank", embeddings.ErrInvalidInput))
	}
	role := req.Role
	if strings.TrimSpace(role) == "" {
		role = DefaultRole
	}

	emb, err := s.embedder.Embed(ctx, req.Content)
	if err != nil {
		s.logger.Error("embedding failed", "step", StepEmbed, "project", req.Project, "error", err)
		return nil, stepError(StepEmbed, err)
	}

	entry, err := s.store.Save(ctx, req.Project, role, req.Content, emb.Vector)
	if err != nil {
		s.logger.Error("saving entry failed", "step", StepPersist, "project", req.Project, "error", err)
		return nil, stepError(StepPersist, err)
	}

	figures := s.trackUsage(ctx, req.Project, usage.TypeSave, emb.Tokens)

	s.logger.Info("content saved",
		"project", req.Project,
		"entry_id", entry.ID,
		"tokens", emb.Tokens,
	)

	return &SaveResult{
		Success:          true,
		Message:          fmt.Sprintf("content saved for project '%s'", req.Project),
		Entry:            entry,
		TokensUsed:       emb.Tokens,
		MonthlyUsage:     figures.monthly,
		EstimatedCostUSD: figures.cost,
	}, nil
}

// SaveBatch embeds every non-blank content in one provider call and stores
// each one. The batch is accounted as a single save with the provider's
// aggregate token figure. Entries stored before a persistence failure stay
// stored.
func (s *Service) SaveBatch(ctx context.Context, req SaveBatchRequest) (*SaveBatchResult, error) {
	if err := validateProject(req.Project); err != nil {
		return nil, stepError(StepValidate, err)
	}
	if len(req.Contents) == 0 || allBlank(req.Contents) {
		return nil, stepError(StepValidate, fmt.Errorf("%w: every content is blank", embeddings.ErrInvalidInput))
	}
	role := req.Role
	if strings.TrimSpace(role) == "" {
		role = DefaultRole
	}

	batch, err := s.embedder.EmbedBatch(ctx, req.Contents)
	if err != nil {
		s.logger.Error("batch embedding failed", "step", StepEmbed, "project", req.Project, "error", err)
		return nil, stepError(StepEmbed, err)
	}

	saved := make([]SavedItem, 0, len(batch.Items))
	for _, item := range batch.Items {
		entry, err := s.store.Save(ctx, req.Project, role, req.Contents[item.Index], item.Vector)
		if err != nil {
			s.logger.Error("saving batch entry failed",
				"step", StepPersist,
				"project", req.Project,
				"index", item.Index,
				"saved", len(saved),
				"error", err,
			)
			return nil, stepError(StepPersist, err)
		}
		saved = append(saved, SavedItem{Index: item.Index, Entry: entry})
	}

	figures := s.trackUsage(ctx, req.Project, usage.TypeSave, batch.Tokens)

	s.logger.Info("batch saved",
		"project", req.Project,
		"entries", len(saved),
		"skipped", len(req.Contents)-len(saved),
		"tokens", batch.Tokens,
	)

	return &SaveBatchResult{
		Success:          true,
		Message:          fmt.Sprintf("%d entries saved for project '%s'", len(saved), req.Project),
		Items:            saved,
		Skipped:          len(req.Contents) - len(saved),
		TokensUsed:       batch.Tokens,
		MonthlyUsage:     figures.monthly,
		EstimatedCostUSD: figures.cost,
	}, nil
}

// Search returns the stored entries of a project most similar to the query.
// No match is an empty result, not an error.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if err := validateProject(req.Project); err != nil {
		return nil, stepError(StepValidate, err)
	}
	if embeddings.IsBlank(req.Query) {
		return nil, stepError(StepValidate, fmt.Errorf("%w: query is blank", embeddings.ErrInvalidInput))
	}
	if req.Limit < 0 {
		return nil, stepError(StepValidate, fmt.Errorf("%w: negative limit %d", memory.ErrInvalidInput, req.Limit))
	}
	limit := req.Limit
	if limit == 0 {
		limit = s.limit
	}

	emb, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		s.logger.Error("embedding failed", "step", StepEmbed, "project", req.Project, "error", err)
		return nil, stepError(StepEmbed, err)
	}

	matches, err := s.store.Search(ctx, memory.Query{
		Project:   req.Project,
		Vector:    emb.Vector,
		Limit:     limit,
		Threshold: s.threshold,
	})
	if err != nil {
		s.logger.Error("searching entries failed", "step", StepSearch, "project", req.Project, "error", err)
		return nil, stepError(StepSearch, err)
	}
	if matches == nil {
		matches = []memory.Match{}
	}

	figures := s.trackUsage(ctx, req.Project, usage.TypeSearch, emb.Tokens)

	s.logger.Info("search completed",
		"project", req.Project,
		"results", len(matches),
		"tokens", emb.Tokens,
	)

	return &SearchResult{
		Results:          matches,
		TokensUsed:       emb.Tokens,
		MonthlyUsage:     figures.monthly,
		EstimatedCostUSD: figures.cost,
	}, nil
}

// Stats combines the store's view of a project with its monthly usage.
// Ledger failures zero the usage fields; only store failures are returned.
func (s *Service) Stats(ctx context.Context, project string) (*StatsResult, error) {
	if err := validateProject(project); err != nil {
		return nil, stepError(StepValidate, err)
	}

	first, err := s.store.FirstActivity(ctx, project)
	if err != nil {
		s.logger.Error("reading first activity failed", "step", StepSearch, "project", project, "error", err)
		return nil, stepError(StepSearch, err)
	}
	last, err := s.store.LastActivity(ctx, project)
	if err != nil {
		s.logger.Error("reading last activity failed", "step", StepSearch, "project", project, "error", err)
		return nil, stepError(StepSearch, err)
	}

	result := &StatsResult{
		Project:          project,
		TotalMemories:    s.store.Count(ctx, project),
		RecentActivities: []usage.Activity{},
		CostPer1KTokens:  s.unitPrice,
		Model:            s.embedder.Model(),
		FirstActivity:    first,
		LastActivity:     last,
	}

	if s.ledger == nil {
		return result, nil
	}

	result.MonthlyTokens = s.ledger.MonthlyTokens(ctx, project)
	result.EstimatedMonthlyCostUSD = pricing.Round6(pricing.Cost(result.MonthlyTokens, s.unitPrice))

	recent, err := s.ledger.RecentActivities(ctx, project, usage.DefaultRecentLimit)
	if err != nil {
		s.logger.Warn("reading recent activities failed", "project", project, "error", err)
		return result, nil
	}
	result.RecentActivities = recent

	return result, nil
}

// ProjectUsage returns the ledger's statistics for project. Unlike Save and
// Search, accounting is the primary result here, so ledger failures are
// returned.
func (s *Service) ProjectUsage(ctx context.Context, project string) (*usage.ProjectStats, error) {
	if err := validateProject(project); err != nil {
		return nil, stepError(StepValidate, err)
	}
	if s.ledger == nil {
		return nil, stepError(StepLedger, fmt.Errorf("%w: no ledger configured", usage.ErrLedgerUnavailable))
	}

	stats, err := s.ledger.ProjectStats(ctx, project)
	if err != nil {
		return nil, stepError(StepLedger, err)
	}
	return stats, nil
}

// Usage returns the ledger's overview across all projects.
func (s *Service) Usage(ctx context.Context) (*usage.Overview, error) {
	if s.ledger == nil {
		return nil, stepError(StepLedger, fmt.Errorf("%w: no ledger configured", usage.ErrLedgerUnavailable))
	}

	overview, err := s.ledger.AllProjectsUsage(ctx)
	if err != nil {
		return nil, stepError(StepLedger, err)
	}
	return overview, nil
}

func validateProject(project string) error {
	if strings.TrimSpace(project) == "" {
		return fmt.Errorf("%w: project is required", memory.ErrInvalidInput)
	}
	return nil
}

func allBlank(texts []string) bool {
	for _, t := range texts {
		if !embeddings.IsBlank(t) {
			return false
		}
	}
	return true
}
