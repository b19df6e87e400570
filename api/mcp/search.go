package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/raggadon/pkg/service"
)

var (
	searchToolName    = "memory_search"
	searchDescription = "Search a project's long-term memory using semantic search. Returns the most similar saved entries, best match first."
)

// SearchInput represents the input arguments for the memory_search tool.
type SearchInput struct {
	Project string `json:"project" jsonschema:"the project to search"`
	Query   string `json:"query" jsonschema:"the search query text"`
	Limit   int    `json:"limit,omitempty" jsonschema:"number of results to return (default: 5)"`
}

// SearchHit is a single memory_search result.
type SearchHit struct {
	ID         string  `json:"id"`
	Role       string  `json:"role"`
	Content    string  `json:"content"`
	CreatedAt  string  `json:"created_at"`
	Similarity float64 `json:"similarity"`
}

// SearchOutput represents the output of the memory_search tool.
type SearchOutput struct {
	Project string      `json:"project"`
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
	Count   int         `json:"count"`
}

// handleSearch processes a memory_search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	s.config.Logger.Debug("MCP search request",
		"project", input.Project,
		"query", input.Query,
		"limit", input.Limit,
	)

	limit := input.Limit
	if limit < 0 {
		limit = 0
	}

	res, err := s.config.Service.Search(ctx, service.SearchRequest{
		Project: input.Project,
		Query:   input.Query,
		Limit:   limit,
	})
	if err != nil {
		s.config.Logger.Warn("MCP search failed", "project", input.Project, "error", err)
		return toolError("Search failed: %v", err), SearchOutput{}, nil
	}

	hits := make([]SearchHit, 0, len(res.Results))
	for _, m := range res.Results {
		hits = append(hits, SearchHit{
			ID:         m.ID,
			Role:       m.Role,
			Content:    m.Content,
			CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
			Similarity: m.Similarity,
		})
	}

	output := SearchOutput{
		Project: input.Project,
		Query:   input.Query,
		Results: hits,
		Count:   len(hits),
	}

	return jsonResult(output), output, nil
}
