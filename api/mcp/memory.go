package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/raggadon/pkg/service"
)

var (
	saveToolName    = "memory_save"
	saveDescription = "Save a piece of project knowledge (a decision, a fact, a code snippet) to long-term memory so later sessions can find it with memory_search."

	statsToolName    = "project_stats"
	statsDescription = "Show how many memories a project holds, its activity window and its embedding token usage for the current month."
)

// SaveInput represents the input arguments for the memory_save tool.
type SaveInput struct {
	Project string `json:"project" jsonschema:"the project the memory belongs to"`
	Role    string `json:"role,omitempty" jsonschema:"who produced the content, e.g. user or assistant (default: user)"`
	Content string `json:"content" jsonschema:"the text to remember"`
}

// SaveOutput represents the output of the memory_save tool.
type SaveOutput struct {
	ID               string  `json:"id"`
	Message          string  `json:"message"`
	TokensUsed       int     `json:"tokens_used"`
	MonthlyUsage     int     `json:"monthly_project_usage"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// StatsInput represents the input arguments for the project_stats tool.
type StatsInput struct {
	Project string `json:"project" jsonschema:"the project to report on"`
}

// StatsOutput represents the output of the project_stats tool. Activity
// timestamps are RFC 3339 and empty for a project without entries.
type StatsOutput struct {
	Project                 string  `json:"project"`
	TotalMemories           int     `json:"total_memories"`
	MonthlyTokens           int     `json:"monthly_tokens"`
	EstimatedMonthlyCostUSD float64 `json:"estimated_monthly_cost_usd"`
	Model                   string  `json:"model"`
	FirstActivity           string  `json:"first_activity,omitempty"`
	LastActivity            string  `json:"last_activity,omitempty"`
}

// handleSave processes a memory_save request.
func (s *Server) handleSave(ctx context.Context, _ *mcp.CallToolRequest, input SaveInput) (*mcp.CallToolResult, SaveOutput, error) {
	res, err := s.config.Service.Save(ctx, service.SaveRequest{
		Project: input.Project,
		Role:    input.Role,
		Content: input.Content,
	})
	if err != nil {
		s.config.Logger.Warn("MCP save failed", "project", input.Project, "error", err)
		return toolError("Save failed: %v", err), SaveOutput{}, nil
	}

	output := SaveOutput{
		Message:          res.Message,
		TokensUsed:       res.TokensUsed,
		MonthlyUsage:     res.MonthlyUsage,
		EstimatedCostUSD: res.EstimatedCostUSD,
	}
	if res.Entry != nil {
		output.ID = res.Entry.ID
	}

	return jsonResult(output), output, nil
}

// handleStats processes a project_stats request.
func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, input StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	res, err := s.config.Service.Stats(ctx, input.Project)
	if err != nil {
		s.config.Logger.Warn("MCP stats failed", "project", input.Project, "error", err)
		return toolError("Stats failed: %v", err), StatsOutput{}, nil
	}

	output := StatsOutput{
		Project:                 res.Project,
		TotalMemories:           res.TotalMemories,
		MonthlyTokens:           res.MonthlyTokens,
		EstimatedMonthlyCostUSD: res.EstimatedMonthlyCostUSD,
		Model:                   res.Model,
		FirstActivity:           formatTime(res.FirstActivity),
		LastActivity:            formatTime(res.LastActivity),
	}

	return jsonResult(output), output, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
