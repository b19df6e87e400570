package service

import (
	"time"

	"github.com/papercomputeco/raggadon/pkg/memory"
	"github.com/papercomputeco/raggadon/pkg/usage"
)

// SaveRequest asks to store one piece of content.
type SaveRequest struct {
	Project string `json:"project"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SaveResult reports a stored entry with the tokens it consumed. When the
// ledger is unavailable MonthlyUsage is the call's own token count.
type SaveResult struct {
	Success          bool          `json:"success"`
	Message          string        `json:"message"`
	Entry            *memory.Entry `json:"entry,omitempty"`
	TokensUsed       int           `json:"tokens_used"`
	MonthlyUsage     int           `json:"monthly_project_usage"`
	EstimatedCostUSD float64       `json:"estimated_cost_usd"`
}

// SaveBatchRequest asks to store several contents under one role.
type SaveBatchRequest struct {
	Project  string   `json:"project"`
	Role     string   `json:"role"`
	Contents []string `json:"contents"`
}

// SavedItem pairs a stored entry with its position in the request.
type SavedItem struct {
	Index int           `json:"index"`
	Entry *memory.Entry `json:"entry"`
}

// SaveBatchResult reports the stored entries of a batch. Blank contents are
// skipped and absent from Items.
type SaveBatchResult struct {
	Success          bool        `json:"success"`
	Message          string      `json:"message"`
	Items            []SavedItem `json:"items"`
	Skipped          int         `json:"skipped"`
	TokensUsed       int         `json:"tokens_used"`
	MonthlyUsage     int         `json:"monthly_project_usage"`
	EstimatedCostUSD float64     `json:"estimated_cost_usd"`
}

// SearchRequest asks for the entries of a project most similar to Query.
// A zero Limit selects the service default.
type SearchRequest struct {
	Project string `json:"project"`
	Query   string `json:"query"`
	Limit   int    `json:"limit,omitempty"`
}

// SearchResult holds matches ordered by similarity descending.
type SearchResult struct {
	Results          []memory.Match `json:"results"`
	TokensUsed       int            `json:"tokens_used"`
	MonthlyUsage     int            `json:"monthly_project_usage"`
	EstimatedCostUSD float64        `json:"estimated_cost_usd"`
}

// StatsResult is the combined store and ledger view of a project.
type StatsResult struct {
	Project                 string           `json:"project"`
	TotalMemories           int              `json:"total_memories"`
	MonthlyTokens           int              `json:"monthly_tokens"`
	EstimatedMonthlyCostUSD float64          `json:"estimated_monthly_cost_usd"`
	RecentActivities        []usage.Activity `json:"recent_activities"`
	CostPer1KTokens         float64          `json:"cost_per_1k_tokens"`
	Model                   string           `json:"model"`
	FirstActivity           *time.Time       `json:"first_activity"`
	LastActivity            *time.Time       `json:"last_activity"`
}
