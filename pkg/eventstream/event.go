package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeUsageRecorded is emitted after an embedding call was accounted.
	EventTypeUsageRecorded = "raggadon.usage.recorded"
)

// UsageRecordedEvent is a transport-neutral event payload for the tokens one
// Save or Search consumed.
type UsageRecordedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	Project   string `json:"project"`
	UsageType string `json:"usage_type"`
	Model     string `json:"model"`
	Tokens    int    `json:"tokens"`

	// MonthlyTokens is the project's monthly figure reported to the caller.
	MonthlyTokens    int     `json:"monthly_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`

	// Fallback is set when the ledger was unavailable and MonthlyTokens is
	// the call's own token count.
	Fallback bool `json:"fallback"`
}

// NewUsageRecordedEvent stamps a new event with an ID and emission time.
func NewUsageRecordedEvent(project, usageType, model string, tokens, monthlyTokens int, cost float64, fallback bool) *UsageRecordedEvent {
	return &UsageRecordedEvent{
		SchemaVersion:    SchemaVersionV1,
		EventType:        EventTypeUsageRecorded,
		EventID:          uuid.NewString(),
		EmittedAt:        time.Now().UTC(),
		Project:          project,
		UsageType:        usageType,
		Model:            model,
		Tokens:           tokens,
		MonthlyTokens:    monthlyTokens,
		EstimatedCostUSD: cost,
		Fallback:         fallback,
	}
}
