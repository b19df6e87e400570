// Package pricing holds per-model embedding prices and the cost arithmetic
// shared by the service and the usage ledger.
package pricing

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"os"
	"strings"
)

// DefaultUnitPrice is the USD price per 1K tokens of text-embedding-3-small.
const DefaultUnitPrice = 0.00002

// Table maps an embedding model name to its USD price per 1K tokens.
type Table map[string]float64

// DefaultTable returns published prices for the supported embedding models.
// Local Ollama models are free.
func DefaultTable() Table {
	return Table{
		"text-embedding-3-small": 0.00002,
		"text-embedding-3-large": 0.00013,
		"text-embedding-ada-002": 0.0001,
		"nomic-embed-text":       0,
		"mxbai-embed-large":      0,
		"all-minilm":             0,
		"embeddinggemma":         0,
	}
}

// Load returns DefaultTable with overrides from a JSON file of
// {"model": pricePer1K} entries merged on top.
func Load(path string) (Table, error) {
	table := DefaultTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}

	var overrides map[string]float64
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse pricing file: %w", err)
	}

	maps.Copy(table, overrides)

	return table, nil
}

// UnitPrice returns the per-1K price for model. Ollama-style ":tag" suffixes
// are ignored. Unknown models fall back to DefaultUnitPrice.
func (t Table) UnitPrice(model string) float64 {
	normalized := strings.ToLower(strings.TrimSpace(model))
	if idx := strings.Index(normalized, ":"); idx != -1 {
		normalized = normalized[:idx]
	}

	if price, ok := t[normalized]; ok {
		return price
	}
	if price, ok := t[model]; ok {
		return price
	}
	return DefaultUnitPrice
}

// Cost returns tokens / 1000 * unitPrice.
func Cost(tokens int, unitPrice float64) float64 {
	return float64(tokens) / 1000.0 * unitPrice
}

// Round6 rounds a USD figure to six decimals for display.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
