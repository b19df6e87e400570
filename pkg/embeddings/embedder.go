// Package embeddings converts text into fixed-length vectors and reports the
// tokens each call consumed.
package embeddings

import (
	"context"
	"strings"
)

// Provider turns text into embeddings. Implementations are safe for
// concurrent use and never retry a failed call.
type Provider interface {
	// Embed normalizes text and returns its vector and the tokens consumed.
	// Blank text fails with ErrInvalidInput.
	Embed(ctx context.Context, text string) (*Result, error)

	// EmbedBatch embeds every non-blank entry of texts in one provider call.
	// Blank entries are dropped before submission. Each returned item keeps
	// the position it had in texts.
	EmbedBatch(ctx context.Context, texts []string) (*BatchResult, error)

	// Model is the embedding model name used for pricing and reporting.
	Model() string

	// Dimensions is the length of the vectors this provider produces.
	Dimensions() uint

	// Close releases any resources held by the provider.
	Close() error
}

// Result is a single embedding.
type Result struct {
	Vector []float32
	Tokens int
	Model  string
}

// BatchItem is one embedded entry of a batch call.
type BatchItem struct {
	Vector []float32
	Text   string

	// Index is the entry's position in the slice passed to EmbedBatch.
	Index int
}

// BatchResult holds the items of a batch call. Tokens is the figure the
// provider reported for the whole call; it is not apportioned per item.
type BatchResult struct {
	Items  []BatchItem
	Tokens int
	Model  string
}

var lineBreaks = strings.NewReplacer("\n", " ", "\r", " ")

// Normalize trims text and replaces every newline and carriage return with
// a single space.
func Normalize(text string) string {
	return lineBreaks.Replace(strings.TrimSpace(text))
}

// IsBlank reports whether text has no content after trimming.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// Prepare normalizes the non-blank entries of texts, keeping their original
// positions. It is shared by provider batch implementations.
func Prepare(texts []string) (inputs []string, positions []int) {
	inputs = make([]string, 0, len(texts))
	positions = make([]int, 0, len(texts))
	for i, t := range texts {
		if IsBlank(t) {
			continue
		}
		inputs = append(inputs, Normalize(t))
		positions = append(positions, i)
	}
	return inputs, positions
}
