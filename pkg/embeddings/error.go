package embeddings

import "errors"

var (
	// ErrInvalidInput is returned when the text to embed is blank.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbedding is returned when the provider call fails.
	ErrEmbedding = errors.New("embedding failed")
)
