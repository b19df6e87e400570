package testutils

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/papercomputeco/raggadon/pkg/embeddings"
)

// MockDimensions is the vector length produced by MockProvider.
const MockDimensions = 8

// MockProvider is a test embeddings.Provider returning predictable vectors.
// Texts without an entry in Embeddings get a hashed bag-of-words vector, so
// equal texts always embed equally.
type MockProvider struct {
	mu sync.Mutex

	// Embeddings maps a normalized text to the vector returned for it.
	Embeddings map[string][]float32

	// TokensPerCall overrides the token figure of every call when positive.
	// Otherwise each call reports one token per word.
	TokensPerCall int

	// FailEmbed causes Embed and EmbedBatch to fail with ErrEmbedding.
	FailEmbed bool

	EmbedCalls int
	BatchCalls int
}

var _ embeddings.Provider = (*MockProvider)(nil)

func NewMockProvider() *MockProvider {
	return &MockProvider{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockProvider) Embed(_ context.Context, text string) (*embeddings.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EmbedCalls++
	if embeddings.IsBlank(text) {
		return nil, fmt.Errorf("%w: text is blank", embeddings.ErrInvalidInput)
	}
	if m.FailEmbed {
		return nil, fmt.Errorf("%w: mock embedding failure", embeddings.ErrEmbedding)
	}

	normalized := embeddings.Normalize(text)
	return &embeddings.Result{
		Vector: m.vector(normalized),
		Tokens: m.tokens(normalized),
		Model:  m.Model(),
	}, nil
}

func (m *MockProvider) EmbedBatch(_ context.Context, texts []string) (*embeddings.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.BatchCalls++
	inputs, positions := embeddings.Prepare(texts)
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: every text is blank", embeddings.ErrInvalidInput)
	}
	if m.FailEmbed {
		return nil, fmt.Errorf("%w: mock embedding failure", embeddings.ErrEmbedding)
	}

	result := &embeddings.BatchResult{Model: m.Model()}
	for i, in := range inputs {
		result.Items = append(result.Items, embeddings.BatchItem{
			Vector: m.vector(in),
			Text:   texts[positions[i]],
			Index:  positions[i],
		})
		result.Tokens += m.tokens(in)
	}
	if m.TokensPerCall > 0 {
		result.Tokens = m.TokensPerCall
	}
	return result, nil
}

func (m *MockProvider) Model() string {
	return "mock-embedding"
}

func (m *MockProvider) Dimensions() uint {
	return MockDimensions
}

func (m *MockProvider) Close() error {
	return nil
}

// Calls returns the number of Embed and EmbedBatch calls made so far.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EmbedCalls + m.BatchCalls
}

func (m *MockProvider) tokens(text string) int {
	if m.TokensPerCall > 0 {
		return m.TokensPerCall
	}
	return len(strings.Fields(text))
}

func (m *MockProvider) vector(text string) []float32 {
	if v, ok := m.Embeddings[text]; ok {
		return v
	}

	v := make([]float32, MockDimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		v[h.Sum32()%MockDimensions]++
	}
	return v
}
