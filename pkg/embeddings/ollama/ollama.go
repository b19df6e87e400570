// Package ollama implements pkg/embeddings' Provider for Ollama's embedding API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/raggadon/pkg/embeddings"
	"github.com/papercomputeco/raggadon/pkg/embeddings/tokenizer"
	"github.com/papercomputeco/raggadon/pkg/utils"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultDimensions is the vector length of DefaultEmbeddingModel.
	DefaultDimensions = 768

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Provider wraps Ollama's embedding API.
type Provider struct {
	baseURL    string
	model      string
	dimensions uint
	httpClient *http.Client
	counter    *tokenizer.Counter
}

// ProviderConfig holds configuration for the Ollama provider.
type ProviderConfig struct {
	// BaseURL is the Ollama API URL (e.g., "http://localhost:11434").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the embedding model to use (e.g., "nomic-embed-text", "all-minilm").
	// Defaults to DefaultEmbeddingModel if empty.
	Model string

	// Dimensions is the vector length the model produces.
	// Defaults to DefaultDimensions if zero.
	Dimensions uint
}

// embedRequest is the request body for Ollama's embedding API.
type embedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

// embedResponse is the response from Ollama's embedding API.
type embedResponse struct {
	Embeddings      [][]float32 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count"`
}

// NewProvider creates a new provider using Ollama's embedding API.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}

	return &Provider{
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		counter: tokenizer.New(""),
	}, nil
}

// Embed converts text into a vector embedding.
func (p *Provider) Embed(ctx context.Context, text string) (*embeddings.Result, error) {
	if embeddings.IsBlank(text) {
		return nil, fmt.Errorf("%w: text is blank", embeddings.ErrInvalidInput)
	}

	input := embeddings.Normalize(text)
	resp, err := p.embed(ctx, input)
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", embeddings.ErrEmbedding)
	}

	return &embeddings.Result{
		Vector: resp.Embeddings[0],
		Tokens: p.tokens(resp, input),
		Model:  p.model,
	}, nil
}

// EmbedBatch embeds all non-blank texts in a single request.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) (*embeddings.BatchResult, error) {
	inputs, positions := embeddings.Prepare(texts)
	if len(inputs) == 0 {
		return &embeddings.BatchResult{Items: []embeddings.BatchItem{}, Model: p.model}, nil
	}

	resp, err := p.embed(ctx, inputs)
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			embeddings.ErrEmbedding, len(inputs), len(resp.Embeddings))
	}

	items := make([]embeddings.BatchItem, len(inputs))
	for i, vec := range resp.Embeddings {
		items[i] = embeddings.BatchItem{
			Vector: vec,
			Text:   inputs[i],
			Index:  positions[i],
		}
	}

	return &embeddings.BatchResult{
		Items:  items,
		Tokens: p.tokens(resp, inputs...),
		Model:  p.model,
	}, nil
}

func (p *Provider) embed(ctx context.Context, input any) (*embedResponse, error) {
	jsonBody, err := json.Marshal(embedRequest{
		Model: p.model,
		Input: input,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", embeddings.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", utils.UserAgent())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", embeddings.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", embeddings.ErrEmbedding, resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", embeddings.ErrEmbedding, err)
	}

	return &embedResp, nil
}

// tokens prefers the count Ollama reports and estimates locally otherwise.
func (p *Provider) tokens(resp *embedResponse, inputs ...string) int {
	if resp.PromptEvalCount > 0 {
		return resp.PromptEvalCount
	}
	return p.counter.Count(inputs...)
}

// Model returns the configured embedding model.
func (p *Provider) Model() string {
	return p.model
}

// Dimensions returns the configured vector length.
func (p *Provider) Dimensions() uint {
	return p.dimensions
}

// Close releases resources held by the provider.
func (p *Provider) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ embeddings.Provider = (*Provider)(nil)
