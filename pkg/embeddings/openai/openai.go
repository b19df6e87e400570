// Package openai implements pkg/embeddings' Provider for OpenAI's embeddings API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/papercomputeco/raggadon/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultDimensions is the vector length of DefaultEmbeddingModel.
	DefaultDimensions = 1536

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com/v1/"
)

// Provider wraps OpenAI's embeddings endpoint.
type Provider struct {
	client     openai.Client
	model      string
	dimensions uint
}

// ProviderConfig holds configuration for the OpenAI provider.
type ProviderConfig struct {
	// APIKey is the OpenAI API credential. Required.
	APIKey string

	// BaseURL overrides the API URL, e.g. for Azure or a local gateway.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model defaults to DefaultEmbeddingModel if empty.
	Model string

	// Dimensions defaults to DefaultDimensions if zero. Only text-embedding-3
	// models accept a requested dimension count.
	Dimensions uint

	// Timeout bounds each HTTP call. Defaults to 60s.
	Timeout time.Duration
}

// NewProvider creates a new OpenAI embedding provider.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	)

	return &Provider{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed converts text into a vector embedding.
func (p *Provider) Embed(ctx context.Context, text string) (*embeddings.Result, error) {
	if embeddings.IsBlank(text) {
		return nil, fmt.Errorf("%w: text is blank", embeddings.ErrInvalidInput)
	}

	resp, err := p.client.Embeddings.New(ctx, p.params(openai.EmbeddingNewParamsInputUnion{
		OfString: openai.String(embeddings.Normalize(text)),
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: openai request: %v", embeddings.ErrEmbedding, err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", embeddings.ErrEmbedding)
	}

	return &embeddings.Result{
		Vector: toFloat32(resp.Data[0].Embedding),
		Tokens: int(resp.Usage.TotalTokens),
		Model:  p.model,
	}, nil
}

// EmbedBatch embeds all non-blank texts in a single request.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) (*embeddings.BatchResult, error) {
	inputs, positions := embeddings.Prepare(texts)
	if len(inputs) == 0 {
		return &embeddings.BatchResult{Items: []embeddings.BatchItem{}, Model: p.model}, nil
	}

	resp, err := p.client.Embeddings.New(ctx, p.params(openai.EmbeddingNewParamsInputUnion{
		OfArrayOfStrings: inputs,
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: openai request: %v", embeddings.ErrEmbedding, err)
	}

	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			embeddings.ErrEmbedding, len(inputs), len(resp.Data))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	items := make([]embeddings.BatchItem, 0, len(data))
	for _, d := range data {
		if d.Index < 0 || int(d.Index) >= len(inputs) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", embeddings.ErrEmbedding, d.Index)
		}
		items = append(items, embeddings.BatchItem{
			Vector: toFloat32(d.Embedding),
			Text:   inputs[d.Index],
			Index:  positions[d.Index],
		})
	}

	return &embeddings.BatchResult{
		Items:  items,
		Tokens: int(resp.Usage.TotalTokens),
		Model:  p.model,
	}, nil
}

func (p *Provider) params(input openai.EmbeddingNewParamsInputUnion) openai.EmbeddingNewParams {
	params := openai.EmbeddingNewParams{
		Input:          input,
		Model:          openai.EmbeddingModel(p.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if strings.HasPrefix(p.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(p.dimensions))
	}
	return params
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
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

var _ embeddings.Provider = (*Provider)(nil)
