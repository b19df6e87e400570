// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/raggadon/pkg/embeddings"
	"github.com/papercomputeco/raggadon/pkg/embeddings/ollama"
	"github.com/papercomputeco/raggadon/pkg/embeddings/openai"
)

type NewProviderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   uint
	APIKey       string
}

func NewProvider(o *NewProviderOpts) (embeddings.Provider, error) {
	switch o.ProviderType {
	case "openai":
		return openai.NewProvider(openai.ProviderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case "ollama":
		return ollama.NewProvider(ollama.ProviderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
