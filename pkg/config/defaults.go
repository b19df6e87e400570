package config

const (
	defaultListen          = ":8000"
	defaultClientAPITarget = "http://localhost:8000"

	defaultEmbeddingProvider   = "openai"
	defaultEmbeddingTarget     = "https://api.openai.com/v1/"
	defaultEmbeddingModel      = "text-embedding-3-small"
	defaultEmbeddingDimensions = 1536

	defaultMemoryProvider   = "postgres"
	defaultMemoryCollection = "project_memory"
	defaultMemoryThreshold  = 0.5

	defaultUsageProvider = "postgres"

	defaultEventstreamProvider = "none"
	defaultEventstreamTopic    = "raggadon.usage"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Memory: MemoryConfig{
			Provider:   defaultMemoryProvider,
			Collection: defaultMemoryCollection,
			Threshold:  defaultMemoryThreshold,
		},
		Usage: UsageConfig{
			Provider: defaultUsageProvider,
		},
		Eventstream: EventstreamConfig{
			Provider: defaultEventstreamProvider,
			Topic:    defaultEventstreamTopic,
		},
	}
}
