package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/raggadon/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// ErrInvalidConfig is returned by Validate for settings the server cannot start with.
var ErrInvalidConfig = errors.New("invalid config")

// orderedKeys mirrors the TOML section layout for listing.
var orderedKeys = []string{
	"server.listen",
	"client.api_target",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.api_key",
	"memory.provider",
	"memory.target",
	"memory.api_key",
	"memory.collection",
	"memory.threshold",
	"usage.provider",
	"usage.target",
	"usage.breaker",
	"usage.pricing_file",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
	"log.json",
	"log.pretty",
	"log.file",
}

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	path, err := cfger.ddm.File(override, configFile)
	if err != nil {
		return nil, err
	}

	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns all supported configuration key names in section order.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .raggadon/ directory.
// If the file does not exist, returns NewDefaultConfig() so callers always receive
// a fully-populated Config. Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
// A threshold of exactly 0 is indistinguishable from unset in TOML and gets the default.
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}

	fill(&cfg.Server.Listen, d.Server.Listen)
	fill(&cfg.Client.APITarget, d.Client.APITarget)

	fill(&cfg.Embedding.Provider, d.Embedding.Provider)
	fill(&cfg.Embedding.Target, d.Embedding.Target)
	fill(&cfg.Embedding.Model, d.Embedding.Model)
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = d.Embedding.Dimensions
	}

	fill(&cfg.Memory.Provider, d.Memory.Provider)
	fill(&cfg.Memory.Collection, d.Memory.Collection)
	if cfg.Memory.Threshold == 0 {
		cfg.Memory.Threshold = d.Memory.Threshold
	}

	fill(&cfg.Usage.Provider, d.Usage.Provider)

	fill(&cfg.Eventstream.Provider, d.Eventstream.Provider)
	fill(&cfg.Eventstream.Topic, d.Eventstream.Topic)
}

// SaveConfig persists the configuration to config.toml in the target .raggadon/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// UsageTarget returns the usage ledger target, borrowing memory.target
// when the ledger shares the memory store's provider.
func (cfg *Config) UsageTarget() string {
	if cfg.Usage.Target != "" {
		return cfg.Usage.Target
	}
	if cfg.Usage.Provider == cfg.Memory.Provider {
		return cfg.Memory.Target
	}
	return ""
}

// Validate reports settings the server cannot start with.
func (cfg *Config) Validate() error {
	var errs []error

	switch cfg.Embedding.Provider {
	case "openai":
		if cfg.Embedding.APIKey == "" {
			errs = append(errs, errors.New("embedding.api_key is required for the openai provider (or set OPENAI_API_KEY)"))
		}
	case "ollama":
	default:
		errs = append(errs, fmt.Errorf("unsupported embedding.provider %q", cfg.Embedding.Provider))
	}

	switch cfg.Memory.Provider {
	case "postgres", "qdrant", "sqlite":
		if cfg.Memory.Target == "" {
			errs = append(errs, fmt.Errorf("memory.target is required for the %s provider", cfg.Memory.Provider))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported memory.provider %q", cfg.Memory.Provider))
	}

	if cfg.Memory.Threshold < -1 || cfg.Memory.Threshold > 1 {
		errs = append(errs, fmt.Errorf("memory.threshold %v is outside [-1, 1]", cfg.Memory.Threshold))
	}

	switch cfg.Usage.Provider {
	case "postgres", "sqlite":
		if cfg.UsageTarget() == "" {
			errs = append(errs, fmt.Errorf("usage.target is required for the %s provider", cfg.Usage.Provider))
		}
	case "memory", "none", "":
	default:
		errs = append(errs, fmt.Errorf("unsupported usage.provider %q", cfg.Usage.Provider))
	}

	switch cfg.Eventstream.Provider {
	case "kafka":
		if len(cfg.Eventstream.Brokers) == 0 {
			errs = append(errs, errors.New("eventstream.brokers is required for the kafka provider"))
		}
	case "none", "":
	default:
		errs = append(errs, fmt.Errorf("unsupported eventstream.provider %q", cfg.Eventstream.Provider))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "ollama", "local".
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		return cfg, nil

	case "ollama":
		cfg.Embedding = EmbeddingConfig{
			Provider:   "ollama",
			Target:     "http://localhost:11434",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		}
		return cfg, nil

	case "local":
		cfg.Embedding = EmbeddingConfig{
			Provider:   "ollama",
			Target:     "http://localhost:11434",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		}
		cfg.Memory.Provider = "sqlite"
		cfg.Memory.Target = "raggadon.sqlite"
		cfg.Usage.Provider = "sqlite"
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "ollama", "local"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
