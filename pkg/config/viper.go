package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/raggadon/pkg/dotdir"
)

// envAliases are environment variables honored alongside the RAGGADON_ ones.
// The prefixed name always wins when both are set.
var envAliases = map[string][]string{
	"embedding.api_key": {"OPENAI_API_KEY"},
	"memory.target":     {"DATABASE_URL"},
	"usage.target":      {"DATABASE_URL"},
	"client.api_target": {"RAGGADON_URL"},
}

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the RAGGADON_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (RAGGADON_SERVER_LISTEN, OPENAI_API_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("RAGGADON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		envs := append([]string{envName(key)}, aliases...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	return v, nil
}

// FromViper materializes the resolved settings in v into a Config.
func FromViper(v *viper.Viper) *Config {
	var brokers []string
	for _, b := range v.GetStringSlice("eventstream.brokers") {
		brokers = append(brokers, splitList(b)...)
	}

	return &Config{
		Version: v.GetInt("version"),
		Server: ServerConfig{
			Listen: v.GetString("server.listen"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
			APIKey:     v.GetString("embedding.api_key"),
		},
		Memory: MemoryConfig{
			Provider:   v.GetString("memory.provider"),
			Target:     v.GetString("memory.target"),
			APIKey:     v.GetString("memory.api_key"),
			Collection: v.GetString("memory.collection"),
			Threshold:  v.GetFloat64("memory.threshold"),
		},
		Usage: UsageConfig{
			Provider:    v.GetString("usage.provider"),
			Target:      v.GetString("usage.target"),
			Breaker:     v.GetBool("usage.breaker"),
			PricingFile: v.GetString("usage.pricing_file"),
		},
		Eventstream: EventstreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  brokers,
			Topic:    v.GetString("eventstream.topic"),
		},
		Log: LogConfig{
			JSON:   v.GetBool("log.json"),
			Pretty: v.GetBool("log.pretty"),
			File:   v.GetString("log.file"),
		},
	}
}

func envName(key string) string {
	return "RAGGADON_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("client.api_target", d.Client.APITarget)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)

	v.SetDefault("memory.provider", d.Memory.Provider)
	v.SetDefault("memory.target", d.Memory.Target)
	v.SetDefault("memory.api_key", d.Memory.APIKey)
	v.SetDefault("memory.collection", d.Memory.Collection)
	v.SetDefault("memory.threshold", d.Memory.Threshold)

	v.SetDefault("usage.provider", d.Usage.Provider)
	v.SetDefault("usage.target", d.Usage.Target)
	v.SetDefault("usage.breaker", d.Usage.Breaker)
	v.SetDefault("usage.pricing_file", d.Usage.PricingFile)

	v.SetDefault("eventstream.provider", d.Eventstream.Provider)
	v.SetDefault("eventstream.brokers", d.Eventstream.Brokers)
	v.SetDefault("eventstream.topic", d.Eventstream.Topic)

	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.file", d.Log.File)
}
