package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent raggadon configuration stored as config.toml
// in the .raggadon/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Server      ServerConfig      `toml:"server"`
	Client      ClientConfig      `toml:"client"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Memory      MemoryConfig      `toml:"memory"`
	Usage       UsageConfig       `toml:"usage"`
	Eventstream EventstreamConfig `toml:"eventstream"`
	Log         LogConfig         `toml:"log"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// raggadon server (save, search, status). APITarget is a full URL.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// MemoryConfig holds vector store settings for project memory.
type MemoryConfig struct {
	Provider   string  `toml:"provider,omitempty"`
	Target     string  `toml:"target,omitempty"`
	APIKey     string  `toml:"api_key,omitempty"`
	Collection string  `toml:"collection,omitempty"`
	Threshold  float64 `toml:"threshold,omitempty"`
}

// UsageConfig holds usage ledger settings. An empty Target borrows
// memory.target when both sides use the same provider.
type UsageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	Target      string `toml:"target,omitempty"`
	Breaker     bool   `toml:"breaker,omitempty"`
	PricingFile string `toml:"pricing_file,omitempty"`
}

// EventstreamConfig holds usage event publishing settings.
type EventstreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// LogConfig holds server log output settings.
type LogConfig struct {
	JSON   bool `toml:"json,omitempty"`
	Pretty bool `toml:"pretty,omitempty"`

	// File, when set, mirrors server logs as JSON lines into this path.
	File string `toml:"file,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen":     stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.api_key":  stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},

	"memory.provider":   stringKey(func(c *Config) *string { return &c.Memory.Provider }),
	"memory.target":     stringKey(func(c *Config) *string { return &c.Memory.Target }),
	"memory.api_key":    stringKey(func(c *Config) *string { return &c.Memory.APIKey }),
	"memory.collection": stringKey(func(c *Config) *string { return &c.Memory.Collection }),
	"memory.threshold": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Memory.Threshold, 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for memory.threshold: %w", err)
			}
			if f < -1 || f > 1 {
				return fmt.Errorf("invalid value for memory.threshold: %v is outside [-1, 1]", f)
			}
			c.Memory.Threshold = f
			return nil
		},
	},

	"usage.provider":     stringKey(func(c *Config) *string { return &c.Usage.Provider }),
	"usage.target":       stringKey(func(c *Config) *string { return &c.Usage.Target }),
	"usage.pricing_file": stringKey(func(c *Config) *string { return &c.Usage.PricingFile }),
	"usage.breaker":      boolKey("usage.breaker", func(c *Config) *bool { return &c.Usage.Breaker }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.Eventstream.Provider }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.Eventstream.Topic }),
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.Eventstream.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Eventstream.Brokers = splitList(v)
			return nil
		},
	},

	"log.json":   boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	"log.pretty": boolKey("log.pretty", func(c *Config) *bool { return &c.Log.Pretty }),
	"log.file":   stringKey(func(c *Config) *string { return &c.Log.File }),
}

// splitList parses a comma separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
