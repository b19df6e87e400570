package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-target
// on "raggadon save", "raggadon search" and "raggadon status").
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddFloatFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen          = "listen"
	FlagAPITarget       = "api-target"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagMemoryProv      = "memory-provider"
	FlagMemoryTgt       = "memory-target"
	FlagThreshold       = "threshold"
	FlagUsageProv       = "usage-provider"
	FlagUsageTgt        = "usage-target"
	FlagEventstreamProv = "eventstream-provider"
)

// Registry is the FlagSet shared by every raggadon command.
var Registry = FlagSet{
	FlagListen:          {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the API server to listen on"},
	FlagAPITarget:       {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "Raggadon API server URL"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (openai, ollama)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider base URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagMemoryProv:      {Name: "memory-provider", ViperKey: "memory.provider", Description: "Memory store (postgres, sqlite, qdrant, memory)"},
	FlagMemoryTgt:       {Name: "memory-target", ViperKey: "memory.target", Description: "Memory store connection string, path or address"},
	FlagThreshold:       {Name: "threshold", ViperKey: "memory.threshold", Description: "Minimum cosine similarity for search matches"},
	FlagUsageProv:       {Name: "usage-provider", ViperKey: "usage.provider", Description: "Usage ledger (postgres, sqlite, memory, none)"},
	FlagUsageTgt:        {Name: "usage-target", ViperKey: "usage.target", Description: "Usage ledger connection string or path"},
	FlagEventstreamProv: {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Usage event publisher (none, kafka)"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFloatFlag registers a float64 flag on cmd from the given FlagSet.
func AddFloatFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *float64) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetFloat64(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper instance holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

// InitCommandViper runs InitViper against the command's --config-dir flag
// and binds the given registry flags of cmd on top.
func InitCommandViper(cmd *cobra.Command, registryKeys ...string) (*viper.Viper, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	BindRegisteredFlags(v, cmd, Registry, registryKeys)
	return v, nil
}
