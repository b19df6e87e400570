// Package configcmder provides the config command for managing persistent
// raggadon configuration stored in the .raggadon/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent raggadon configuration.

Configuration is stored as config.toml in the .raggadon/ directory and provides
default values for the server and CLI. Flags and RAGGADON_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  server.listen, client.api_target,
  embedding.provider, embedding.model, embedding.dimensions,
  memory.provider, memory.target, memory.threshold,
  usage.provider, usage.breaker, eventstream.brokers

Use subcommands to get, set, or list configuration values:
  raggadon config set <key> <value>    Set a configuration value
  raggadon config get <key>            Get a configuration value
  raggadon config list                 List all configuration values

Examples:
  raggadon config set embedding.provider ollama
  raggadon config get memory.provider
  raggadon config list`

const configShortDesc string = "Manage persistent raggadon configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
