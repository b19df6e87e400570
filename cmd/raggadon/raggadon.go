// Package raggadoncmder is the root raggadon command.
package raggadoncmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/raggadon/cmd/raggadon/config"
	modecmder "github.com/papercomputeco/raggadon/cmd/raggadon/mode"
	savecmder "github.com/papercomputeco/raggadon/cmd/raggadon/save"
	searchcmder "github.com/papercomputeco/raggadon/cmd/raggadon/search"
	servecmder "github.com/papercomputeco/raggadon/cmd/raggadon/serve"
	statuscmder "github.com/papercomputeco/raggadon/cmd/raggadon/status"
	versioncmder "github.com/papercomputeco/raggadon/cmd/version"
)

const raggadonLongDesc string = `Raggadon is project-scoped semantic memory for your agents.

Run the server, then save and search memories from any project directory:
  raggadon serve                 Run the API and MCP server
  raggadon save "<content>"      Remember something for this project
  raggadon search "<query>"      Recall the most similar memories
  raggadon status                Show memory and token usage for this project`

const raggadonShortDesc string = "Raggadon - project memory"

func NewRaggadonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "raggadon",
		Short:         raggadonShortDesc,
		Long:          raggadonLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .raggadon config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(savecmder.NewSaveCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(modecmder.NewModeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
