// Package modecmder provides the mode command for choosing how the CLI
// reports memory activity.
package modecmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/raggadon/pkg/cliui"
	"github.com/papercomputeco/raggadon/pkg/dotdir"
)

const modeLongDesc string = `Show or change the memory mode.

  active   report every save and search (default)
  silent   save and search without decorative output
  ask      confirm before every save

The mode is stored in the .raggadon/ directory. The retired "verbose" mode is
read as "active".

Examples:
  raggadon mode
  raggadon mode silent
  raggadon mode show`

const modeShortDesc string = "Show or change the memory mode"

func NewModeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "mode [active|silent|ask|show]",
		Short:     modeShortDesc,
		Long:      modeLongDesc,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"active", "silent", "ask", "show"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			arg := "show"
			if len(args) == 1 {
				arg = args[0]
			}
			return runMode(cmd.OutOrStdout(), arg, configDir)
		},
	}

	return cmd
}

func runMode(out io.Writer, arg, configDir string) error {
	m := dotdir.NewManager()

	if arg == "show" {
		mode, err := m.LoadMode(configDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("Mode:"), cliui.ValueStyle.Render(string(mode)))
		return nil
	}

	mode, err := dotdir.ParseMode(arg)
	if err != nil {
		return err
	}

	if err := m.SaveMode(mode, configDir); err != nil {
		return err
	}

	cliui.Done(out, "Mode set to %s", cliui.ValueStyle.Render(string(mode)))
	return nil
}
