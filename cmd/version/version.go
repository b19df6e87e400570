// Package versioncmder provides the version command.
package versioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/raggadon/pkg/utils"
)

type versionCommander struct{}

func NewVersionCmd() *cobra.Command {
	cmder := &versionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print raggadon build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	return cmd
}

func (c *versionCommander) run(cmd *cobra.Command) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "raggadon %s\nsha: %s\nbuilt at: %s\n", utils.Version, utils.Sha, utils.Buildtime)
	return err
}
