// Package savecmder provides the save command for storing project memory.
package savecmder

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/raggadon/pkg/cliui"
	"github.com/papercomputeco/raggadon/pkg/client"
	"github.com/papercomputeco/raggadon/pkg/config"
	"github.com/papercomputeco/raggadon/pkg/dotdir"
	"github.com/papercomputeco/raggadon/pkg/service"
)

type saveCommander struct {
	content   string
	project   string
	role      string
	apiTarget string
	configDir string
	yes       bool
	timeout   time.Duration

	in  io.Reader
	out io.Writer
}

const saveLongDesc string = `Save content to the memory of the current project.

The project defaults to the name of the working directory. The content is
embedded and stored by a running raggadon server, and the tokens the call
consumed are reported alongside this month's project total.

The memory mode (see raggadon mode) controls the output: "active" reports
every save, "silent" prints nothing and "ask" confirms before saving.

Examples:
  raggadon save "The billing service retries webhooks three times"
  raggadon save "Use pnpm, not npm" --project web --role assistant
  raggadon save "Deploys go through ArgoCD" --yes`

const saveShortDesc string = "Save content to project memory"

func NewSaveCmd() *cobra.Command {
	cmder := &saveCommander{}

	cmd := &cobra.Command{
		Use:   "save <content>",
		Short: saveShortDesc,
		Long:  saveLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.InitCommandViper(cmd, config.FlagAPITarget)
			if err != nil {
				return err
			}
			cmder.apiTarget = v.GetString("client.api_target")
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.content = strings.Join(args, " ")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Registry, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.project, "project", "p", "", "Project name (default: current directory name)")
	cmd.Flags().StringVarP(&cmder.role, "role", "r", service.DefaultRole, "Role recorded with the content")
	cmd.Flags().BoolVarP(&cmder.yes, "yes", "y", false, "Skip the confirmation in ask mode")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 30*time.Second, "Request timeout")

	return cmd
}

func (c *saveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	project, err := client.ProjectName(c.project)
	if err != nil {
		return err
	}

	mode, err := dotdir.NewManager().LoadMode(c.configDir)
	if err != nil {
		return fmt.Errorf("loading mode: %w", err)
	}

	if mode == dotdir.ModeAsk && !c.yes {
		question := fmt.Sprintf("Save to %s memory?", cliui.KeyStyle.Render(project))
		if !cliui.Confirm(c.in, c.out, question) {
			fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("Not saved."))
			return nil
		}
	}

	cl, err := client.New(c.apiTarget, c.timeout)
	if err != nil {
		return err
	}

	req := service.SaveRequest{Project: project, Role: c.role, Content: c.content}

	if mode == dotdir.ModeSilent {
		_, err := cl.Save(ctx, req)
		return err
	}

	return cliui.Step(c.out, fmt.Sprintf("Saving to %s", project), func() (*cliui.Usage, error) {
		res, err := cl.Save(ctx, req)
		if err != nil {
			return nil, err
		}
		return &cliui.Usage{
			Tokens:  res.TokensUsed,
			Monthly: res.MonthlyUsage,
			CostUSD: res.EstimatedCostUSD,
		}, nil
	})
}
