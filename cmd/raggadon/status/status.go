// Package statuscmder provides the status command for displaying memory and
// token usage of the current project.
package statuscmder

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

type statusCommander struct {
	project   string
	apiTarget string
	configDir string
	timeout   time.Duration

	out io.Writer
}

const statusLongDesc string = `Show memory and token usage for the current project.

Displays the number of stored memories, this month's embedding tokens and
estimated cost, the embedding model in use, the current memory mode and the
most recent activity.

Examples:
  raggadon status
  raggadon status --project web`

const statusShortDesc string = "Show project memory and usage"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.InitCommandViper(cmd, config.FlagAPITarget)
			if err != nil {
				return err
			}
			cmder.apiTarget = v.GetString("client.api_target")
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Registry, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.project, "project", "p", "", "Project name (default: current directory name)")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 10*time.Second, "Request timeout")

	return cmd
}

func (c *statusCommander) run(ctx context.Context) error {
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

	cl, err := client.New(c.apiTarget, c.timeout)
	if err != nil {
		return err
	}

	stats, err := cl.Stats(ctx, project)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Project:"), cliui.ValueStyle.Render(stats.Project))
	fmt.Fprintln(c.out, cliui.KeyValue("Server", c.apiTarget))
	fmt.Fprintln(c.out, cliui.KeyValue("Mode", mode))
	fmt.Fprintln(c.out, cliui.KeyValue("Model", stats.Model))
	fmt.Fprintln(c.out, cliui.KeyValue("Total memories", stats.TotalMemories))
	fmt.Fprintln(c.out, cliui.KeyValue("Monthly tokens", stats.MonthlyTokens))
	fmt.Fprintln(c.out, cliui.KeyValue("Monthly cost (USD)", fmt.Sprintf("%.6f", stats.EstimatedMonthlyCostUSD)))
	fmt.Fprintln(c.out, cliui.KeyValue("Cost per 1K tokens", fmt.Sprintf("%.6f", stats.CostPer1KTokens)))
	fmt.Fprintln(c.out, cliui.KeyValue("First activity", formatTime(stats.FirstActivity)))
	fmt.Fprintln(c.out, cliui.KeyValue("Last activity", formatTime(stats.LastActivity)))

	if len(stats.RecentActivities) == 0 {
		fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("No recent activity."))
		return nil
	}

	// Unrenderable markdown comes back unchanged.
	rendered, _ := cliui.RenderMarkdown(ActivityTable(stats))
	fmt.Fprint(c.out, rendered)

	return nil
}

// ActivityTable renders the recent activities of stats as a markdown table.
func ActivityTable(stats *service.StatsResult) string {
	var b strings.Builder
	b.WriteString("### Recent activity\n\n")
	b.WriteString("| When | Type | Tokens |\n")
	b.WriteString("|---|---|---:|\n")
	for _, a := range stats.RecentActivities {
		fmt.Fprintf(&b, "| %s | %s | %d |\n", a.CreatedAt.Local().Format(time.DateTime), a.Type, a.Tokens)
	}
	return b.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
