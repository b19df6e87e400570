// Package searchcmder provides the search command for semantic search over
// project memory.
package searchcmder

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
	"github.com/papercomputeco/raggadon/pkg/memory"
	"github.com/papercomputeco/raggadon/pkg/service"
	"github.com/papercomputeco/raggadon/pkg/utils"
)

type searchCommander struct {
	query     string
	project   string
	limit     int
	quiet     bool
	apiTarget string
	configDir string
	timeout   time.Duration

	out io.Writer
}

const searchLongDesc string = `Search the memory of the current project.

Returns the stored entries most similar to the query, best match first. Only
matches at or above the server's similarity threshold are returned.

Use --quiet to print only the matched content, one entry per line.

Examples:
  raggadon search "how are webhooks retried"
  raggadon search "package manager" --project web --limit 3
  raggadon search "deploy" --quiet`

const searchShortDesc string = "Search project memory"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
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
			cmder.query = strings.Join(args, " ")
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Registry, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().StringVarP(&cmder.project, "project", "p", "", "Project name (default: current directory name)")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "k", memory.DefaultLimit, "Maximum number of results")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print only matched content, one per line")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 30*time.Second, "Request timeout")

	return cmd
}

func (c *searchCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if c.limit <= 0 {
		return fmt.Errorf("--limit must be a positive integer, got %d", c.limit)
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

	res, err := cl.Search(ctx, service.SearchRequest{Project: project, Query: c.query, Limit: c.limit})
	if err != nil {
		return err
	}

	if c.quiet || mode == dotdir.ModeSilent {
		for _, m := range res.Results {
			fmt.Fprintln(c.out, strings.ReplaceAll(m.Content, "\n", " "))
		}
		return nil
	}

	if len(res.Results) == 0 {
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("No matching memories."))
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Memories for:"),
		cliui.ValueStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	for i, m := range res.Results {
		preview := strings.ReplaceAll(utils.Truncate(m.Content, 120), "\n", " ")
		fmt.Fprintf(c.out, "  %s  %s  %s\n",
			cliui.KeyStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.ScoreStyle.Render(fmt.Sprintf("%.4f", m.Similarity)),
			cliui.DimStyle.Render("["+m.Role+"] "+m.CreatedAt.Local().Format(time.DateTime)),
		)
		fmt.Fprintf(c.out, "      %s\n\n", cliui.ValueStyle.Render(preview))
	}

	usage := cliui.Usage{
		Tokens:  res.TokensUsed,
		Monthly: res.MonthlyUsage,
		CostUSD: res.EstimatedCostUSD,
	}
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render(usage.String()))

	return nil
}
