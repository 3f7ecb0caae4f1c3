package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:     "render <template>",
	Aliases: []string{"r"},
	Short:   "Render a template to standard output",
	Long: `Render compiles a template when needed and executes it with the given data.

Examples:
  sigil render home                          # Render without data
  sigil render home --data '{"Name":"Ada"}'  # Inline JSON data
  sigil render home --data @home.yaml        # Data from a YAML or JSON file
  sigil render home --stats                  # Report content cache use on stderr`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var (
	renderFlags *DataFlags
	renderStats bool
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderFlags = AddDataFlags(renderCmd)
	renderCmd.Flags().BoolVar(&renderStats, "stats", false, "Print content cache statistics to stderr")
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := renderFlags.ParseData()
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if err := a.engine.Render(ctx, cmd.OutOrStdout(), args[0], data); err != nil {
		a.errors.Handle(ctx, err)
		return err
	}

	stats := a.content.Stats()
	a.logger.Debug(ctx, "Rendered template",
		"template", args[0],
		"content_hits", stats.Hits,
		"content_misses", stats.Misses,
		"content_bytes", stats.Size,
		"content_hit_rate", stats.HitRate())
	if renderStats {
		fmt.Fprintf(cmd.ErrOrStderr(), "content cache: %d hits, %d misses, %d entries (%.0f%% hit rate)\n",
			stats.Hits, stats.Misses, stats.Entries, 100*stats.HitRate())
	}
	return nil
}
