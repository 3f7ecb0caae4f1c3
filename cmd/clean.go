package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every compiled artifact",
	Long: `Clean deletes the artifacts and metadata sigil wrote to the cache
directory. Other files in that directory are left alone.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	removed, err := a.store.Clear()
	if err != nil {
		return err
	}
	a.content.Clear()

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d artifact(s) from %s\n", removed, a.store.Dir())
	return nil
}
