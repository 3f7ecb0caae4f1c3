package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sigil/internal/view"
)

var makeCmd = &cobra.Command{
	Use:   "make <template>",
	Short: "Print the artifact location of a template",
	Long: `Make ensures the artifact of a template is fresh and prints its path.
With --content the compiled artifact itself is printed instead.

Examples:
  sigil make home                 # Print the artifact path
  sigil make home --content       # Print the generated template code`,
	Args: cobra.ExactArgs(1),
	RunE: runMake,
}

var makeContent bool

func init() {
	rootCmd.AddCommand(makeCmd)

	makeCmd.Flags().BoolVar(&makeContent, "content", false, "Print the artifact content instead of its path")
}

func runMake(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	location, err := a.engine.Make(ctx, args[0])
	if err != nil {
		a.errors.Handle(ctx, err)
		return err
	}

	if !makeContent {
		fmt.Fprintln(cmd.OutOrStdout(), location)
		return nil
	}
	id, err := view.ParseIdentifier(args[0])
	if err != nil {
		return err
	}
	content, err := a.store.Read(a.resolver.Key(id))
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(content)
	return err
}
