package cmd

import (
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:     "compile [template...]",
	Aliases: []string{"c"},
	Short:   "Compile templates into cached artifacts",
	Long: `Compile brings the artifacts of the named templates up to date.
Templates whose artifact is already fresh are left alone.

Examples:
  sigil compile home              # Compile one template
  sigil compile pages.about home  # Compile several
  sigil compile --all             # Compile every template under the template dir`,
	RunE: runCompile,
}

var compileAll bool

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().BoolVarP(&compileAll, "all", "a", false, "Compile every template")
}

func runCompile(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	ids, err := a.identifiers(ctx, args, compileAll)
	if err != nil {
		return err
	}

	report, err := a.engine.CompileAll(ctx, ids)
	printReport(cmd.OutOrStdout(), report, a.engine.Stats(), true)
	if err != nil {
		a.errors.Handle(ctx, err)
	}
	return err
}
