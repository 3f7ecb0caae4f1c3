package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/sigil/internal/catalog"
	"github.com/conneroisu/sigil/internal/compiler"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List all templates and the state of their artifacts",
	Long: `List every template under the template directory together with the
state of its cached artifact: fresh, stale or missing. Listing never compiles.

Examples:
  sigil list                      # Table output
  sigil list -f json              # Output as JSON
  sigil list --format yaml        # Output as YAML`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listFlags *OutputFlags

func init() {
	rootCmd.AddCommand(listCmd)

	listFlags = AddOutputFlags(listCmd)
}

// listEntry is one row of the list output.
type listEntry struct {
	catalog.Entry `yaml:",inline"`
	Status        compiler.CacheStatus `json:"status" yaml:"status"`
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	entries, err := a.catalog.Scan(cmd.Context())
	if err != nil {
		return err
	}

	rows := make([]listEntry, 0, len(entries))
	for _, e := range entries {
		status, err := a.engine.Status(e.Identifier)
		if err != nil {
			return err
		}
		rows = append(rows, listEntry{Entry: e, Status: status})
	}

	out := cmd.OutOrStdout()
	switch listFlags.Format {
	case "json":
		return outputListJSON(out, rows)
	case "yaml":
		return outputListYAML(out, rows)
	default:
		keys, err := a.store.Keys()
		if err != nil {
			return err
		}
		return outputListTable(out, rows, len(keys), a.store.Dir())
	}
}

func outputListTable(w io.Writer, rows []listEntry, artifacts int, cacheDir string) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No templates found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TEMPLATE\tSTATUS\tSIZE\tMODIFIED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			r.Identifier, r.Status, r.Size, r.ModTime.Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d template(s), %d artifact(s) in %s\n", len(rows), artifacts, cacheDir)
	return nil
}

func outputListJSON(w io.Writer, rows []listEntry) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}

func outputListYAML(w io.Writer, rows []listEntry) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(rows); err != nil {
		return err
	}
	return encoder.Close()
}
