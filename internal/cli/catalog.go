package cli

import (
	"fmt"
	"io"

	"go-retail-pivot/internal/config"
	"go-retail-pivot/internal/pivot"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the dimensions and measures available for grouping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			catalog, err := cfg.Catalog()
			if err != nil {
				return err
			}
			if cfg.Output == config.OutputJSON {
				return renderJSON(cmd.OutOrStdout(), catalog.Categories())
			}
			renderCatalog(cmd.OutOrStdout(), catalog.Categories())
			return nil
		},
	}
}

func renderCatalog(w io.Writer, categories []pivot.Category) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Category", "Kind", "Key", "Label", "Type"})

	n := 0
	for _, c := range categories {
		for _, d := range c.Dimensions {
			typ := string(d.Type)
			if d.Bucket != "" {
				typ += " by " + string(d.Bucket)
			}
			t.AppendRow(table.Row{c.Name, "dimension", d.Key, d.Label, typ})
			n++
		}
		for _, a := range c.Aggregations {
			key := string(a.Reducer)
			if a.Field != "" {
				key += ":" + a.Field
			}
			t.AppendRow(table.Row{c.Name, "measure", key, a.Label, string(a.Format)})
			n++
		}
		t.AppendSeparator()
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d entries)\n", n)
}
