package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go-retail-pivot/internal/config"
	"go-retail-pivot/internal/model"
	"go-retail-pivot/internal/pivot"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// pivotOutput is the JSON shape of a rendered pivot.
type pivotOutput struct {
	Dimensions []model.Dimension       `json:"dimensions"`
	Measures   []model.AggregationSpec `json:"measures"`
	Rows       []pivot.DisplayRow      `json:"rows"`
	Stats      model.BuildStats        `json:"stats"`
}

func render(w io.Writer, cfg *config.Config, v *pivot.View) error {
	switch cfg.Output {
	case config.OutputJSON:
		dims, aggs := v.Columns()
		return renderJSON(w, pivotOutput{Dimensions: dims, Measures: aggs, Rows: v.Rows(), Stats: v.Stats()})
	case config.OutputCSV:
		_, err := v.ExportCSV(w)
		return err
	default:
		return renderTable(w, cfg.Formatter(), v)
	}
}

func renderTable(w io.Writer, f *pivot.Formatter, v *pivot.View) error {
	rows := v.Rows()
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	_, aggs := v.Columns()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{"Group"}
	configs := make([]table.ColumnConfig, 0, len(aggs))
	for i, agg := range aggs {
		header = append(header, agg.Label)
		configs = append(configs, table.ColumnConfig{Number: i + 2, Align: text.AlignRight})
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	for _, r := range rows {
		row := table.Row{groupCell(r, v.DetailColumns())}
		for _, agg := range aggs {
			if r.Kind == pivot.RowDetail {
				row = append(row, "")
				continue
			}
			row = append(row, f.Format(r.Aggregates[agg.Label], agg.Format))
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

// groupCell indents a row by its level and marks expandable groups.
func groupCell(r pivot.DisplayRow, detailColumns []string) string {
	indent := strings.Repeat("  ", r.Level)
	if r.Kind == pivot.RowDetail {
		return indent + "  " + detailLabel(r.Record, detailColumns)
	}
	marker := "  "
	if r.HasChildren {
		marker = "▸ "
		if r.IsExpanded {
			marker = "▾ "
		}
	}
	return indent + marker + r.Value
}

func detailLabel(rec model.Record, columns []string) string {
	if len(columns) == 0 {
		if id, ok := rec["order_id"]; ok && id != nil {
			return fmt.Sprint(id)
		}
		return "(record)"
	}
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		if val, ok := rec[col]; ok && val != nil {
			parts = append(parts, fmt.Sprint(val))
		}
	}
	return strings.Join(parts, " · ")
}

func renderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
