package pivot

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"go-retail-pivot/internal/model"
	"go-retail-pivot/pkg/utils"
)

// CSVOptions controls CSV serialization of a flattened view.
type CSVOptions struct {
	// DetailColumns adds per-record columns. They only apply when exactly
	// one dimension is active.
	DetailColumns []string
	// Formatter renders aggregate cells. Nil writes raw numbers.
	Formatter *Formatter
}

// WriteCSV serializes rows as CSV and returns the number of body rows.
// Group rows carry the values of their ancestors so every line reads on its
// own in a spreadsheet.
func WriteCSV(w io.Writer, rows []DisplayRow, dims []model.Dimension, aggs []model.AggregationSpec, opts CSVOptions) (int, error) {
	details := opts.DetailColumns
	if len(dims) != 1 {
		details = nil
	}

	header := make([]string, 0, len(dims)+len(details)+len(aggs))
	for _, d := range dims {
		header = append(header, d.Label)
	}
	header = append(header, details...)
	for _, a := range aggs {
		header = append(header, a.Label)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	path := make([]string, len(dims))
	count := 0
	for _, row := range rows {
		line := make([]string, len(header))
		switch row.Kind {
		case RowDetail:
			if len(details) == 0 {
				continue
			}
			copy(line, path)
			for i, col := range details {
				line[len(dims)+i] = utils.Text(row.Record[col])
			}
		default:
			if row.Level < len(path) {
				path[row.Level] = row.Value
				for i := row.Level + 1; i < len(path); i++ {
					path[i] = ""
				}
				copy(line, path[:row.Level+1])
			}
			offset := len(dims) + len(details)
			for i, a := range aggs {
				line[offset+i] = cell(row.Aggregates[a.Label], a.Format, opts.Formatter)
			}
		}
		if err := writer.Write(line); err != nil {
			return count, fmt.Errorf("failed to write row: %w", err)
		}
		count++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return count, fmt.Errorf("failed to flush csv: %w", err)
	}
	return count, nil
}

func cell(v float64, format model.DisplayFormat, f *Formatter) string {
	if f != nil {
		return f.Format(v, format)
	}
	return strconv.FormatFloat(sane(v), 'f', -1, 64)
}
