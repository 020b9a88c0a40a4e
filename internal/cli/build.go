package cli

import (
	"context"
	"fmt"
	"strings"

	"go-retail-pivot/internal/config"
	"go-retail-pivot/internal/ingest"
	"go-retail-pivot/internal/model"
	"go-retail-pivot/internal/pivot"
	"go-retail-pivot/internal/store"
	"go-retail-pivot/pkg/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	var (
		csvPath   string
		jsonPath  string
		measures  []string
		expandAll bool
		export    bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a pivot from a file or the sqlite store",
		Long: `Load records from a CSV or JSON file (or a sqlite table), filter, derive
and group them, then print the flattened pivot.

Measures are given as reducer:field, or just count:
  pivot build --csv sales.csv --group-by region,store --measure count --measure sum:total`,
		Example: `  pivot build --table orders --group-by status -o csv
  pivot build --json orders.json --group-by channel --expand-all --export`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := GetConfig(ctx)
			log := GetLogger(ctx)

			spec := cfg.ViewSpec()
			if cmd.Flags().Changed("measure") {
				refs, err := parseMeasures(measures)
				if err != nil {
					return err
				}
				spec.Measures = refs
			}

			records, err := loadRecords(ctx, cfg, log, csvPath, jsonPath)
			if err != nil {
				return err
			}

			v, err := buildView(ctx, cfg, log, spec, records)
			if err != nil {
				return err
			}
			if expandAll {
				v.ExpandAll()
			}

			if err := render(cmd.OutOrStdout(), cfg, v); err != nil {
				return err
			}

			if export {
				source := "cli"
				if spec.Source.Table != "" && csvPath == "" && jsonPath == "" {
					source = spec.Source.Table
				}
				result := v.ExportFile(utils.NewOutputManager(cfg.ExportPath()), source, spec.Name)
				if !result.Success {
					return fmt.Errorf("export failed: %s", result.Error)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "📄 Exported %d rows to %s\n", result.RowCount, result.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Read records from a CSV file or URL")
	cmd.Flags().StringVar(&jsonPath, "json", "", "Read records from a JSON file or URL")
	cmd.Flags().String("table", "", "Read records from this sqlite table")
	cmd.Flags().StringSlice("status", nil, "Only load these statuses from the store")
	cmd.Flags().Int("limit", 0, "Load at most this many records from the store")
	cmd.Flags().StringSlice("group-by", nil, "Ordered dimension keys to group by")
	cmd.Flags().StringSliceVar(&measures, "measure", nil, "Measures as reducer:field, or count")
	cmd.Flags().StringSlice("detail-columns", nil, "Record fields added to CSV detail rows")
	cmd.Flags().Int("max-nodes", 0, "Abort when the tree grows beyond this many groups")
	cmd.Flags().String("currency-symbol", "", "Currency symbol for table output")
	cmd.Flags().String("locale", "", "Locale for number grouping")
	cmd.Flags().BoolVar(&expandAll, "expand-all", false, "Expand every group")
	cmd.Flags().BoolVar(&export, "export", false, "Also write the CSV under the export directory")
	cmd.MarkFlagsMutuallyExclusive("csv", "json", "table")

	return cmd
}

// parseMeasures reads "sum:total" style measure flags.
func parseMeasures(values []string) ([]model.MeasureRef, error) {
	refs := make([]model.MeasureRef, 0, len(values))
	for _, v := range values {
		reducer, field, _ := strings.Cut(strings.TrimSpace(v), ":")
		ref := model.MeasureRef{Reducer: model.Reducer(strings.ToLower(reducer)), Field: field}
		if ref.Reducer != model.ReducerCount && ref.Field == "" {
			return nil, fmt.Errorf("measure %q needs a field, e.g. sum:total", v)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func loadRecords(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, csvPath, jsonPath string) ([]model.Record, error) {
	switch {
	case csvPath != "":
		return ingest.LoadAs(ctx, csvPath, ingest.FormatCSV, log)
	case jsonPath != "":
		return ingest.LoadAs(ctx, jsonPath, ingest.FormatJSON, log)
	}

	s, err := store.InitDB(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.LoadRecords(ctx, cfg.Source)
}

func buildView(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, spec model.ViewSpec, records []model.Record) (*pivot.View, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	v := pivot.NewView(catalog, cfg.ViewOptions(log, nil)...)
	if err := v.ApplySpec(spec); err != nil {
		return nil, err
	}
	v.SetRecords(records)
	if err := v.Rebuild(ctx); err != nil {
		return nil, err
	}
	return v, nil
}
