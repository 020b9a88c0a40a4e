package cli

import (
	"fmt"

	"go-retail-pivot/internal/ingest"
	"go-retail-pivot/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file-or-url>",
		Short: "Append CSV or JSON records to a sqlite table",
		Example: `  pivot import sales.csv --table orders
  pivot import https://example.com/returns.json --table returns`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := GetConfig(ctx)
			log := GetLogger(ctx)

			records, err := ingest.LoadAs(ctx, args[0], format, log)
			if err != nil {
				return err
			}

			s, err := store.InitDB(cfg.Database, log)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.ImportRecords(ctx, cfg.Source.Table, records)
			if err != nil {
				return fmt.Errorf("import into %s failed: %w", cfg.Source.Table, err)
			}
			log.WithFields(logrus.Fields{"table": cfg.Source.Table, "records": n}).Info("💾 Import done")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records into %s\n", n, cfg.Source.Table)
			return nil
		},
	}

	cmd.Flags().String("table", "", "Target sqlite table (default from source.table)")
	cmd.Flags().StringVar(&format, "format", "", "Input format (csv|json), detected from the extension when empty")
	return cmd
}
