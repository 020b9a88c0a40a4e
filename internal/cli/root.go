// Package cli provides the pivot command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"go-retail-pivot/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

type configKey struct{}
type loggerKey struct{}

// NewRootCmd creates the root command and its subcommands.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "pivot",
		Short: "Retail pivot tables from sales records",
		Long: `pivot groups retail sales, inventory and returns records by an ordered list
of dimensions, aggregates measures per group and renders the expandable tree
as a table, CSV or JSON. It can also serve the same engine over HTTP.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			log := cfg.NewLogger(cmd.ErrOrStderr())
			if file := cfg.File(); file != "" {
				log.WithField("file", file).Debug("Using config file")
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, log)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./pivot.yaml)")
	flags.String("database", "", "Path to the sqlite database")
	flags.StringP("output", "o", "", "Output format (table|csv|json)")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.Bool("strict", false, "Fail on malformed filter rules and non-numeric measures")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OutputTable, config.OutputCSV, config.OutputJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewCatalogCommand())
	rootCmd.AddCommand(NewImportCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewVersionCommand(Version))
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config loaded for the running command.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	cfg, err := config.Load("", nil)
	if err != nil {
		return &config.Config{Output: config.OutputTable, LogLevel: "info"}
	}
	return cfg
}

// GetLogger retrieves the logger of the running command.
func GetLogger(ctx context.Context) *logrus.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*logrus.Logger); ok {
		return l
	}
	return logrus.StandardLogger()
}
