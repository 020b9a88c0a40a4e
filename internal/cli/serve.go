package cli

import (
	"os"
	"os/signal"
	"syscall"

	"go-retail-pivot/internal/api"

	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pivot API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return api.Serve(ctx, GetConfig(ctx), GetLogger(ctx), cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	return cmd
}
