package api

import (
	"context"
	"fmt"
	"io"

	"go-retail-pivot/internal/api/handler"
	"go-retail-pivot/internal/config"
	"go-retail-pivot/internal/pivot"
	"go-retail-pivot/internal/store"
	"go-retail-pivot/pkg/utils"

	"github.com/sirupsen/logrus"
)

// Serve opens the store and serves the API on cfg.Addr until ctx ends.
func Serve(ctx context.Context, cfg *config.Config, log *logrus.Logger, accessLog io.Writer) error {
	s, err := store.InitDB(cfg.Database, log)
	if err != nil {
		return err
	}
	defer s.Close()

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}
	outputs := utils.NewOutputManager(cfg.ExportPath())
	if err := outputs.EnsureOutputDirExists(); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	metrics := pivot.NewMetrics("pivot")
	h := handler.New(handler.Config{
		Store:        s,
		Catalog:      catalog,
		Options:      cfg.ViewOptions(log, metrics),
		Outputs:      outputs,
		BuildTimeout: cfg.Timeout(),
		Log:          log,
	})
	r := NewRouter(h, metrics, accessLog)

	log.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
		"exports":  outputs.BaseOutputDir,
		"routes":   len(r.Routes()),
	}).Info("🚀 Starting pivot API")
	return r.Start(ctx, cfg.Addr)
}
