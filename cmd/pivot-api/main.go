// @title Retail Pivot API
// @version 1.0
// @description Groups retail records into expandable pivot trees.
// @host localhost:8080
// @BasePath /api/v1
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go-retail-pivot/internal/api"
	"go-retail-pivot/internal/config"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load("", nil)
	if err != nil {
		logrus.WithError(err).Fatal("❌ Invalid configuration")
	}
	log := cfg.NewLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.Serve(ctx, cfg, log, os.Stdout); err != nil {
		log.WithError(err).Fatal("❌ Server stopped")
	}
}
