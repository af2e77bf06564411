package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/grovekit/grove/db"
	"github.com/grovekit/grove/internal/api"
	"github.com/grovekit/grove/internal/app"
	"github.com/grovekit/grove/internal/config"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(
		api.NewDocumentHandler(a.Blobs, a.Store, a.Ingestor, logger),
		api.NewQueryHandler(a.Querier, logger),
		api.NewHealthHandler(a.Pool),
		api.Config{
			// rate_burst is requests per minute per client IP; the token
			// bucket refills at that rate and allows the full minute at once.
			RatePerSecond: float64(cfg.RateBurst) / 60,
			RateBurst:     cfg.RateBurst,
		},
		logger)

	addr := flagAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}
	return server.Run(ctx, addr)
}
