package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/config"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/matching"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/observability"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/server"
)

var (
	serveConfigPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the filter, prospect and processing endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file (values can be overridden by environment variables)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	log, err := observability.NewLogger(cfg.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	srv, err := server.New(context.Background(), server.Config{
		Port:         cfg.Port,
		DatabaseURL:  cfg.DatabaseURL,
		GeminiAPIKey: cfg.GeminiAPIKey,
		Matching: matching.Options{
			DefaultFirstLimit:  cfg.DefaultFirstLimit,
			DefaultRefineLimit: cfg.DefaultRefineLimit,
			PoolFloor:          cfg.PoolFloor,
			PoolMultiplier:     cfg.PoolMultiplier,
			PushdownFilters:    true,
		},
		FilterTimeout:    cfg.FilterTimeout,
		IngestionWorkers: int64(cfg.IngestionWorkers),
		IngestionTimeout: cfg.IngestionTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
