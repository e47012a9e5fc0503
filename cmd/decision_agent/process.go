package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/config"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/db"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/ingestion"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/llm"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/observability"
)

var processConfigPath string

var processApplicantCmd = &cobra.Command{
	Use:   "process-applicant [id]",
	Short: "Process one applicant's raw CV synchronously",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runProcess(args[0], func(ctx context.Context, svc *ingestion.Service, id int64) error {
			return svc.ProcessApplicant(ctx, id)
		})
	},
}

var processJobCmd = &cobra.Command{
	Use:   "process-job [id]",
	Short: "Build the semantic text and embedding for one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runProcess(args[0], func(ctx context.Context, svc *ingestion.Service, id int64) error {
			if err := svc.ProcessJobAsync(id); err != nil {
				return err
			}
			svc.Wait()
			return nil
		})
	},
}

func init() {
	processApplicantCmd.Flags().StringVar(&processConfigPath, "config", "", "Path to config.json file")
	processJobCmd.Flags().StringVar(&processConfigPath, "config", "", "Path to config.json file")
	rootCmd.AddCommand(processApplicantCmd)
	rootCmd.AddCommand(processJobCmd)
}

func runProcess(rawID string, run func(context.Context, *ingestion.Service, int64) error) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", rawID, err)
	}

	cfg, err := config.Load(processConfigPath)
	if err != nil {
		return err
	}
	log, err := observability.NewLogger(cfg.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer database.Close()

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return err
	}
	defer client.Close()
	gemini, ok := client.(*llm.GeminiClient)
	if !ok {
		return fmt.Errorf("llm client does not support embeddings")
	}

	service := ingestion.NewService(database, client, gemini,
		int64(cfg.IngestionWorkers), cfg.IngestionTimeout, log)
	return run(ctx, service, id)
}
