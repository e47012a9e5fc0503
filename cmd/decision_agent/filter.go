package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/victorhtsdev/datathon-fiap-decision/internal/config"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/criteria"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/db"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/llm"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/matching"
	"github.com/victorhtsdev/datathon-fiap-decision/internal/observability"
)

var (
	filterConfigPath string
	filterWorkbook   string
	filterJSON       bool
)

var filterCmd = &cobra.Command{
	Use:   "filter [request]",
	Short: "Run one filter request against a workbook",
	Long: `Run a single conversational filter request and print the result.

Example:
  decision_agent filter --workbook 4f8a... "20 candidatos com inglês avançado e python"`,
	Args: cobra.ExactArgs(1),
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().StringVar(&filterConfigPath, "config", "", "Path to config.json file")
	filterCmd.Flags().StringVar(&filterWorkbook, "workbook", "", "Workbook UUID (required)")
	filterCmd.Flags().BoolVar(&filterJSON, "json", false, "Print the full result as JSON instead of the summary")
	_ = filterCmd.MarkFlagRequired("workbook")
	rootCmd.AddCommand(filterCmd)
}

func runFilter(_ *cobra.Command, args []string) error {
	workbookID, err := uuid.Parse(filterWorkbook)
	if err != nil {
		return fmt.Errorf("invalid workbook id: %w", err)
	}

	cfg, err := config.Load(filterConfigPath)
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

	extractor, err := criteria.NewExtractor(client, log)
	if err != nil {
		return err
	}

	composer := matching.NewComposer(database, extractor, matching.Options{
		DefaultFirstLimit:  cfg.DefaultFirstLimit,
		DefaultRefineLimit: cfg.DefaultRefineLimit,
		PoolFloor:          cfg.PoolFloor,
		PoolMultiplier:     cfg.PoolMultiplier,
		PushdownFilters:    true,
	}, log)

	filterCtx, cancel := context.WithTimeout(ctx, cfg.FilterTimeout)
	defer cancel()
	result := composer.Filter(filterCtx, workbookID, args[0])

	if filterJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	fmt.Println(result.Summary)
	return nil
}
