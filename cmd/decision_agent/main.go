// Package main provides the entry point for the candidate matching
// engine HTTP API server and its one-shot CLI commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "decision_agent",
	Short: "Candidate matching and filtering engine",
	Long:  "Decision agent matches applicants to job openings by combining vector similarity search with conversational attribute filters extracted by an LLM.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
