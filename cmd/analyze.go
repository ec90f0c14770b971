package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safetravels/safetravels/internal/config"
	"github.com/safetravels/safetravels/internal/pipeline"
	"github.com/safetravels/safetravels/pkg/anthropic"
	"github.com/safetravels/safetravels/pkg/crimeometer"
	"github.com/safetravels/safetravels/pkg/maps"
)

var (
	analyzeStart       string
	analyzeDestination string
	analyzeOutput      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze crime risk for routes between two addresses",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := newOrchestrator(cfg)

		result, err := orch.Run(cmd.Context(), analyzeStart, analyzeDestination)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "analyze: marshal result")
		}

		if analyzeOutput != "" {
			if err := os.WriteFile(analyzeOutput, out, 0o644); err != nil {
				return eris.Wrap(err, "analyze: write output file")
			}
			zap.L().Info("analyze: result written", zap.String("path", analyzeOutput))
			return nil
		}

		cmd.Println(string(out))
		return nil
	},
}

// newOrchestrator wires the provider clients from configuration.
func newOrchestrator(cfg *config.Config) *pipeline.Orchestrator {
	mapsClient := maps.NewClient(cfg.Google.Key, maps.WithBaseURL(cfg.Google.BaseURL))
	crimeClient := crimeometer.NewClient(cfg.Crimeometer.Key, crimeometer.WithBaseURL(cfg.Crimeometer.BaseURL))
	aiClient := anthropic.NewClient(cfg.Anthropic.Key)
	return pipeline.New(cfg, mapsClient, crimeClient, aiClient)
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeStart, "start", "", "starting address (required)")
	analyzeCmd.Flags().StringVar(&analyzeDestination, "destination", "", "destination address (required)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "write JSON result to file instead of stdout")
	_ = analyzeCmd.MarkFlagRequired("start")
	_ = analyzeCmd.MarkFlagRequired("destination")
	rootCmd.AddCommand(analyzeCmd)
}
