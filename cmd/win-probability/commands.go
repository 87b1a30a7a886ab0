package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/win-probability/internal/models"
)

var topLimit int

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a new ensemble from stored history and activate it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := current.svc.Train(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict <opportunity-id> <bidder-id>",
	Short: "Predict the win probability of one opportunity for one bidder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pred, err := current.svc.Predict(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, pred)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Predict opportunity,bidder pairs read one per line from stdin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, err := readPairs(cmd)
		if err != nil {
			return err
		}

		type entry struct {
			Pair       models.PredictionPair `json:"pair"`
			Prediction *models.WinPrediction `json:"prediction,omitempty"`
			Error      string                `json:"error,omitempty"`
		}
		results := current.svc.BatchPredict(cmd.Context(), pairs)
		out := make([]entry, len(results))
		for i, r := range results {
			out[i] = entry{Pair: r.Pair, Prediction: r.Prediction, Error: r.Error()}
		}
		return printJSON(cmd, out)
	},
}

var topCmd = &cobra.Command{
	Use:   "top <bidder-id>",
	Short: "Rank open opportunities for a bidder by win probability",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ranked, err := current.svc.TopOpportunities(cmd.Context(), args[0], topLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd, ranked)
	},
}

var factorsCmd = &cobra.Command{
	Use:   "factors <opportunity-id> <bidder-id>",
	Short: "Attribute a prediction to individual features",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		factors, err := current.svc.AnalyzeFactors(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, factors)
	},
}

var insightsCmd = &cobra.Command{
	Use:   "insights <opportunity-id> <bidder-id>",
	Short: "Explain a prediction in plain language",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		insight, err := current.svc.Insights(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), insight.Summary)
		return err
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Summarize recently stored predictions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := current.svc.DashboardSummary(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, summary)
	},
}

var performanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Show the evaluation of the active model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := current.svc.ModelPerformance(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show model and cache status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, current.svc.Health(cmd.Context()))
	},
}

func init() {
	topCmd.Flags().IntVarP(&topLimit, "limit", "n", 0, "Number of opportunities to return (default from configuration)")

	rootCmd.AddCommand(trainCmd, predictCmd, batchCmd, topCmd, factorsCmd, insightsCmd, dashboardCmd, performanceCmd, statusCmd)
}

// readPairs parses "opportunity,bidder" lines, skipping blanks and # comments
func readPairs(cmd *cobra.Command) ([]models.PredictionPair, error) {
	var pairs []models.PredictionPair
	scanner := bufio.NewScanner(cmd.InOrStdin())
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(text, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: expected opportunity,bidder", line)
		}
		pair := models.PredictionPair{
			OpportunityID: strings.TrimSpace(parts[0]),
			BidderID:      strings.TrimSpace(parts[1]),
		}
		if err := models.Validate(pair); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pairs = append(pairs, pair)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pairs: %w", err)
	}
	return pairs, nil
}
