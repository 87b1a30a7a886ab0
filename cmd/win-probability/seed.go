package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/win-probability/internal/repository"
	"github.com/yourusername/win-probability/internal/testutil"
)

var seedValue int64

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a deterministic synthetic bidding history for local development",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if current.cfg.IsProduction() {
			return fmt.Errorf("refusing to seed synthetic data in production")
		}
		counts, err := seed(cmd.Context(), current, seedValue)
		if err != nil {
			return err
		}
		return printJSON(cmd, counts)
	},
}

func init() {
	seedCmd.Flags().Int64Var(&seedValue, "seed", 7, "Random seed of the generated world")
	rootCmd.AddCommand(seedCmd)
}

type seedCounts struct {
	ClosedOpportunities int `json:"closed_opportunities"`
	OpenOpportunities   int `json:"open_opportunities"`
	HistoryRecords      int `json:"history_records"`
	Outcomes            int `json:"outcomes"`
}

func seed(ctx context.Context, a *app, seedValue int64) (*seedCounts, error) {
	w := testutil.NewWorld(seedValue)
	counts := &seedCounts{}

	for i := range w.Opportunities {
		if err := a.repos.Opportunity.Upsert(ctx, &w.Opportunities[i]); err != nil {
			return nil, err
		}
		counts.ClosedOpportunities++
	}

	for _, s := range []testutil.Scenario{testutil.StrongScenario(), testutil.MediumScenario(), testutil.WeakScenario()} {
		opp := s.Opportunity
		if err := a.repos.Opportunity.Upsert(ctx, &opp); err != nil {
			return nil, err
		}
		counts.OpenOpportunities++
		for i := range s.History {
			if err := a.repos.CompanyHistory.Insert(ctx, &s.History[i]); err != nil {
				return nil, err
			}
			counts.HistoryRecords++
		}
	}

	for _, history := range w.Histories {
		for i := range history {
			if err := a.repos.CompanyHistory.Insert(ctx, &history[i]); err != nil {
				return nil, err
			}
			counts.HistoryRecords++
		}
	}

	outcomes := repository.NewPostgresHistoricalOutcomeRepository(a.db)
	for i := range w.Outcomes {
		if err := outcomes.Insert(ctx, &w.Outcomes[i]); err != nil {
			return nil, err
		}
		counts.Outcomes++
	}

	if err := a.repos.MarketData.SaveSnapshot(ctx, w.Market); err != nil {
		return nil, err
	}
	return counts, nil
}
