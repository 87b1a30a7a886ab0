// Package main provides the win probability service and its command line tools.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/win-probability/internal/config"
	"github.com/yourusername/win-probability/internal/database"
	"github.com/yourusername/win-probability/internal/datasource"
	"github.com/yourusername/win-probability/internal/engine"
	"github.com/yourusername/win-probability/internal/logger"
	"github.com/yourusername/win-probability/internal/ml"
	"github.com/yourusername/win-probability/internal/repository"
	"github.com/yourusername/win-probability/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var configFile string

// app holds the wired dependencies shared by every command
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	db     *database.DB
	repos  *repository.Repositories
	engine *engine.Engine
	svc    *service.WinProbabilityService
}

var current *app

var rootCmd = &cobra.Command{
	Use:           "win-probability",
	Short:         "Predict the probability of winning competitive contract opportunities",
	Long:          `Trains a tree ensemble on past bids and serves win probabilities, explanations and rankings for opportunity and bidder pairs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil && current.db != nil {
			current.db.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (default $WIN_PROBABILITY_CONFIG or config/config.yaml)")
	rootCmd.Version = fmt.Sprintf("%s (%s)", Version, GitCommit)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(config.ResolvePath(configFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	appLog := logger.NewLoggerWithOutput(cfg.App.LogLevel, cfg.App.Environment, os.Stderr)

	db, err := database.Initialize(ctx, cfg, appLog)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	market, err := datasource.NewMarketDataSource(cfg, repos.MarketData, appLog)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize market data source: %w", err)
	}

	stores := service.Stores{
		Opportunities: repos.Opportunity,
		History:       repos.CompanyHistory,
		Market:        market,
		Outcomes:      repos.HistoricalOutcome,
		Predictions:   repos.Prediction,
		Artifacts:     repos.ModelArtifact,
	}
	if cfg.UsesHTTPMarketData() {
		stores.MarketArchive = repos.MarketData
	}

	eng := engine.NewEngine(engineConfig(cfg), appLog)
	cache := ml.NewPredictionCache(cfg.Prediction.CacheTTL(), cfg.Prediction.CacheMaxSize)
	svc := service.NewWinProbabilityService(eng, stores, cache, serviceOptions(cfg), appLog)

	a := &app{cfg: cfg, log: appLog, db: db, repos: repos, engine: eng, svc: svc}
	if cfg.Model.LoadOnStartup {
		if err := svc.LoadActiveModel(ctx); err != nil {
			appLog.WithError(err).Warn("No stored model loaded, predictions unavailable until training completes")
		}
	}
	return a, nil
}

func engineConfig(cfg *config.Config) engine.Config {
	m := cfg.Model
	return engine.Config{
		Backends:        m.Backends,
		Weighting:       m.Weighting,
		HoldoutFraction: m.HoldoutFraction,
		MinTrainingRows: m.MinTrainingRows,
		Params: ml.Params{
			Trees:              m.Trees,
			MaxDepth:           m.MaxDepth,
			MinSamplesLeaf:     m.MinSamplesLeaf,
			BoostingRounds:     m.BoostingRounds,
			LearningRate:       m.LearningRate,
			BoostingDepth:      m.BoostingDepth,
			L2:                 m.L2,
			LogisticIterations: m.LogisticIterations,
			LogisticStep:       m.LogisticStep,
			LogisticL2:         m.LogisticL2,
			Seed:               m.Seed,
		},
	}
}

func serviceOptions(cfg *config.Config) service.Options {
	p := cfg.Prediction
	return service.Options{
		FetchTimeout:       p.FetchTimeout(),
		ItemTimeout:        p.ItemTimeout(),
		BatchWorkers:       p.BatchWorkers,
		OutcomeLimit:       p.HistoricalOutcomeLimit,
		DashboardWindow:    p.DashboardWindow(),
		DefaultTopLimit:    p.DefaultTopLimit,
		PersistPredictions: p.PersistPredictions,
		SnapshotTTL:        cfg.MarketData.SnapshotTTL(),
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
