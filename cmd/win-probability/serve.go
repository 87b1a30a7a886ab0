package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/win-probability/internal/health"
	"github.com/yourusername/win-probability/internal/metrics"
	"github.com/yourusername/win-probability/internal/scheduler"
)

var trainIfMissing bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the health, metrics and scheduler loops until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), current)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&trainIfMissing, "train-if-missing", false, "Train a model at startup when none could be loaded")
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context, a *app) error {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.log.WithFields(logrus.Fields{
		"environment": a.cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("Win probability service starting")

	if _, err := a.svc.RefreshMarketData(ctx); err != nil {
		a.log.WithError(err).Warn("Initial market refresh failed, predictions will run without market data")
	}
	if trainIfMissing && !a.engine.ModelLoaded() {
		if _, err := a.svc.Train(ctx); err != nil {
			a.log.WithError(err).Error("Initial training failed")
		}
	}

	grpcPort := ""
	if a.cfg.Health.GRPCPort > 0 {
		grpcPort = strconv.Itoa(a.cfg.Health.GRPCPort)
	}
	healthServer := health.NewServer(health.Config{
		ServiceName: a.cfg.App.Name,
		Version:     Version,
		Port:        strconv.Itoa(a.cfg.Health.Port),
		GRPCPort:    grpcPort,
		Logger:      a.log,
		DB:          a.db,
		Model:       a.svc,
	})
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	var metricsServer *http.Server
	if a.cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(a)
	}

	var sched *scheduler.Scheduler
	if a.cfg.Scheduler.Enabled {
		var err error
		sched, err = startScheduler(a)
		if err != nil {
			return err
		}
	}

	healthServer.SetReady(true)
	a.log.Info("Win probability service ready")

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.log.Info("Shutdown signal received")
			healthServer.SetReady(false)
			if sched != nil {
				if err := sched.Stop(); err != nil {
					a.log.WithError(err).Error("Error stopping scheduler")
				}
			}
			if metricsServer != nil {
				shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
				if err := metricsServer.Shutdown(shutdownCtx); err != nil {
					a.log.WithError(err).Warn("Metrics server shutdown failed")
				}
				cancelShutdown()
			}
			a.log.Info("Win probability service stopped")
			return nil
		case <-ticker.C:
			healthServer.SyncModelState(ctx)
			metrics.UpdateModelState(a.engine.ModelLoaded(), a.engine.LastTrainedAt())
		}
	}
}

func startMetricsServer(a *app) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, metrics.Handler())
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(a.cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.WithFields(logrus.Fields{
			"port": a.cfg.Metrics.Port,
			"path": a.cfg.Metrics.Path,
		}).Info("Metrics server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.WithError(err).Error("Metrics server error")
		}
	}()
	return srv
}

func startScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.NewScheduler(a.svc, a.log)
	if a.cfg.Scheduler.MarketRefresh != "" {
		if err := sched.ScheduleMarketRefresh(a.cfg.Scheduler.MarketRefresh); err != nil {
			return nil, err
		}
	}
	if a.cfg.Scheduler.Retrain != "" {
		if err := sched.ScheduleRetrain(a.cfg.Scheduler.Retrain); err != nil {
			return nil, err
		}
	}
	if err := sched.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}
	return sched, nil
}
