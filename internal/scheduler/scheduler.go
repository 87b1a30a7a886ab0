// Package scheduler runs the periodic market refresh and retraining jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/win-probability/internal/metrics"
	"github.com/yourusername/win-probability/internal/models"
	"github.com/yourusername/win-probability/internal/service"
)

// Job names
const (
	JobMarketRefresh = "market_refresh"
	JobRetrain       = "retrain"
)

const (
	defaultMarketRefreshTimeout = 2 * time.Minute
	defaultRetrainTimeout       = 2 * time.Hour
)

// Runner is the work the scheduler triggers
type Runner interface {
	RefreshMarketData(ctx context.Context) (*models.MarketData, error)
	Train(ctx context.Context) (*service.TrainingReport, error)
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron            *cron.Cron
	runner          Runner
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          map[string]cron.EntryID
	gracefulTimeout time.Duration
	refreshTimeout  time.Duration
	retrainTimeout  time.Duration
}

// NewScheduler creates a new scheduler. A job still running when its next
// tick fires is not started twice.
func NewScheduler(runner Runner, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		runner:          runner,
		logger:          logger,
		jobIDs:          make(map[string]cron.EntryID),
		gracefulTimeout: 30 * time.Second,
		refreshTimeout:  defaultMarketRefreshTimeout,
		retrainTimeout:  defaultRetrainTimeout,
	}
}

// ScheduleMarketRefresh reloads the market snapshot on the given schedule
func (s *Scheduler) ScheduleMarketRefresh(cronExpression string) error {
	return s.schedule(JobMarketRefresh, cronExpression, s.runMarketRefresh)
}

// ScheduleRetrain retrains the model on the given schedule
func (s *Scheduler) ScheduleRetrain(cronExpression string) error {
	return s.schedule(JobRetrain, cronExpression, s.runRetrain)
}

func (s *Scheduler) schedule(job, cronExpression string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if _, exists := s.jobIDs[job]; exists {
		return fmt.Errorf("job %s is already scheduled", job)
	}

	entryID, err := s.cron.AddFunc(cronExpression, fn)
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", job, err)
	}

	s.jobIDs[job] = entryID
	s.logger.WithFields(logrus.Fields{
		"job":      job,
		"schedule": cronExpression,
	}).Info("Scheduled job")
	return nil
}

func (s *Scheduler) runMarketRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
	defer cancel()

	snapshot, err := s.runner.RefreshMarketData(ctx)
	metrics.RecordSchedulerJob(JobMarketRefresh, err)
	if err != nil {
		s.logger.WithError(err).WithField("job", JobMarketRefresh).Error("Scheduled market refresh failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"job":          JobMarketRefresh,
		"refreshed_at": snapshot.RefreshedAt,
	}).Info("Scheduled market refresh completed")
}

func (s *Scheduler) runRetrain() {
	ctx, cancel := context.WithTimeout(context.Background(), s.retrainTimeout)
	defer cancel()

	report, err := s.runner.Train(ctx)
	if errors.Is(err, service.ErrTrainingInProgress) {
		s.logger.WithField("job", JobRetrain).Info("Skipping scheduled retrain, a run is already in progress")
		return
	}
	metrics.RecordSchedulerJob(JobRetrain, err)
	if err != nil {
		s.logger.WithError(err).WithField("job", JobRetrain).Error("Scheduled retrain failed, previous model remains active")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"job":              JobRetrain,
		"model_version":    report.ModelVersion,
		"previous_version": report.PreviousVersion,
		"rows":             report.Rows,
	}).Info("Scheduled retrain completed")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	s.isRunning = false

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the job next fires, zero when it is not scheduled or the
// scheduler is stopped
func (s *Scheduler) NextRun(job string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.jobIDs[job]
	if !ok || !s.isRunning {
		return time.Time{}
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}
	}
	return entry.Next
}

// Jobs returns the names of the scheduled jobs
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]string, 0, len(s.jobIDs))
	for _, job := range []string{JobMarketRefresh, JobRetrain} {
		if _, ok := s.jobIDs[job]; ok {
			jobs = append(jobs, job)
		}
	}
	return jobs
}
