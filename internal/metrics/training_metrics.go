package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Training counter vectors
var (
	TrainingRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "training_runs_total",
		Help:      "Total number of ensemble training runs by outcome",
	}, []string{"status"})

	SchedulerJobRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduler_job_runs_total",
		Help:      "Total number of scheduled job executions by job and outcome",
	}, []string{"job", "status"})
)

// Training histograms and gauges
var (
	TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "training_duration_seconds",
		Help:      "Duration of ensemble training runs in seconds",
		Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 300, 600},
	})

	TrainingRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "training_rows",
		Help:      "Labeled rows used by the last successful training run",
	})
)

// RecordTrainingRun records a training run. Status is success, insufficient_data or failed.
func RecordTrainingRun(status string, rows int, duration time.Duration) {
	TrainingRunsTotal.WithLabelValues(status).Inc()
	TrainingDuration.Observe(duration.Seconds())
	if status == "success" {
		TrainingRows.Set(float64(rows))
	}
}

// RecordSchedulerJob records a scheduled job execution.
func RecordSchedulerJob(job string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	SchedulerJobRunsTotal.WithLabelValues(job, status).Inc()
}
