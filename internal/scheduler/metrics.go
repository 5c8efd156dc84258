package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodrescue_scheduler_job_runs_total",
		Help: "Job runs by job and result, scheduled or manual.",
	}, []string{"job", "result"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodrescue_scheduler_job_duration_seconds",
		Help:    "Duration of job runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)
