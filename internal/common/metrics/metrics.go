// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job worker collectors.
var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Pipeline collectors.
var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_pipeline_runs_total",
			Help: "Pipeline runs by chosen output mode and template",
		},
		[]string{"output_mode", "template"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "narrative_pipeline_duration_seconds",
			Help:    "End to end pipeline duration",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	InsightsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_insights_detected_total",
			Help: "Candidate insights produced by the detector",
		},
		[]string{"type"},
	)

	StoryDowngrades = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_story_downgrades_total",
			Help: "Requests that wanted a story but were served in data mode",
		},
		[]string{"reason"},
	)

	NoDataResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "narrative_no_data_responses_total",
			Help: "Requests answered with the no-data fallback",
		},
	)

	RetrieverDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "narrative_retriever_duration_seconds",
			Help: "Record retrieval latency by backend",
		},
		[]string{"backend"},
	)

	RetrieverFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_retriever_failures_total",
			Help: "Record retrieval failures by backend and reason",
		},
		[]string{"backend", "reason"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_record_cache_lookups_total",
			Help: "Record cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	RenderDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_render_dispatches_total",
			Help: "Render requests handed to the dispatcher",
		},
		[]string{"template", "status"},
	)
)
