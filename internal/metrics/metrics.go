package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	jobsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "research_jobs_submitted_total",
		Help: "Jobs accepted by the submission path.",
	})

	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_jobs_finished_total",
			Help: "Jobs that reached a terminal status.",
		},
		[]string{"status"}, // completed | failed
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_job_duration_seconds",
			Help:    "Wall time from processing to terminal status.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"status"},
	)

	researchCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_topic_calls_total",
			Help: "Per-topic research calls by outcome.",
		},
		[]string{"outcome"}, // ok | unreachable | no_results
	)

	researchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_topic_call_duration_seconds",
			Help:    "Per-topic research call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
		},
		[]string{"outcome"},
	)

	duplicateTriggers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "research_jobs_duplicate_triggers_total",
		Help: "Execution triggers rejected because the job was not pending or already locked.",
	})
)

// MustRegister registers all collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			jobsSubmitted, jobsFinished, jobDuration,
			researchCalls, researchLatency, duplicateTriggers,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncSubmitted() { jobsSubmitted.Inc() }

func ObserveJobFinished(status string, d time.Duration) {
	jobsFinished.WithLabelValues(norm(status)).Inc()
	jobDuration.WithLabelValues(norm(status)).Observe(d.Seconds())
}

func ObserveResearchCall(outcome string, d time.Duration) {
	researchCalls.WithLabelValues(norm(outcome)).Inc()
	researchLatency.WithLabelValues(norm(outcome)).Observe(d.Seconds())
}

func IncDuplicateTrigger() { duplicateTriggers.Inc() }
