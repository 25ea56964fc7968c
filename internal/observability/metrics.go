package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()

	pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exireq",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome and error kind.",
		},
		[]string{"outcome", "error_kind"},
	)
	pipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "exireq",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one pipeline run in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exireq",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
		[]string{"stage"},
	)
	encodedBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "exireq",
			Subsystem: "encoder",
			Name:      "output_bytes",
			Help:      "Size of encoded records before base64.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		registry.MustRegister(pipelineRuns, pipelineDuration, stageDuration, encodedBytes)
	})
}

// RecordRun counts one finished run. kind is empty on success.
func RecordRun(kind string, duration time.Duration) {
	RegisterMetrics()
	outcome := "ok"
	if kind != "" {
		outcome = "error"
	}
	pipelineRuns.WithLabelValues(outcome, kind).Inc()
	pipelineDuration.Observe(duration.Seconds())
}

func RecordStage(stage string, duration time.Duration) {
	RegisterMetrics()
	stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func RecordEncodedBytes(n int) {
	RegisterMetrics()
	encodedBytes.Observe(float64(n))
}

// WriteTextfile dumps every metric to path in Prometheus text format, for
// pickup by a node exporter textfile collector.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, registry)
}
