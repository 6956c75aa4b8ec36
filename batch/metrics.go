package batch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	filesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "styler",
			Subsystem: "batch",
			Name:      "files_total",
			Help:      "Files processed, by outcome",
		},
		[]string{"status"},
	)

	fileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "styler",
			Subsystem: "batch",
			Name:      "file_duration_seconds",
			Help:      "Wall-clock time per file",
			Buckets:   prometheus.DefBuckets,
		},
	)

	reservedBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "styler",
			Subsystem: "batch",
			Name:      "reserved_bytes",
			Help:      "Bytes currently reserved in the admission pool",
		},
	)

	throttlePauses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "styler",
			Subsystem: "batch",
			Name:      "throttle_pauses_total",
			Help:      "Admissions delayed by memory pressure",
		},
	)
)

func init() {
	prometheus.MustRegister(filesTotal, fileDuration, reservedBytes, throttlePauses)
}
