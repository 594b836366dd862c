package analyst

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rootTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessibility_batch_roots_total",
		Help: "Roots processed by batch evaluation, by outcome",
	}, []string{"result"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "accessibility_search_duration_seconds",
		Help:    "Duration of one root search plus evaluation of all targets",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	batchRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "accessibility_batch_running",
		Help: "Batch evaluations currently running",
	})
)

const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultSkipped  = "skipped"
	resultError    = "error"
)
