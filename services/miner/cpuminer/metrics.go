package cpuminer

import (
	"sync"

	"github.com/bsv-blockchain/minichain/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusHashes        prometheus.Counter
	prometheusBlocksFound   prometheus.Counter
	prometheusMiningAborted prometheus.Counter
	prometheusMineDuration  prometheus.Histogram

	// only init the metrics once
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusHashes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minichain",
			Subsystem: "cpuminer",
			Name:      "hashes",
			Help:      "Number of header hashes computed",
		},
	)
	prometheusBlocksFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minichain",
			Subsystem: "cpuminer",
			Name:      "blocks_found",
			Help:      "Number of nonce searches that found a solution",
		},
	)
	prometheusMiningAborted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minichain",
			Subsystem: "cpuminer",
			Name:      "aborted",
			Help:      "Number of nonce searches stopped by context cancellation",
		},
	)
	prometheusMineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "minichain",
			Subsystem: "cpuminer",
			Name:      "mine_duration_seconds",
			Help:      "Histogram of nonce search duration",
			Buckets:   util.MetricsBucketsSeconds,
		},
	)
}
