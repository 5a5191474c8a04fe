package utxoset

import (
	"sync"

	"github.com/bsv-blockchain/minichain/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusReindexDuration prometheus.Histogram
	prometheusUpdateDuration  prometheus.Histogram
	prometheusReindexes       prometheus.Counter
	prometheusEntries         prometheus.Gauge
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusReindexDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "minichain",
			Subsystem: "utxoset",
			Name:      "reindex_duration_seconds",
			Help:      "Duration of a full UTXO index rebuild",
			Buckets:   util.MetricsBucketsSeconds,
		},
	)

	prometheusUpdateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "minichain",
			Subsystem: "utxoset",
			Name:      "update_duration_seconds",
			Help:      "Duration of folding one block into the UTXO index",
			Buckets:   util.MetricsBucketsSeconds,
		},
	)

	prometheusReindexes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minichain",
			Subsystem: "utxoset",
			Name:      "reindexes",
			Help:      "Full UTXO index rebuilds started",
		},
	)

	prometheusEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "minichain",
			Subsystem: "utxoset",
			Name:      "entries",
			Help:      "Transactions with unspent outputs after the last reindex",
		},
	)
}
