package blockchain

import (
	"sync"

	"github.com/bsv-blockchain/minichain/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusBlocksMined         prometheus.Counter
	prometheusMineBlockDuration   prometheus.Histogram
	prometheusInvalidTransactions prometheus.Counter
	prometheusChainHeight         prometheus.Gauge
	prometheusBlockCacheHits      prometheus.Counter
	prometheusBloomSkips          prometheus.Counter
	prometheusFindTransaction     prometheus.Histogram
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusBlocksMined = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minichain",
			Subsystem: "blockchain",
			Name:      "blocks_mined",
			Help:      "Number of blocks mined and committed",
		},
	)

	prometheusMineBlockDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "minichain",
			Subsystem: "blockchain",
			Name:      "mine_block_duration_seconds",
			Help:      "Duration of MineBlock, verification and commit included",
			Buckets:   util.MetricsBucketsSeconds,
		},
	)

	prometheusInvalidTransactions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minichain",
			Subsystem: "blockchain",
			Name:      "invalid_transactions",
			Help:      "Number of MineBlock calls rejected because of an invalid transaction",
		},
	)

	prometheusChainHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "minichain",
			Subsystem: "blockchain",
			Name:      "chain_height",
			Help:      "Height of the current tip",
		},
	)

	prometheusBlockCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minichain",
			Subsystem: "blockchain",
			Name:      "block_cache_hits",
			Help:      "Number of GetBlock calls served from the block cache",
		},
	)

	prometheusBloomSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "minichain",
			Subsystem: "blockchain",
			Name:      "bloom_skips",
			Help:      "Number of blocks skipped by FindTransaction because their filter ruled the transaction out",
		},
	)

	prometheusFindTransaction = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "minichain",
			Subsystem: "blockchain",
			Name:      "find_transaction_duration_seconds",
			Help:      "Duration of FindTransaction",
			Buckets:   util.MetricsBucketsSeconds,
		},
	)
}
