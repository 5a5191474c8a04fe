package util

var (
	// MetricsBucketsSeconds spans sub-millisecond store calls up to multi-minute mining runs.
	MetricsBucketsSeconds = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300}

	// MetricsBucketsMilliSeconds is used for per-transaction work.
	MetricsBucketsMilliSeconds = []float64{0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000}
)
