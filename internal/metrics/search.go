package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopsearch",
			Name:      "searches_total",
			Help:      "Total number of searches by outcome",
		},
		[]string{"outcome"}, // "vector" / "fallback" / "empty"
	)

	SyncedProductsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopsearch",
			Name:      "synced_products_total",
			Help:      "Products processed by the sync engine",
		},
		[]string{"result"}, // "indexed" / "skipped" / "failed"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SyncedProductsTotal)
	searchMetricsRegistered = true
}
