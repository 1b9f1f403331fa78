// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eduportal_store_operations_total",
		Help: "Collection store operations by collection, operation and result",
	}, []string{"collection", "operation", "result"})

	StoreRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "eduportal_store_records",
		Help: "Number of records currently held by each collection",
	}, []string{"collection"})

	PersistDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eduportal_store_persist_seconds",
		Help:    "Latency of whole-collection persistence writes",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"collection"})

	HTTPAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eduportal_http_attempts_total",
		Help: "Outbound HTTP attempts by outcome",
	}, []string{"outcome"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eduportal_notifications_total",
		Help: "Reminder and digest deliveries by channel and result",
	}, []string{"channel", "result"})
)

// Result maps an error to a metric label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
