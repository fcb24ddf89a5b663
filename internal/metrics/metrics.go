package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the ingestion pipeline.
var (
	DeliveriesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookd_deliveries_received_total",
			Help: "Total number of deliveries that reached the processing pipeline",
		},
	)

	DeliveriesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookd_deliveries_processed_total",
			Help: "Total number of deliveries handled successfully",
		},
	)

	DeliveriesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookd_deliveries_skipped_total",
			Help: "Total number of deliveries acknowledged without a registered handler",
		},
	)

	DeliveriesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookd_deliveries_failed_total",
			Help: "Total number of deliveries whose handler reported a failure",
		},
	)

	DeliveriesRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookd_deliveries_rejected_total",
			Help: "Total number of requests rejected before routing (bad signature or body)",
		},
	)

	RetriesScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookd_retries_scheduled_total",
			Help: "Total number of retry entries persisted for transient failures",
		},
	)

	ProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhookd_processing_duration_seconds",
			Help:    "Duration of delivery processing (routing through audit)",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all pipeline metrics with the default registry.
func Register() {
	prometheus.MustRegister(
		DeliveriesReceived,
		DeliveriesProcessed,
		DeliveriesSkipped,
		DeliveriesFailed,
		DeliveriesRejected,
		RetriesScheduled,
		ProcessingDuration,
	)
}
