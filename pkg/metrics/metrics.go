// Package metrics provides Prometheus metrics for link runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LinkRunsTotal tracks link runs by final status
	LinkRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parklink",
			Subsystem: "linking",
			Name:      "runs_total",
			Help:      "Total number of link runs by status",
		},
		[]string{"status"},
	)

	// LinkRunDuration tracks the duration of the linking pass in seconds
	LinkRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "parklink",
			Subsystem: "linking",
			Name:      "run_duration_seconds",
			Help:      "Duration of link runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// ParksEvaluatedTotal tracks federal parks evaluated across all runs
	ParksEvaluatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parklink",
			Subsystem: "linking",
			Name:      "parks_evaluated_total",
			Help:      "Total number of federal parks evaluated",
		},
	)

	// LinksCreatedTotal tracks links produced across all runs
	LinksCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parklink",
			Subsystem: "linking",
			Name:      "links_total",
			Help:      "Total number of links produced",
		},
	)

	// LinkConfidence tracks the confidence distribution of produced links
	LinkConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "parklink",
			Subsystem: "linking",
			Name:      "link_confidence",
			Help:      "Confidence score of produced links",
			Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 0.99, 1},
		},
	)

	// KafkaMessagesPublished tracks messages published to Kafka
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parklink",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordLinkRun records the outcome of a finished run
func RecordLinkRun(status string, durationSeconds float64, evaluated int, confidences []float64) {
	LinkRunsTotal.WithLabelValues(status).Inc()
	LinkRunDuration.Observe(durationSeconds)
	ParksEvaluatedTotal.Add(float64(evaluated))
	LinksCreatedTotal.Add(float64(len(confidences)))
	for _, c := range confidences {
		LinkConfidence.Observe(c)
	}
}

// RecordKafkaPublish records a Kafka publish attempt
func RecordKafkaPublish(topic, status string, count int) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Add(float64(count))
}

// Handler serves the registered metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
