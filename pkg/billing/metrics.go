package billing

import (
	"github.com/prometheus/client_golang/prometheus"
)

const prometheusMetricNamespace = "cost_reporting"

var (
	ingestsTotalCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "ingests_total",
			Help:      "Number of billing export ingests attempted.",
		},
	)

	ingestsFailedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "ingests_failed_total",
			Help:      "Number of billing export ingests that failed.",
		},
	)

	ingestDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration to ingest a billing export.",
			Buckets:   []float64{1.0, 5.0, 30.0, 60.0, 300.0},
		},
	)

	billingRowsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "billing_rows",
			Help:      "Number of usage line items in the billing table after the last successful ingest.",
		},
	)

	queryPrometheusMetricLabels = []string{"operation"}

	queriesTotalCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "queries_total",
			Help:      "Number of cost aggregate queries.",
		},
		queryPrometheusMetricLabels,
	)

	queriesFailedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "queries_failed_total",
			Help:      "Number of cost aggregate queries that failed.",
		},
		queryPrometheusMetricLabels,
	)
)

func init() {
	prometheus.MustRegister(ingestsTotalCounter)
	prometheus.MustRegister(ingestsFailedCounter)
	prometheus.MustRegister(ingestDurationHistogram)
	prometheus.MustRegister(billingRowsGauge)
	prometheus.MustRegister(queriesTotalCounter)
	prometheus.MustRegister(queriesFailedCounter)
}
