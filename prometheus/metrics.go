package prometheus

import (
	"time"

	"offer-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Offer lifecycle metrics
	OfferOperationsCounter prometheus.CounterVec

	// External collaborator metrics (ai, pdf, crm)
	UpstreamCallsCounter prometheus.CounterVec
	UpstreamCallDuration prometheus.HistogramVec

	// Offer counts by status
	OffersByStatusGauge prometheus.GaugeVec

	// CRM read-cache sizes
	CachedCompaniesGauge prometheus.Gauge
	CachedContactsGauge  prometheus.Gauge
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Offer lifecycle metrics
	OfferOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_operations_total",
			Help: "Total number of offer operations",
		},
		[]string{"operation"},
	)

	// External collaborator metrics
	UpstreamCallsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_upstream_calls_total",
			Help: "Total number of calls to external services",
		},
		[]string{"service", "outcome"},
	)

	UpstreamCallDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_upstream_call_duration_seconds",
			Help:    "Duration of calls to external services in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// Offer counts by status
	OffersByStatusGauge = *promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_offers_by_status",
			Help: "Number of offers per status",
		},
		[]string{"status"},
	)

	// CRM read-cache sizes
	CachedCompaniesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_cached_companies",
			Help: "Number of companies in the CRM read cache",
		},
	)

	CachedContactsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_cached_contacts",
			Help: "Number of contacts in the CRM read cache",
		},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordOfferOperation increments the counter for offer operations
func RecordOfferOperation(operation string) {
	OfferOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordUpstreamCall increments the counter for an external service call
func RecordUpstreamCall(service, outcome string) {
	UpstreamCallsCounter.WithLabelValues(service, outcome).Inc()
}

// TrackUpstreamCall returns a function that records the duration of an external service call
func TrackUpstreamCall(service string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		UpstreamCallDuration.WithLabelValues(service).Observe(duration)
	}
}

// UpdateOffersByStatus updates the gauge for offers per status
func UpdateOffersByStatus(status string, count int) {
	OffersByStatusGauge.WithLabelValues(status).Set(float64(count))
}

// UpdateCacheSizes updates the CRM read-cache gauges
func UpdateCacheSizes(companies, contacts int) {
	CachedCompaniesGauge.Set(float64(companies))
	CachedContactsGauge.Set(float64(contacts))
}
