// file: internal/metrics/metrics.go
// version: 1.0.0
// guid: 2d3e4f5a-6b7c-8d9e-0f1a-2b3c4d5e6f7a

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	emailsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fleetdocs",
		Name:      "emails_processed_total",
		Help:      "Total number of emails fully processed and filed",
	})
	emailsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetdocs",
		Name:      "emails_skipped_total",
		Help:      "Total number of emails skipped by reason",
	}, []string{"reason"})
	emailsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fleetdocs",
		Name:      "emails_failed_total",
		Help:      "Total number of emails that failed processing",
	})
	resolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetdocs",
		Name:      "company_resolutions_total",
		Help:      "Total company name resolutions by match kind",
	}, []string{"kind"})
	uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetdocs",
		Name:      "uploads_total",
		Help:      "Total documents uploaded by bucket",
	}, []string{"bucket"})
	searchQueries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fleetdocs",
		Name:      "search_queries_total",
		Help:      "Total document search queries served",
	})
	processDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fleetdocs",
		Name:      "email_process_duration_seconds",
		Help:      "Histogram of per-email processing durations in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 1.6, 10),
	})
	searchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fleetdocs",
		Name:      "search_duration_seconds",
		Help:      "Histogram of search durations in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})
	registrySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fleetdocs",
		Name:      "company_registry_keys",
		Help:      "Number of canonical company keys in the current registry snapshot",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(emailsProcessed, emailsSkipped, emailsFailed,
			resolutions, uploads, searchQueries, processDuration, searchDuration,
			registrySize)
	})
}

// Ingestion helpers
func IncEmailProcessed()             { emailsProcessed.Inc() }
func IncEmailSkipped(reason string)  { emailsSkipped.WithLabelValues(reason).Inc() }
func IncEmailFailed()                { emailsFailed.Inc() }
func IncResolution(kind string)      { resolutions.WithLabelValues(kind).Inc() }
func IncUpload(bucket string)        { uploads.WithLabelValues(bucket).Inc() }
func ObserveProcess(d time.Duration) { processDuration.Observe(d.Seconds()) }

// Retrieval helpers
func IncSearchQuery()               { searchQueries.Inc() }
func ObserveSearch(d time.Duration) { searchDuration.Observe(d.Seconds()) }

// Registry helpers
func SetRegistrySize(n int) { registrySize.Set(float64(n)) }
