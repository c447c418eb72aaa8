package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus collectors shared by the pipelines and the read API.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	RequestSeconds   *prometheus.HistogramVec
	APIErrors        *prometheus.CounterVec
	PagesFetched     prometheus.Counter
	RecordsCollected prometheus.Counter
	RecordsSkipped   prometheus.Counter
	APIRequests      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		UpstreamRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "poimap_upstream_requests_total",
			Help: "Total number of requests sent to upstream map services.",
		}, []string{"operation", "outcome"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "poimap_upstream_request_duration_seconds",
			Help:    "Duration of requests to upstream map services.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		APIErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "poimap_upstream_errors_total",
			Help: "Total number of upstream failures by category.",
		}, []string{"category"}),
		PagesFetched: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "poimap_collector_pages_fetched_total",
			Help: "Total number of POI search pages fetched successfully.",
		}),
		RecordsCollected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "poimap_collector_records_total",
			Help: "Total number of POI records collected.",
		}),
		RecordsSkipped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "poimap_collector_records_skipped_total",
			Help: "Total number of POI entries skipped because of an unparsable location.",
		}),
		APIRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "poimap_api_requests_total",
			Help: "Total number of read API requests served.",
		}, []string{"route", "code"}),
	}
}
