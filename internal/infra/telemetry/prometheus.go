package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"figmamcp/internal/domain"
)

type PrometheusMetrics struct {
	apiDuration       *prometheus.HistogramVec
	apiRequests       *prometheus.CounterVec
	exportsRegistered *prometheus.CounterVec
	resourceFetches   *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	cachedResources   prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		apiDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "figmamcp_api_request_duration_seconds",
				Help:    "Duration of Figma API requests in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		apiRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "figmamcp_api_requests_total",
				Help: "Total number of Figma API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		exportsRegistered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "figmamcp_exports_registered_total",
				Help: "Total number of exported images registered as resources",
			},
			[]string{"format"},
		),
		resourceFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "figmamcp_resource_fetches_total",
				Help: "Total number of resource reads by outcome",
			},
			[]string{"result"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "figmamcp_resource_fetch_duration_seconds",
				Help:    "Duration of resource reads in seconds",
				Buckets: []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"result"},
		),
		cachedResources: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "figmamcp_cached_resources",
				Help: "Current number of registered export resources",
			},
		),
	}
}

// ObserveAPIRequest records one API call. A zero status means the request
// never produced a response.
func (p *PrometheusMetrics) ObserveAPIRequest(endpoint string, status int, duration time.Duration, err error) {
	label := strconv.Itoa(status)
	if status == 0 {
		label = "error"
		if err == nil {
			label = "unknown"
		}
	}
	p.apiDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	p.apiRequests.WithLabelValues(endpoint, label).Inc()
}

func (p *PrometheusMetrics) ObserveExportRegistered(format string) {
	p.exportsRegistered.WithLabelValues(format).Inc()
}

func (p *PrometheusMetrics) ObserveResourceFetch(result domain.FetchResult, duration time.Duration) {
	p.resourceFetches.WithLabelValues(string(result)).Inc()
	p.fetchDuration.WithLabelValues(string(result)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) SetCachedResources(count int) {
	p.cachedResources.Set(float64(count))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
