package transport

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the request counters of an HTTP transport
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the transport metrics with reg. A nil reg uses the
// default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		// requests counts calls by method and status code (0 for network errors)
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nanorest_requests_total",
			Help: "Total REST requests by method and status code",
		}, []string{"method", "code"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nanorest_request_duration_seconds",
			Help:    "REST request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"method"}),
	}
}

func (m *Metrics) observe(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Collectors returns the underlying collectors, request counter first
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.duration}
}
