package httpx

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// httpMetrics lives on the router's own registry, so building several routers
// in one process never collides on registration. A nil *httpMetrics records nothing.
type httpMetrics struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	inflight    prometheus.Gauge
	rateLimited *prometheus.CounterVec
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)
	return &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cornerstone",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cornerstone",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Handler latency by route.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "cornerstone",
			Subsystem: "api",
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served, including open session streams.",
		}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cornerstone",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected with 429 by budget.",
		}, []string{"class"}),
	}
}

func (m *httpMetrics) begin() func(method, route string, status int) {
	if m == nil {
		return func(string, string, int) {}
	}
	start := time.Now()
	m.inflight.Inc()
	return func(method, route string, status int) {
		m.inflight.Dec()
		m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *httpMetrics) limited(class rateClass) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(string(class)).Inc()
}
