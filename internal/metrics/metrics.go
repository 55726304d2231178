package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	transitionsTotal *prometheus.CounterVec
)

// Init registers the metric vectors under the configured prefix.
func Init(prefix string) {
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_status_transitions_total",
			Help: "Total number of entity status transitions",
		},
		[]string{"entity", "to", "outcome"},
	)
}

// Middleware records request count and latency per route.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		duration := time.Since(start).Seconds()

		method := c.Request().Method
		path := c.Path()
		status := strconv.Itoa(c.Response().Status)

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		return err
	}
}

// RecordTransition counts one attempted status transition and its outcome.
func RecordTransition(entity, to, outcome string) {
	if transitionsTotal == nil {
		return
	}
	transitionsTotal.WithLabelValues(entity, to, outcome).Inc()
}
