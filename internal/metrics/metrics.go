package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "path"},
	)

	// OrderOperations counts order aggregate operations by outcome (ok, invalid, not_found, conflict, error).
	OrderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_order_operations_total",
			Help: "Order aggregate operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// TxRetries counts transactions re-run after a serialization conflict.
	TxRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_tx_retries_total",
			Help: "Transactions retried after a write conflict",
		},
		[]string{"operation"},
	)

	// EventsPublished counts order events handed to the event sink.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_events_published_total",
			Help: "Order events published by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

// Middleware records request count and latency per route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := float64(time.Since(start).Milliseconds())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequests.WithLabelValues(c.Request.Method, path,
			http.StatusText(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler exposes the default registry for scraping
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
