package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConnectionState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "realtime_connection_state",
		Help: "Connection state per channel (0 closed, 1 connecting, 2 open, 3 closing)",
	}, []string{"channel"})
	ReconnectAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_reconnect_attempts_total",
		Help: "Total number of scheduled reconnect attempts",
	}, []string{"channel"})
	EnvelopesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_envelopes_total",
		Help: "Total number of inbound envelopes dispatched to a handler",
	}, []string{"channel", "type"})
	EnvelopesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_envelopes_dropped_total",
		Help: "Total number of inbound envelopes discarded",
	}, []string{"channel", "reason"})
	OutboundTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_outbound_total",
		Help: "Total number of outbound envelopes queued on a transport",
	}, []string{"channel", "type"})
	OutboundDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_outbound_dropped_total",
		Help: "Total number of outbound envelopes dropped before reaching a transport",
	}, []string{"channel", "reason"})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		ConnectionState, ReconnectAttempts,
		EnvelopesTotal, EnvelopesDropped,
		OutboundTotal, OutboundDropped,
		HttpRequestsTotal, HttpRequestDuration,
	)
}

// GinMiddleware 记录视图服务的请求数和耗时。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
