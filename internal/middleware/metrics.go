package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_http_requests_total",
		Help: "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	importRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_import_rows_total",
		Help: "Import pipeline row outcomes by import type and result.",
	}, []string{"import_type", "result"})
)

// Metrics records request counts and latency per route. Route templates
// (":id" style) keep the label cardinality bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordImportRows feeds the import pipeline counters after a run.
func RecordImportRows(importType string, imported, failed int) {
	importRowsTotal.WithLabelValues(importType, "imported").Add(float64(imported))
	importRowsTotal.WithLabelValues(importType, "failed").Add(float64(failed))
}
