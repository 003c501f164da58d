// Package observability exposes the Prometheus metrics of the dashboard.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and
// records nothing, which keeps services usable in tests without a registry.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Audit metrics
	AuditEntriesTotal        *prometheus.CounterVec
	AuditWriteErrorsTotal    prometheus.Counter
	ChangeRenderFallbacks    *prometheus.CounterVec
	SchemaDocumentsServed    *prometheus.CounterVec
	RelatedFormsSkippedTotal prometheus.Counter
}

// NewMetrics creates a registry with the process collectors and registers
// all dashboard metrics on it.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		AuditEntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_audit_entries_total",
				Help: "Total number of audit log entries written",
			},
			[]string{"action"},
		),
		AuditWriteErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dashboard_audit_write_errors_total",
				Help: "Total number of audit log entries that could not be written",
			},
		),
		ChangeRenderFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_change_message_render_fallbacks_total",
				Help: "Total number of change messages rendered with a fallback",
			},
			[]string{"reason"},
		),
		SchemaDocumentsServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_schema_documents_served_total",
				Help: "Total number of API schema documents served",
			},
			[]string{"category"},
		),
		RelatedFormsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dashboard_related_forms_skipped_total",
				Help: "Total number of related-object changes left out of a change message",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuditEntriesTotal,
		m.AuditWriteErrorsTotal,
		m.ChangeRenderFallbacks,
		m.SchemaDocumentsServed,
		m.RelatedFormsSkippedTotal,
	)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency per route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// AuditEntry counts a written audit entry by action name.
func (m *Metrics) AuditEntry(action string) {
	if m == nil {
		return
	}
	m.AuditEntriesTotal.WithLabelValues(action).Inc()
}

// AuditWriteFailed counts an audit entry that was dropped.
func (m *Metrics) AuditWriteFailed() {
	if m == nil {
		return
	}
	m.AuditWriteErrorsTotal.Inc()
}

// RenderFallback counts a degraded change message rendering.
func (m *Metrics) RenderFallback(reason string) {
	if m == nil {
		return
	}
	m.ChangeRenderFallbacks.WithLabelValues(reason).Inc()
}

// SchemaServed counts a served schema document for category.
func (m *Metrics) SchemaServed(category string) {
	if m == nil {
		return
	}
	m.SchemaDocumentsServed.WithLabelValues(category).Inc()
}

// RelatedFormSkipped counts a related-object change that could not be resolved.
func (m *Metrics) RelatedFormSkipped() {
	if m == nil {
		return
	}
	m.RelatedFormsSkippedTotal.Inc()
}
