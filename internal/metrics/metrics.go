// Package metrics exposes Prometheus collectors for the HTTP API and the
// booking event stream.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one server instance.  Each instance
// owns its registry so several servers can coexist in one process.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RecordsCreated  *prometheus.CounterVec
	RecordsDeleted  *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "restaurant_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "restaurant_http_request_duration_seconds",
			Help:    "Duration of HTTP request handling",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RecordsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "restaurant_records_created_total",
			Help: "Records created through the API by resource",
		}, []string{"resource"}),
		RecordsDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "restaurant_records_deleted_total",
			Help: "Records deleted through the API by resource",
		}, []string{"resource"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "restaurant_events_published_total",
			Help: "Booking events handed to the broker by result",
		}, []string{"result"}),
	}
}

// Created counts a record created for resource.
func (m *Metrics) Created(resource string) {
	if m != nil {
		m.RecordsCreated.WithLabelValues(resource).Inc()
	}
}

// Deleted counts a record deleted for resource.
func (m *Metrics) Deleted(resource string) {
	if m != nil {
		m.RecordsDeleted.WithLabelValues(resource).Inc()
	}
}

// Published counts a publish attempt; err nil means success.
func (m *Metrics) Published(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(result).Inc()
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}
