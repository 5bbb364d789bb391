// Package metrics exposes dispatch and HTTP counters in the Prometheus text
// format.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cabdispatch/internal/domain/entities"
)

const namespace = "cabdispatch"

// Metrics owns a private registry so tests can build as many as they like.
// It implements services.Notifier.
type Metrics struct {
	registry *prometheus.Registry

	tripsBooked    prometheus.Counter
	tripsCompleted prometheus.Counter
	tripDuration   prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the dispatch, HTTP and Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tripsBooked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_booked_total",
			Help:      "Trips a cab was booked for.",
		}),
		tripsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_completed_total",
			Help:      "Trips completed.",
		}),
		tripDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trip_duration_seconds",
			Help:      "Time from booking a cab to completing the trip.",
			Buckets:   []float64{60, 300, 900, 1800, 3600, 7200, 14400},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.tripsBooked,
		m.tripsCompleted,
		m.tripDuration,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) TripBooked(ctx context.Context, trip *entities.Trip, cab *entities.Cab) error {
	m.tripsBooked.Inc()
	return nil
}

func (m *Metrics) TripCompleted(ctx context.Context, trip *entities.Trip, cab *entities.Cab) error {
	m.tripsCompleted.Inc()
	m.tripDuration.Observe(trip.Duration().Seconds())
	return nil
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records every request under its route pattern, not the raw
// path, so ids do not explode the label set. Unmatched routes are "unknown".
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
