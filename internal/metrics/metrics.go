// Package metrics exposes Prometheus counters for the booking engine and the
// HTTP surface. Scrape GET /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BookingRequests counts create attempts by outcome ("created" or an error kind).
	BookingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homeman",
			Subsystem: "bookings",
			Name:      "requests_total",
			Help:      "Booking create attempts by outcome.",
		},
		[]string{"outcome"},
	)

	BookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homeman",
			Subsystem: "bookings",
			Name:      "transitions_total",
			Help:      "Bookings resolved by target status.",
		},
		[]string{"status"},
	)

	Ratings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homeman",
			Subsystem: "ratings",
			Name:      "submitted_total",
			Help:      "Ratings submitted by value.",
		},
		[]string{"value"},
	)

	ModerationActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homeman",
			Subsystem: "admin",
			Name:      "actions_total",
			Help:      "Admin moderation actions by type.",
		},
		[]string{"action"},
	)

	WindowSweeps = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "homeman",
		Subsystem: "bookings",
		Name:      "window_resets_total",
		Help:      "Request windows reset by the sweep worker.",
	})

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "homeman",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Registry is private to the service so tests can create handlers freely.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Registry.MustRegister(
		BookingRequests,
		BookingTransitions,
		Ratings,
		ModerationActions,
		WindowSweeps,
		RequestDuration,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Middleware records request latency labelled by route pattern, not raw path.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		route := c.Route().Path
		RequestDuration.WithLabelValues(c.Method(), route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}
