// Package metrics holds the Prometheus collectors of the service and the
// echo middleware that records HTTP traffic. Collectors are registered on
// the default registry and exposed on GET /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicketTransitions counts committed ticket lifecycle changes.
	TicketTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partylogger_ticket_transitions_total",
			Help: "Committed ticket transitions by action and subject type",
		},
		[]string{"action", "subject"},
	)

	// StatsSoftFailures counts statistics reads that failed and were
	// answered with empty data.
	StatsSoftFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partylogger_stats_soft_failures_total",
			Help: "Statistics queries that failed and returned empty results",
		},
		[]string{"op"},
	)

	// SessionEvents counts session creations, renewals and invalidations.
	SessionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partylogger_session_events_total",
			Help: "Session lifecycle events",
		},
		[]string{"event"},
	)

	// EventPublishFailures counts ticket events that could not be handed
	// to the broker.
	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partylogger_event_publish_failures_total",
		Help: "Ticket events dropped because the broker was unreachable",
	})

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partylogger_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partylogger_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Middleware records request counts and latency. The route label is the
// echo route template (e.g. /api/admin/parties/:id), which keeps label
// cardinality bounded.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
