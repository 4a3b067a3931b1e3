package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checkout outcomes.
const (
	OutcomeConfirmed      = "confirmed"
	OutcomeReconciliation = "reconciliation_needed"
	OutcomeStockRejected  = "stock_rejected"
	OutcomeTokenRejected  = "token_rejected"
	OutcomeFailed         = "failed"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toyshop_checkouts_total",
			Help: "Checkout attempts by outcome",
		},
		[]string{"outcome"},
	)

	stockDecrementFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "toyshop_stock_decrement_failures_total",
			Help: "Order lines whose conditional stock decrement failed",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(checkoutsTotal)
	prometheus.MustRegister(stockDecrementFailuresTotal)
}

// Middleware records request counts and latency per route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		httpRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// RecordCheckout counts a checkout by outcome.
func RecordCheckout(outcome string) {
	checkoutsTotal.WithLabelValues(outcome).Inc()
}

// RecordDecrementFailure counts one failed line decrement.
func RecordDecrementFailure() {
	stockDecrementFailuresTotal.Inc()
}
