package metrics

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunehire_http_requests_total",
			Help: "Total HTTP requests by method, path and status.",
		},
		[]string{"method", "path", "status"},
	)

	OrdersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunehire_orders_created_total",
			Help: "Total orders created.",
		},
	)

	PayoutsRequestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunehire_payouts_requested_total",
			Help: "Total payout requests created.",
		},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunehire_webhook_events_total",
			Help: "Payment provider webhook events by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
)

// RequestCounter is an echo middleware recording per-route request counts.
func RequestCounter(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		HTTPRequestsTotal.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
		return err
	}
}

// Handler exposes the Prometheus scrape endpoint on an echo route.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
