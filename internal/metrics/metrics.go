package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophercheckout"

// Collectors groups the service's Prometheus instruments on a private registry.
// A nil *Collectors is valid and records nothing.
type Collectors struct {
	registry *prometheus.Registry

	checkouts          *prometheus.CounterVec
	paymentTransitions *prometheus.CounterVec
	gatewayLatency     *prometheus.HistogramVec
	tokenRefreshes     *prometheus.CounterVec
	reconciliations    *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
}

// New creates collectors registered on a fresh registry.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		paymentTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_transitions_total",
			Help:      "Applied payment status transitions.",
		}, []string{"method", "status"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of outbound gateway calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "operation", "outcome"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_token_refreshes_total",
			Help:      "OAuth token refresh attempts by outcome.",
		}, []string{"outcome"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation attempts by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.checkouts,
		c.paymentTransitions,
		c.gatewayLatency,
		c.tokenRefreshes,
		c.reconciliations,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collectors) CheckoutOutcome(outcome string) {
	if c == nil {
		return
	}
	c.checkouts.WithLabelValues(outcome).Inc()
}

func (c *Collectors) PaymentTransition(method, status string) {
	if c == nil {
		return
	}
	c.paymentTransitions.WithLabelValues(method, status).Inc()
}

func (c *Collectors) GatewayCall(method, operation, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.gatewayLatency.WithLabelValues(method, operation, outcome).Observe(elapsed.Seconds())
}

func (c *Collectors) TokenRefresh(outcome string) {
	if c == nil {
		return
	}
	c.tokenRefreshes.WithLabelValues(outcome).Inc()
}

func (c *Collectors) Reconciliation(trigger, outcome string) {
	if c == nil {
		return
	}
	c.reconciliations.WithLabelValues(trigger, outcome).Inc()
}

func (c *Collectors) HTTPRequest(route, status string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(route, status).Inc()
	c.httpLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}
