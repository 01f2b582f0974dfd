package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "goshop"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// ShopMetrics counts business events of the checkout pipeline.
type ShopMetrics struct {
	CheckoutOutcomes *prometheus.CounterVec
	OrdersPublished  prometheus.Counter
	InvoicesRendered *prometheus.CounterVec
}

func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "resolutions_total",
		Help:      "Checkout session resolutions by outcome.",
	}, []string{"outcome"})
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "outbox_published_total",
		Help:      "Order events published from the outbox.",
	})
	rendered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "invoice",
		Name:      "rendered_total",
		Help:      "Invoices rendered by trigger.",
	}, []string{"trigger"})

	reg.MustRegister(outcomes, published, rendered)
	return &ShopMetrics{CheckoutOutcomes: outcomes, OrdersPublished: published, InvoicesRendered: rendered}
}

func (m *ShopMetrics) CheckoutResolved(outcome string) {
	m.CheckoutOutcomes.WithLabelValues(outcome).Inc()
}

func (m *ShopMetrics) OrderPublished() {
	m.OrdersPublished.Inc()
}

func (m *ShopMetrics) InvoiceRendered(trigger string) {
	m.InvoicesRendered.WithLabelValues(trigger).Inc()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
