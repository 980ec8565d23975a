// Package metrics exposes simulation counters on a dedicated prometheus
// registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

const namespace = "marketsim"

type Metrics struct {
	registry *prometheus.Registry

	Rounds          prometheus.Counter
	Trades          prometheus.Counter
	Volume          prometheus.Counter
	OrdersSubmitted *prometheus.CounterVec
	OrdersRejected  *prometheus.CounterVec
	OrdersDropped   *prometheus.CounterVec
	DecisionErrors  prometheus.Counter
	LastPrice       prometheus.Gauge
	DecisionSeconds prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Rounds completed.",
		}),
		Trades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Trades executed.",
		}),
		Volume: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "volume_total",
			Help:      "Units of the commodity traded.",
		}),
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Orders accepted into the book.",
		}, []string{"side"}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Orders rejected at submission.",
		}, []string{"side"}),
		OrdersDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_dropped_total",
			Help:      "Orders removed during matching because they could not settle.",
		}, []string{"side", "reason"}),
		DecisionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_errors_total",
			Help:      "Failed decision provider calls.",
		}),
		LastPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_price",
			Help:      "Price of the most recent trade.",
		}),
		DecisionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_seconds",
			Help:      "Latency of decision provider calls.",
			Buckets:   []float64{.001, .01, .1, .5, 1, 2.5, 5, 10, 30},
		}),
	}
	m.registry.MustRegister(
		m.Rounds, m.Trades, m.Volume,
		m.OrdersSubmitted, m.OrdersRejected, m.OrdersDropped,
		m.DecisionErrors, m.LastPrice, m.DecisionSeconds,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTrades(trades []orderbook.Trade) {
	for _, t := range trades {
		m.Trades.Inc()
		m.Volume.Add(float64(t.Quantity))
		m.LastPrice.Set(t.Price.InexactFloat64())
	}
}

func (m *Metrics) OrderSubmitted(side orderbook.Side) {
	m.OrdersSubmitted.WithLabelValues(side.String()).Inc()
}

func (m *Metrics) OrderRejected(side orderbook.Side) {
	m.OrdersRejected.WithLabelValues(side.String()).Inc()
}

func (m *Metrics) OrderDropped(side orderbook.Side, reason string) {
	m.OrdersDropped.WithLabelValues(side.String(), reason).Inc()
}
