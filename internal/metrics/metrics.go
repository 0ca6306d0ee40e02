// Package metrics holds the Prometheus instruments for order flow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"papertrade/internal/resilience"
)

// Rejection reasons used as label values.
const (
	ReasonInvalid      = "invalid_order"
	ReasonFunds        = "insufficient_funds"
	ReasonQuantity     = "insufficient_quantity"
	ReasonRisk         = "risk_limit"
	ReasonConfirmation = "confirmation_required"
	ReasonVenue        = "venue_rejected"
	ReasonOther        = "other"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	OrdersTotal     *prometheus.CounterVec // labels: side, mode
	RejectionsTotal *prometheus.CounterVec // labels: reason
	PriceFallbacks  prometheus.Counter
	PriceLookupDur  prometheus.Histogram
	JournalErrors   prometheus.Counter

	Cash          prometheus.Gauge
	RealizedPnL   prometheus.Gauge
	OpenPositions prometheus.Gauge

	BreakerState *prometheus.GaugeVec // labels: name; 0=closed, 1=open, 2=half-open

	registry *prometheus.Registry
}

// New creates the metrics and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrade_orders_total",
			Help: "Orders filled, by side and trading mode",
		}, []string{"side", "mode"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrade_rejections_total",
			Help: "Orders refused before execution, by reason",
		}, []string{"reason"}),
		PriceFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_price_fallbacks_total",
			Help: "Positions valued at average cost because no price was available",
		}),
		PriceLookupDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "papertrade_price_lookup_duration_seconds",
			Help:    "Latency of a single price lookup",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}),
		JournalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_journal_errors_total",
			Help: "Fills that could not be written to the journal",
		}),
		Cash: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_cash",
			Help: "Available cash in the paper account",
		}),
		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_realized_pnl",
			Help: "Lifetime realized profit and loss",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrade_open_positions",
			Help: "Number of open positions",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "papertrade_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.OrdersTotal,
		m.RejectionsTotal,
		m.PriceFallbacks,
		m.PriceLookupDur,
		m.JournalErrors,
		m.Cash,
		m.RealizedPnL,
		m.OpenPositions,
		m.BreakerState,
	)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFill counts a filled order.
func (m *Metrics) ObserveFill(side, mode string) {
	m.OrdersTotal.WithLabelValues(side, mode).Inc()
}

// ObserveRejection counts a refused order.
func (m *Metrics) ObserveRejection(reason string) {
	m.RejectionsTotal.WithLabelValues(reason).Inc()
}

// ObservePriceLookup records how long a lookup took and whether it fell back.
func (m *Metrics) ObservePriceLookup(d time.Duration, fallback bool) {
	m.PriceLookupDur.Observe(d.Seconds())
	if fallback {
		m.PriceFallbacks.Inc()
	}
}

// SetAccount publishes the account gauges.
func (m *Metrics) SetAccount(cash, realized decimal.Decimal, open int) {
	m.Cash.Set(cash.InexactFloat64())
	m.RealizedPnL.Set(realized.InexactFloat64())
	m.OpenPositions.Set(float64(open))
}

// BreakerStateChange is a resilience.Config.OnStateChange hook.
func (m *Metrics) BreakerStateChange(name string, _, to resilience.State) {
	var v float64
	switch to {
	case resilience.StateOpen:
		v = 1
	case resilience.StateHalfOpen:
		v = 2
	}
	m.BreakerState.WithLabelValues(name).Set(v)
}

// WriteTextfile writes the current values in the Prometheus text format,
// suitable for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
