package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portfolio_bridge"

// Result labels shared by the counters.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Metrics groups the collectors of the process. A nil *Metrics is valid and records nothing.
type Metrics struct {
	PriceFetchTotal      *prometheus.CounterVec
	PriceFetchDuration   prometheus.Histogram
	BridgeQuoteTotal     *prometheus.CounterVec
	BridgeQuoteDuration  prometheus.Histogram
	BridgeExecutionTotal *prometheus.CounterVec
	PortfolioTotal       prometheus.Gauge
	StaleDiscarded       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PriceFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_fetch_total",
			Help:      "Price feed fetches by result.",
		}, []string{"result"}),
		PriceFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "price_fetch_duration_seconds",
			Help:      "Latency of price feed fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		BridgeQuoteTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_quote_total",
			Help:      "Bridge quote requests by result.",
		}, []string{"result"}),
		BridgeQuoteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bridge_quote_duration_seconds",
			Help:      "Latency of routing provider quote calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		BridgeExecutionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_execution_total",
			Help:      "Bridge execution attempts by result.",
		}, []string{"result"}),
		PortfolioTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_total_balance_usd",
			Help:      "Total balance of the last published portfolio snapshot.",
		}),
		StaleDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_discarded_total",
			Help:      "Results dropped because a newer request superseded them.",
		}, []string{"source"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.PriceFetchTotal,
			m.PriceFetchDuration,
			m.BridgeQuoteTotal,
			m.BridgeQuoteDuration,
			m.BridgeExecutionTotal,
			m.PortfolioTotal,
			m.StaleDiscarded,
		)
	}
	return m
}

func (m *Metrics) ObservePriceFetch(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PriceFetchTotal.WithLabelValues(result).Inc()
	m.PriceFetchDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveBridgeQuote(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BridgeQuoteTotal.WithLabelValues(result).Inc()
	if elapsed > 0 {
		m.BridgeQuoteDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObserveBridgeExecution(result string) {
	if m == nil {
		return
	}
	m.BridgeExecutionTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetPortfolioTotal(v float64) {
	if m == nil {
		return
	}
	m.PortfolioTotal.Set(v)
}

func (m *Metrics) StaleResultDiscarded(source string) {
	if m == nil {
		return
	}
	m.StaleDiscarded.WithLabelValues(source).Inc()
}
