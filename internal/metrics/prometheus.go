package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tgeclaim/engine/internal/store"
)

// PrometheusCollector mirrors the tracker into Prometheus metrics. The
// in-process snapshot keeps serving the UI.
type PrometheusCollector struct {
	tracker  *MetricsTracker
	registry *prometheus.Registry

	batches       *prometheus.CounterVec
	items         *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	rejected      prometheus.Counter
	walletUp      prometheus.Gauge
	uptimeSeconds prometheus.GaugeFunc
}

// NewPrometheusCollector wraps tracker. Metrics live in a dedicated
// registry rather than the global one.
func NewPrometheusCollector(tracker *MetricsTracker) *PrometheusCollector {
	reg := prometheus.NewRegistry()

	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tgeclaim",
		Name:      "batches_total",
		Help:      "Settled claim batches by strategy.",
	}, []string{"strategy"})

	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tgeclaim",
		Name:      "items_total",
		Help:      "Settled items by outcome.",
	}, []string{"outcome"})

	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tgeclaim",
		Name:      "batch_duration_seconds",
		Help:      "Time to settle a batch.",
		Buckets:   []float64{0.1, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 5},
	}, []string{"strategy"})

	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tgeclaim",
		Name:      "rejected_total",
		Help:      "Submissions refused before settlement.",
	})

	walletUp := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tgeclaim",
		Name:      "wallet_connected",
		Help:      "1 when the wallet session is connected.",
	})

	start := time.Now()
	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "tgeclaim",
		Name:      "uptime_seconds",
		Help:      "Time since the engine started in seconds.",
	}, func() float64 { return time.Since(start).Seconds() })

	reg.MustRegister(batches, items, batchDuration, rejected, walletUp, uptime)

	return &PrometheusCollector{
		tracker:       tracker,
		registry:      reg,
		batches:       batches,
		items:         items,
		batchDuration: batchDuration,
		rejected:      rejected,
		walletUp:      walletUp,
		uptimeSeconds: uptime,
	}
}

// Tracker returns the wrapped tracker.
func (p *PrometheusCollector) Tracker() *MetricsTracker {
	return p.tracker
}

// Registry returns the Prometheus registry used by this collector.
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

// RecordBatch records a batch in both the tracker and Prometheus.
func (p *PrometheusCollector) RecordBatch(strategy string, results []store.SettlementResult, elapsed time.Duration) BatchRecord {
	rec := p.tracker.RecordBatch(strategy, results, elapsed)

	p.batches.WithLabelValues(strategy).Inc()
	p.items.WithLabelValues(OutcomeSucceeded).Add(float64(rec.Succeeded))
	p.items.WithLabelValues(OutcomeFailed).Add(float64(rec.Failed))
	p.items.WithLabelValues(OutcomeStaked).Add(float64(rec.Staked))
	p.batchDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())

	return rec
}

// IncrementRejected counts a refused submission.
func (p *PrometheusCollector) IncrementRejected() {
	p.tracker.IncrementRejected()
	p.rejected.Inc()
}

// SetWallet records the wallet state.
func (p *PrometheusCollector) SetWallet(s store.WalletState) {
	p.tracker.SetWalletStatus(WalletStatus(s))
	if s.Connected {
		p.walletUp.Set(1)
	} else {
		p.walletUp.Set(0)
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (p *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
