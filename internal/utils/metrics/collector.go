// internal/utils/metrics/collector.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus vectors for RPC traffic, submitted
// transactions and compression outcomes. A nil *Collector records nothing.
type Collector struct {
	registry prometheus.Gatherer

	rpcCalls            *prometheus.CounterVec
	rpcLatency          *prometheus.HistogramVec
	transactionCounter  *prometheus.CounterVec
	transactionDuration *prometheus.HistogramVec
	compressions        *prometheus.CounterVec
}

// NewCollector registers all collectors on a fresh registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		rpcCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compressor_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		rpcLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "compressor_rpc_latency_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),
		transactionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compressor_transactions_total",
				Help: "Transactions submitted through the wallet provider by kind and status",
			},
			[]string{"kind", "status"},
		),
		transactionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "compressor_transaction_duration_seconds",
				Help:    "Time from submission to confirmation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		compressions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compressor_compressions_total",
				Help: "Compression workflow outcomes",
			},
			[]string{"result"},
		),
	}
}

// RecordRPCCall records one RPC round trip.
func (c *Collector) RecordRPCCall(method string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.rpcCalls.WithLabelValues(method, status).Inc()
	c.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordTransaction records a submitted transaction of the given kind.
func (c *Collector) RecordTransaction(kind string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	c.transactionCounter.WithLabelValues(kind, status).Inc()
	c.transactionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordCompression records a finished compression attempt.
func (c *Collector) RecordCompression(result string) {
	if c == nil {
		return
	}
	c.compressions.WithLabelValues(result).Inc()
}

// Handler exposes the collector's registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
