// Copyright 2025 Certen Protocol
//
// Prometheus metrics. The teacher lists github.com/prometheus/client_golang
// in go.mod but never wires it into a running handler; this gives the
// dependency a real home instead of dropping it.

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the counters and histograms the rollup exposes at
// /metrics.
type Metrics struct {
	TxSubmitted   *prometheus.CounterVec
	DepositsTotal prometheus.Counter
	BatchesClosed prometheus.Counter
	ProveDuration prometheus.Histogram
}

// NewMetrics registers and returns a fresh Metrics bundle against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TxSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rollup_transactions_submitted_total",
			Help: "Transactions submitted to POST /rpc, partitioned by outcome.",
		}, []string{"outcome"}),
		DepositsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollup_deposits_ingested_total",
			Help: "Deposit events ingested from L1.",
		}),
		BatchesClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollup_withdrawal_batches_closed_total",
			Help: "Withdrawal batches closed into a posted Merkle root.",
		}),
		ProveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rollup_prove_duration_seconds",
			Help:    "Wall-clock duration of external prover invocations.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}
