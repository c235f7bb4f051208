// Package metrics exposes Prometheus instrumentation for the execution
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "paperbroker"

var (
	// OrdersTotal counts orders by their outcome at placement time.
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_total",
		Help:      "Orders placed, labelled by symbol, side and resulting status.",
	}, []string{"symbol", "side", "status"})

	// OrderRejectsTotal counts rejected orders by reason.
	OrderRejectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_rejects_total",
		Help:      "Rejected orders by reason.",
	}, []string{"reason"})

	// FillsTotal counts confirmed fills.
	FillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fills_total",
		Help:      "Confirmed fills by symbol and side.",
	}, []string{"symbol", "side"})

	// CancelsTotal counts successful cancellations.
	CancelsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cancels_total",
		Help:      "Orders canceled before reaching a terminal state.",
	})

	// RestingSweepsTotal counts resting-order sweep passes.
	RestingSweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resting_sweeps_total",
		Help:      "Resting-order fill sweeps executed.",
	})

	// RealizedPnLToday tracks the realized PnL accumulator.
	RealizedPnLToday = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realized_pnl_today",
		Help:      "Sum of per-symbol realized PnL for the current day.",
	})

	// OpenPositions tracks the number of non-flat positions.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_positions",
		Help:      "Number of symbols with a non-flat position.",
	})

	// PlaceOrderSeconds observes place-order latency including the
	// immediate fill attempt.
	PlaceOrderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "place_order_seconds",
		Help:      "Latency of order placement including the immediate fill attempt.",
		Buckets:   prometheus.DefBuckets,
	})
)
