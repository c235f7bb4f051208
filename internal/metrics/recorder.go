package metrics

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recorder provides methods for recording metrics.
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordOrder records an order placement outcome.
func (r *Recorder) RecordOrder(symbol, side, status string) {
	OrdersTotal.WithLabelValues(symbol, side, status).Inc()
}

// RecordReject records a rejected order.
func (r *Recorder) RecordReject(reason string) {
	OrderRejectsTotal.WithLabelValues(reason).Inc()
}

// RecordFill records a confirmed fill.
func (r *Recorder) RecordFill(symbol, side string) {
	FillsTotal.WithLabelValues(symbol, side).Inc()
}

// RecordCancel records a successful cancellation.
func (r *Recorder) RecordCancel() {
	CancelsTotal.Inc()
}

// RecordSweep records one resting-order sweep pass.
func (r *Recorder) RecordSweep() {
	RestingSweepsTotal.Inc()
}

// RecordRealizedPnL records the current realized-today total.
func (r *Recorder) RecordRealizedPnL(pnl decimal.Decimal) {
	RealizedPnLToday.Set(pnl.InexactFloat64())
}

// RecordOpenPositions records the number of non-flat positions.
func (r *Recorder) RecordOpenPositions(n int) {
	OpenPositions.Set(float64(n))
}

// RecordPlaceOrderLatency records order placement latency.
func (r *Recorder) RecordPlaceOrderLatency(d time.Duration) {
	PlaceOrderSeconds.Observe(d.Seconds())
}
