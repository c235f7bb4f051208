package execution

import (
	"github.com/shopspring/decimal"

	"github.com/thanhle/paperbroker/internal/types"
)

// SyntheticMarketPrice fills a market order that faces no reference
// price and no fill history. A paper environment has no live feed, so
// a market order executes at a placeholder instead of stalling.
var SyntheticMarketPrice = decimal.NewFromInt(100)

// EvaluateFill decides whether the order fills against the effective
// reference price and at what price. hasRef is false when no price
// could be resolved for the order's symbol.
//
// Market orders always fill: at the reference price when one exists,
// otherwise at SyntheticMarketPrice. Limit orders fill only once price
// has crossed the limit, and capture price improvement: a buy fills at
// min(limit, reference), a sell at max(limit, reference). A limit order
// with no resolvable price defers.
func EvaluateFill(o types.Order, ref decimal.Decimal, hasRef bool) (decimal.Decimal, bool) {
	if o.OrderType == types.OrderTypeMarket {
		if !hasRef || !ref.IsPositive() {
			return SyntheticMarketPrice, true
		}
		return ref, true
	}

	if !hasRef || !ref.IsPositive() || o.LimitPrice == nil {
		return decimal.Zero, false
	}
	limit := *o.LimitPrice

	if o.Side == types.SideBuy {
		if ref.LessThanOrEqual(limit) {
			return decimal.Min(limit, ref), true
		}
		return decimal.Zero, false
	}

	if ref.GreaterThanOrEqual(limit) {
		return decimal.Max(limit, ref), true
	}
	return decimal.Zero, false
}
