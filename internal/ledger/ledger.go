// Package ledger implements the signed-position arithmetic applied on
// every confirmed fill: weighted average cost while exposure grows,
// basis reset when a position goes flat, fresh basis when it flips
// through zero, and realized PnL for the portion of a fill that closes
// existing exposure.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/thanhle/paperbroker/internal/types"
)

// Apply returns the position after a fill of qty shares at price, plus
// the realized PnL the fill produced. qty must be positive; direction
// comes from side. The input position is not mutated.
func Apply(pos types.Position, side types.Side, qty int64, price decimal.Decimal) (types.Position, decimal.Decimal) {
	realized := realize(pos, side, qty, price)

	q := decimal.NewFromInt(pos.Qty)
	fq := decimal.NewFromInt(qty)

	next := pos
	switch {
	case side == types.SideBuy && pos.Qty >= 0:
		// Flat or long: extend long, weighted average cost.
		next.Qty = pos.Qty + qty
		next.AvgCost = weightedAvg(q, pos.AvgCost, fq, price)

	case side == types.SideBuy:
		// Short: cover, possibly through zero.
		next.Qty = pos.Qty + qty
		switch {
		case next.Qty < 0:
			// Partial cover, basis unchanged.
		case next.Qty == 0:
			next.AvgCost = decimal.Zero
		default:
			next.AvgCost = price // flipped to long, fresh basis
		}

	case pos.Qty <= 0:
		// Flat or short: extend short, weighted average cost on |qty|.
		next.Qty = pos.Qty - qty
		next.AvgCost = weightedAvg(q.Abs(), pos.AvgCost, fq, price)

	default:
		// Long: reduce, possibly through zero.
		next.Qty = pos.Qty - qty
		switch {
		case next.Qty > 0:
			// Partial close, basis unchanged.
		case next.Qty == 0:
			next.AvgCost = decimal.Zero
		default:
			next.AvgCost = price // flipped to short, fresh basis
		}
	}

	next.RealizedToday = pos.RealizedToday.Add(realized)
	return next, realized
}

// realize computes the PnL locked in by the closing portion of a fill:
// a sell against a long earns (price - avgCost) per share closed, a buy
// against a short earns (avgCost - price). Opening flow realizes nothing.
func realize(pos types.Position, side types.Side, qty int64, price decimal.Decimal) decimal.Decimal {
	switch {
	case side == types.SideSell && pos.Qty > 0:
		closed := min64(qty, pos.Qty)
		return price.Sub(pos.AvgCost).Mul(decimal.NewFromInt(closed))
	case side == types.SideBuy && pos.Qty < 0:
		closed := min64(qty, -pos.Qty)
		return pos.AvgCost.Sub(price).Mul(decimal.NewFromInt(closed))
	default:
		return decimal.Zero
	}
}

func weightedAvg(q, cost, fq, price decimal.Decimal) decimal.Decimal {
	total := q.Add(fq)
	if total.IsZero() {
		return decimal.Zero
	}
	return q.Mul(cost).Add(fq.Mul(price)).Div(total)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
