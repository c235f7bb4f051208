package execution

import (
	"github.com/shopspring/decimal"

	"github.com/thanhle/paperbroker/internal/types"
)

// bpsDivisor converts basis points to a fraction.
var bpsDivisor = decimal.NewFromInt(10000)

// SizeOrder converts the spec's sizing policy into a share quantity.
//
//	shares:   floor(size_value)
//	notional: floor(size_value / refPrice)
//	risk_bps: floor(equity * size_value/10000 / refPrice)
//
// Notional and risk_bps sizing need a positive reference price; without
// one the result is 0, which the caller records as a rejected order.
// Unknown size types also yield 0.
func SizeOrder(spec types.OrderSpec, refPrice decimal.Decimal, hasPrice bool, equity decimal.Decimal) int64 {
	switch spec.SizeType {
	case types.SizeShares:
		return clampQty(spec.SizeValue.Floor())

	case types.SizeNotional:
		if !hasPrice || !refPrice.IsPositive() {
			return 0
		}
		return clampQty(spec.SizeValue.Div(refPrice).Floor())

	case types.SizeRiskBps:
		if !hasPrice || !refPrice.IsPositive() {
			return 0
		}
		notional := equity.Mul(spec.SizeValue).Div(bpsDivisor)
		return clampQty(notional.Div(refPrice).Floor())

	default:
		return 0
	}
}

func clampQty(d decimal.Decimal) int64 {
	qty := d.IntPart()
	if qty < 0 {
		return 0
	}
	return qty
}
