package execution

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/thanhle/paperbroker/internal/types"
)

func TestSizeOrder(t *testing.T) {
	d := decimal.RequireFromString

	tests := []struct {
		name     string
		sizeType types.SizeType
		value    string
		price    string
		hasPrice bool
		equity   string
		want     int64
	}{
		{
			name:     "shares passes through floored",
			sizeType: types.SizeShares,
			value:    "10.9", price: "0", hasPrice: false, equity: "0",
			want: 10,
		},
		{
			name:     "shares needs no price",
			sizeType: types.SizeShares,
			value:    "5", price: "0", hasPrice: false, equity: "0",
			want: 5,
		},
		{
			name:     "negative shares clamps to zero",
			sizeType: types.SizeShares,
			value:    "-3", price: "0", hasPrice: false, equity: "0",
			want: 0,
		},
		{
			name:     "notional divides by price",
			sizeType: types.SizeNotional,
			value:    "1000", price: "33.33", hasPrice: true, equity: "0",
			want: 30,
		},
		{
			name:     "notional exact division",
			sizeType: types.SizeNotional,
			value:    "1000", price: "50", hasPrice: true, equity: "0",
			want: 20,
		},
		{
			name:     "notional without price yields zero",
			sizeType: types.SizeNotional,
			value:    "1000", price: "0", hasPrice: false, equity: "0",
			want: 0,
		},
		{
			name:     "notional with non-positive price yields zero",
			sizeType: types.SizeNotional,
			value:    "1000", price: "0", hasPrice: true, equity: "0",
			want: 0,
		},
		{
			name:     "risk_bps sizes from equity",
			sizeType: types.SizeRiskBps,
			value:    "50", price: "25", hasPrice: true, equity: "100000",
			want: 20, // 100000 * 50/10000 = 500; 500/25 = 20
		},
		{
			name:     "risk_bps floors fractional result",
			sizeType: types.SizeRiskBps,
			value:    "50", price: "33.33", hasPrice: true, equity: "100000",
			want: 15, // 500 / 33.33 = 15.0015
		},
		{
			name:     "risk_bps without price yields zero",
			sizeType: types.SizeRiskBps,
			value:    "50", price: "0", hasPrice: false, equity: "100000",
			want: 0,
		},
		{
			name:     "unknown size type yields zero",
			sizeType: types.SizeType("lots"),
			value:    "10", price: "50", hasPrice: true, equity: "100000",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := types.OrderSpec{
				Symbol:    "XYZ",
				Side:      types.SideBuy,
				OrderType: types.OrderTypeMarket,
				SizeType:  tt.sizeType,
				SizeValue: d(tt.value),
				TIF:       types.TIFDay,
			}

			got := SizeOrder(spec, d(tt.price), tt.hasPrice, d(tt.equity))
			if got != tt.want {
				t.Errorf("SizeOrder() = %d, want %d", got, tt.want)
			}
		})
	}
}
