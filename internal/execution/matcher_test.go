package execution

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/thanhle/paperbroker/internal/types"
)

func limitOrder(side types.Side, limit string) types.Order {
	lp := decimal.RequireFromString(limit)
	return types.Order{
		Symbol:       "XYZ",
		Side:         side,
		OrderType:    types.OrderTypeLimit,
		LimitPrice:   &lp,
		RequestedQty: 10,
	}
}

func marketOrder(side types.Side) types.Order {
	return types.Order{
		Symbol:       "XYZ",
		Side:         side,
		OrderType:    types.OrderTypeMarket,
		RequestedQty: 10,
	}
}

func TestEvaluateFill(t *testing.T) {
	d := decimal.RequireFromString

	tests := []struct {
		name      string
		order     types.Order
		ref       string
		hasRef    bool
		wantFill  bool
		wantPrice string
	}{
		{
			name:  "market fills at reference price",
			order: marketOrder(types.SideBuy), ref: "50", hasRef: true,
			wantFill: true, wantPrice: "50",
		},
		{
			name:  "market without price fills at synthetic fallback",
			order: marketOrder(types.SideSell), ref: "0", hasRef: false,
			wantFill: true, wantPrice: "100",
		},
		{
			name:  "market with non-positive reference falls back",
			order: marketOrder(types.SideBuy), ref: "0", hasRef: true,
			wantFill: true, wantPrice: "100",
		},
		{
			name:  "limit buy defers above limit",
			order: limitOrder(types.SideBuy, "49"), ref: "50", hasRef: true,
			wantFill: false,
		},
		{
			name:  "limit buy fills at limit when reference equals limit",
			order: limitOrder(types.SideBuy, "49"), ref: "49", hasRef: true,
			wantFill: true, wantPrice: "49",
		},
		{
			name:  "limit buy captures price improvement",
			order: limitOrder(types.SideBuy, "49"), ref: "48", hasRef: true,
			wantFill: true, wantPrice: "48",
		},
		{
			name:  "limit sell defers below limit",
			order: limitOrder(types.SideSell, "51"), ref: "50", hasRef: true,
			wantFill: false,
		},
		{
			name:  "limit sell fills at limit when reference equals limit",
			order: limitOrder(types.SideSell, "51"), ref: "51", hasRef: true,
			wantFill: true, wantPrice: "51",
		},
		{
			name:  "limit sell captures price improvement",
			order: limitOrder(types.SideSell, "51"), ref: "53", hasRef: true,
			wantFill: true, wantPrice: "53",
		},
		{
			name:  "limit with no resolvable price defers",
			order: limitOrder(types.SideBuy, "49"), ref: "0", hasRef: false,
			wantFill: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, ok := EvaluateFill(tt.order, d(tt.ref), tt.hasRef)
			if ok != tt.wantFill {
				t.Fatalf("fill = %v, want %v", ok, tt.wantFill)
			}
			if !tt.wantFill {
				return
			}
			if want := d(tt.wantPrice); !price.Equal(want) {
				t.Errorf("price = %s, want %s", price, want)
			}

			// Price-improvement guarantee: a limit buy never pays above
			// its limit, a limit sell never receives below it.
			if tt.order.OrderType == types.OrderTypeLimit {
				limit := *tt.order.LimitPrice
				if tt.order.Side == types.SideBuy && price.GreaterThan(limit) {
					t.Errorf("limit buy filled above limit: %s > %s", price, limit)
				}
				if tt.order.Side == types.SideSell && price.LessThan(limit) {
					t.Errorf("limit sell filled below limit: %s < %s", price, limit)
				}
			}
		})
	}
}

func TestEvaluateFillLimitWithoutLimitPrice(t *testing.T) {
	o := marketOrder(types.SideBuy)
	o.OrderType = types.OrderTypeLimit
	o.LimitPrice = nil

	if _, ok := EvaluateFill(o, decimal.RequireFromString("50"), true); ok {
		t.Fatal("limit order without limit price must not fill")
	}
}
