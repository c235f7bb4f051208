package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/thanhle/paperbroker/internal/types"
)

func pos(qty int64, avgCost string) types.Position {
	return types.Position{
		Symbol:  "XYZ",
		Qty:     qty,
		AvgCost: decimal.RequireFromString(avgCost),
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name         string
		pos          types.Position
		side         types.Side
		qty          int64
		price        string
		wantQty      int64
		wantAvgCost  string
		wantRealized string
	}{
		{
			name: "buy from flat opens long at fill price",
			pos:  pos(0, "0"), side: types.SideBuy, qty: 10, price: "50",
			wantQty: 10, wantAvgCost: "50", wantRealized: "0",
		},
		{
			name: "buy onto long averages cost",
			pos:  pos(10, "50"), side: types.SideBuy, qty: 10, price: "60",
			wantQty: 20, wantAvgCost: "55", wantRealized: "0",
		},
		{
			name: "sell part of long realizes on closed shares only",
			pos:  pos(10, "50"), side: types.SideSell, qty: 4, price: "55",
			wantQty: 6, wantAvgCost: "50", wantRealized: "20",
		},
		{
			name: "sell entire long flattens and resets basis",
			pos:  pos(10, "50"), side: types.SideSell, qty: 10, price: "55",
			wantQty: 0, wantAvgCost: "0", wantRealized: "50",
		},
		{
			name: "sell through zero flips short with fresh basis",
			pos:  pos(10, "50"), side: types.SideSell, qty: 15, price: "55",
			wantQty: -5, wantAvgCost: "55", wantRealized: "50",
		},
		{
			name: "sell from flat opens short at fill price",
			pos:  pos(0, "0"), side: types.SideSell, qty: 10, price: "40",
			wantQty: -10, wantAvgCost: "40", wantRealized: "0",
		},
		{
			name: "sell onto short averages cost on absolute size",
			pos:  pos(-10, "40"), side: types.SideSell, qty: 10, price: "44",
			wantQty: -20, wantAvgCost: "42", wantRealized: "0",
		},
		{
			name: "buy covers part of short, basis unchanged",
			pos:  pos(-10, "40"), side: types.SideBuy, qty: 4, price: "35",
			wantQty: -6, wantAvgCost: "40", wantRealized: "20",
		},
		{
			name: "buy covers entire short, basis reset",
			pos:  pos(-10, "40"), side: types.SideBuy, qty: 10, price: "35",
			wantQty: 0, wantAvgCost: "0", wantRealized: "50",
		},
		{
			name: "buy through zero flips long with fresh basis",
			pos:  pos(-10, "40"), side: types.SideBuy, qty: 15, price: "35",
			wantQty: 5, wantAvgCost: "35", wantRealized: "50",
		},
		{
			name: "covering short at a loss realizes negative",
			pos:  pos(-10, "40"), side: types.SideBuy, qty: 10, price: "45",
			wantQty: 0, wantAvgCost: "0", wantRealized: "-50",
		},
		{
			name: "selling long at a loss realizes negative",
			pos:  pos(10, "50"), side: types.SideSell, qty: 10, price: "45",
			wantQty: 0, wantAvgCost: "0", wantRealized: "-50",
		},
		{
			name: "fractional average cost",
			pos:  pos(3, "10"), side: types.SideBuy, qty: 1, price: "11",
			wantQty: 4, wantAvgCost: "10.25", wantRealized: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := decimal.RequireFromString(tt.price)
			next, realized := Apply(tt.pos, tt.side, tt.qty, price)

			if next.Qty != tt.wantQty {
				t.Errorf("qty = %d, want %d", next.Qty, tt.wantQty)
			}
			if want := decimal.RequireFromString(tt.wantAvgCost); !next.AvgCost.Equal(want) {
				t.Errorf("avg cost = %s, want %s", next.AvgCost, want)
			}
			if want := decimal.RequireFromString(tt.wantRealized); !realized.Equal(want) {
				t.Errorf("realized = %s, want %s", realized, want)
			}
			if next.AvgCost.IsNegative() {
				t.Errorf("avg cost went negative: %s", next.AvgCost)
			}
		})
	}
}

func TestApplyAccumulatesRealized(t *testing.T) {
	p := pos(0, "0")
	p.RealizedToday = decimal.RequireFromString("12.50")

	p, realized := Apply(p, types.SideBuy, 10, decimal.RequireFromString("50"))
	if !realized.IsZero() {
		t.Fatalf("opening fill realized %s, want 0", realized)
	}
	if want := decimal.RequireFromString("12.50"); !p.RealizedToday.Equal(want) {
		t.Fatalf("realized today = %s, want %s", p.RealizedToday, want)
	}

	p, realized = Apply(p, types.SideSell, 10, decimal.RequireFromString("55"))
	if want := decimal.RequireFromString("50"); !realized.Equal(want) {
		t.Fatalf("closing fill realized %s, want %s", realized, want)
	}
	if want := decimal.RequireFromString("62.50"); !p.RealizedToday.Equal(want) {
		t.Fatalf("realized today = %s, want %s", p.RealizedToday, want)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	before := pos(10, "50")
	_, _ = Apply(before, types.SideSell, 5, decimal.RequireFromString("55"))

	if before.Qty != 10 || !before.AvgCost.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("input position mutated: %+v", before)
	}
}

// A long round trip through flat, flip and re-flat should leave the
// accumulator equal to the sum of each leg's realized PnL.
func TestApplySequence(t *testing.T) {
	p := pos(0, "0")
	d := decimal.RequireFromString

	p, _ = Apply(p, types.SideBuy, 10, d("100"))  // long 10 @ 100
	p, _ = Apply(p, types.SideBuy, 10, d("110"))  // long 20 @ 105
	p, _ = Apply(p, types.SideSell, 30, d("120")) // close 20 (+300), short 10 @ 120
	p, _ = Apply(p, types.SideBuy, 10, d("115"))  // cover 10 (+50), flat

	if p.Qty != 0 {
		t.Fatalf("qty = %d, want 0", p.Qty)
	}
	if !p.AvgCost.IsZero() {
		t.Fatalf("avg cost = %s, want 0", p.AvgCost)
	}
	if want := d("350"); !p.RealizedToday.Equal(want) {
		t.Fatalf("realized today = %s, want %s", p.RealizedToday, want)
	}
}
