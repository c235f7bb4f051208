// Package execution implements the paper-trading execution engine:
// order sizing, fill matching and the service facade over the durable
// order/fill/position store.
package execution

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/thanhle/paperbroker/internal/persistence"
	"github.com/thanhle/paperbroker/internal/types"
)

// Service is the execution contract consumed by strategy and reporting
// callers. Business-rule outcomes (sizing rejection, disallowed cancel,
// unfilled limit order) are encoded in return values; an error means
// the persisted state is not trustworthy.
type Service interface {
	// PlaceOrder sizes the order, persists it and attempts one
	// immediate fill. It never returns an error for business-rule
	// failures; a rejected order comes back with its reason set.
	PlaceOrder(ctx context.Context, spec types.OrderSpec, ectx types.ExecutionContext) (*types.Order, error)

	// CancelOrder cancels an order. Returns false when the order does
	// not exist or is already terminal.
	CancelOrder(ctx context.Context, orderID string) (bool, error)

	// TryFillResting re-evaluates every resting limit order against
	// fresh prices and returns the number of fills produced. Safe to
	// call repeatedly.
	TryFillResting(ctx context.Context, lastPrices map[string]decimal.Decimal) (int, error)

	// ListOrders returns orders matching the filter, most recent first.
	ListOrders(ctx context.Context, f persistence.OrderFilter) ([]types.Order, error)

	// ListFills returns fills matching the filter, most recent first.
	ListFills(ctx context.Context, f persistence.FillFilter) ([]types.Fill, error)

	// ListPositions returns every known position enriched with
	// last-trade marks.
	ListPositions(ctx context.Context) ([]types.PositionView, error)

	// PnLToday returns the realized PnL accumulated across all
	// positions for the current UTC date.
	PnLToday(ctx context.Context) (types.DailyPnL, error)

	// ResetDaily zeroes the realized-today accumulators. Scheduling is
	// the caller's responsibility; nothing resets automatically.
	ResetDaily(ctx context.Context) error
}
