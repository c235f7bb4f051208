// Package persistence provides the durable order/fill/position store.
package persistence

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thanhle/paperbroker/internal/types"
)

// Default query limits, applied when a filter leaves Limit at zero.
const (
	DefaultOrderLimit = 200
	DefaultFillLimit  = 500
)

// OrderFilter narrows ListOrders. Zero values mean "no filter".
type OrderFilter struct {
	Symbol string
	Status types.OrderStatus
	Limit  int
}

// FillFilter narrows ListFills. Zero values mean "no filter".
type FillFilter struct {
	Symbol string
	Limit  int
}

// Store is the persistence contract for the execution engine. Every
// mutating method is a single atomic transaction: ApplyFill commits the
// fill row, the order update and the position update together or not
// at all.
type Store interface {
	// Order operations
	CreateOrder(ctx context.Context, o types.Order) error
	GetOrder(ctx context.Context, id string) (*types.Order, error)
	MarkOrderOpen(ctx context.Context, id string, at time.Time) error
	CancelOrder(ctx context.Context, id string, at time.Time) (bool, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]types.Order, error)
	RestingLimitOrders(ctx context.Context) ([]types.Order, error)

	// Fill operations
	ApplyFill(ctx context.Context, side types.Side, fill types.Fill) error
	ListFills(ctx context.Context, f FillFilter) ([]types.Fill, error)
	LastFillPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error)

	// Position operations
	GetPosition(ctx context.Context, symbol string) (*types.Position, error)
	ListPositions(ctx context.Context) ([]types.Position, error)
	SumRealizedToday(ctx context.Context) (decimal.Decimal, error)
	ResetDailyPnL(ctx context.Context) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
