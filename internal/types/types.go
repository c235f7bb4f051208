// Package types defines the shared domain types of the paper-trading engine.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is a known value.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType distinguishes market from limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// Valid reports whether the order type is a known value.
func (t OrderType) Valid() bool {
	return t == OrderTypeMarket || t == OrderTypeLimit
}

// TimeInForce controls how long an unfilled order stays working.
type TimeInForce string

const (
	TIFDay TimeInForce = "day"
	TIFGTC TimeInForce = "gtc"
)

// Valid reports whether the time-in-force is a known value.
func (t TimeInForce) Valid() bool {
	return t == TIFDay || t == TIFGTC
}

// SizeType selects how OrderSpec.SizeValue is interpreted.
type SizeType string

const (
	// SizeShares sizes the order as a literal share count.
	SizeShares SizeType = "shares"
	// SizeNotional sizes the order as a dollar amount at the reference price.
	SizeNotional SizeType = "notional"
	// SizeRiskBps sizes the order as basis points of account equity.
	SizeRiskBps SizeType = "risk_bps"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending OrderStatus = "pending"
	StatusOpen    OrderStatus = "open"
	StatusFilled  OrderStatus = "filled"
	// StatusPartiallyFilled is reserved for a future multi-lot fill model;
	// the current matcher fills whole-or-nothing.
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusCanceled        OrderStatus = "canceled"
	StatusRejected        OrderStatus = "rejected"
)

// IsFinal reports whether the status is terminal.
func (s OrderStatus) IsFinal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected:
		return true
	default:
		return false
	}
}

// RejectReasonZeroQty marks orders whose sizing produced no tradable quantity.
const RejectReasonZeroQty = "sizing_zero_qty"

// OrderSpec is a request to place an order.
type OrderSpec struct {
	Symbol     string
	Side       Side
	OrderType  OrderType
	LimitPrice *decimal.Decimal // required iff OrderType == limit
	SizeType   SizeType
	SizeValue  decimal.Decimal
	TIF        TimeInForce
	DecisionID string // opaque correlation id, optional
}

// ExecutionContext carries the caller's view of the account and market
// at the moment an order is placed.
type ExecutionContext struct {
	AccountID  string
	LastPrices map[string]decimal.Decimal
	Equity     decimal.Decimal
	Simulate   bool
}

// Order is the persisted state of a placed order.
type Order struct {
	ID           string
	AccountID    string
	Symbol       string
	Side         Side
	OrderType    OrderType
	LimitPrice   *decimal.Decimal
	TIF          TimeInForce
	RequestedQty int64
	FilledQty    int64
	AvgFillPrice *decimal.Decimal // set only once FilledQty > 0
	Status       OrderStatus
	DecisionID   string
	RejectReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Fill is an immutable execution record for an order.
type Fill struct {
	ID        string
	OrderID   string
	Symbol    string
	Qty       int64
	Price     decimal.Decimal
	Timestamp time.Time
}

// Position is the per-symbol running ledger row. Qty is signed:
// positive long, negative short, zero flat. AvgCost is meaningful only
// while Qty != 0 and is reset to zero when the position goes flat.
type Position struct {
	Symbol        string
	Qty           int64
	AvgCost       decimal.Decimal
	RealizedToday decimal.Decimal
}

// PositionView is a position enriched with last-trade marks for reporting.
// LastPrice, MarketValue and UnrealizedPnL are nil when no trade price is
// known (and UnrealizedPnL also when the position is flat).
type PositionView struct {
	Symbol        string
	Qty           int64
	AvgCost       decimal.Decimal
	LastPrice     *decimal.Decimal
	MarketValue   *decimal.Decimal
	UnrealizedPnL *decimal.Decimal
	RealizedToday decimal.Decimal
}

// DailyPnL is the realized profit/loss accumulated for a UTC date.
type DailyPnL struct {
	Date     string // YYYY-MM-DD, UTC
	Realized decimal.Decimal
}
