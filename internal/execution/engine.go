package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thanhle/paperbroker/internal/alerting"
	"github.com/thanhle/paperbroker/internal/metrics"
	"github.com/thanhle/paperbroker/internal/persistence"
	"github.com/thanhle/paperbroker/internal/types"
)

// SimEngine is the paper-trading implementation of Service. All state
// lives in the store; the engine itself is stateless and safe for
// concurrent callers.
type SimEngine struct {
	store    persistence.Store
	alerter  alerting.Alerter
	recorder *metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewSimEngine creates a paper-trading engine over the given store.
// alerter and logger may be nil.
func NewSimEngine(store persistence.Store, alerter alerting.Alerter, logger *slog.Logger) *SimEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimEngine{
		store:    store,
		alerter:  alerter,
		recorder: metrics.NewRecorder(),
		logger:   logger,
		now:      time.Now,
	}
}

// PlaceOrder sizes the order, persists it and attempts one immediate
// fill.
func (e *SimEngine) PlaceOrder(ctx context.Context, spec types.OrderSpec, ectx types.ExecutionContext) (*types.Order, error) {
	started := e.now()
	defer func() { e.recorder.RecordPlaceOrderLatency(time.Since(started)) }()

	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	// Safety rail: this engine only simulates. A caller asking for live
	// routing gets an error, never a paper fill it might mistake for real.
	if !ectx.Simulate {
		return nil, types.ErrLiveDisabled
	}

	ref, hasRef, err := e.resolvePrice(ctx, spec.Symbol, ectx.LastPrices)
	if err != nil {
		return nil, err
	}

	qty := SizeOrder(spec, ref, hasRef, ectx.Equity)
	now := e.now().UTC()

	order := types.Order{
		ID:           uuid.NewString(),
		AccountID:    ectx.AccountID,
		Symbol:       spec.Symbol,
		Side:         spec.Side,
		OrderType:    spec.OrderType,
		LimitPrice:   spec.LimitPrice,
		TIF:          spec.TIF,
		RequestedQty: qty,
		DecisionID:   spec.DecisionID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if qty < 1 {
		order.Status = types.StatusRejected
		order.RejectReason = types.RejectReasonZeroQty
		if err := e.store.CreateOrder(ctx, order); err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}

		e.recorder.RecordOrder(order.Symbol, string(order.Side), string(order.Status))
		e.recorder.RecordReject(order.RejectReason)
		e.logger.Warn("order rejected",
			"order_id", order.ID,
			"symbol", order.Symbol,
			"reason", order.RejectReason,
		)
		e.alert(ctx, alerting.EventOrderRejected, "Order rejected",
			"order_id", order.ID,
			"symbol", order.Symbol,
			"reason", order.RejectReason,
		)
		return &order, nil
	}

	// Limit orders start open; market orders are pending their
	// immediate fill attempt.
	order.Status = types.StatusPending
	if spec.OrderType == types.OrderTypeLimit {
		order.Status = types.StatusOpen
	}
	if err := e.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if price, ok := EvaluateFill(order, ref, hasRef); ok {
		if err := e.fill(ctx, order, price); err != nil {
			return nil, err
		}
	} else {
		if err := e.store.MarkOrderOpen(ctx, order.ID, e.now().UTC()); err != nil {
			return nil, fmt.Errorf("mark order open: %w", err)
		}
	}

	placed, err := e.store.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}

	e.recorder.RecordOrder(placed.Symbol, string(placed.Side), string(placed.Status))
	return placed, nil
}

// CancelOrder cancels a non-terminal order.
func (e *SimEngine) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	ok, err := e.store.CancelOrder(ctx, orderID, e.now().UTC())
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}
	if ok {
		e.recorder.RecordCancel()
		e.logger.Info("order canceled", "order_id", orderID)
		e.alert(ctx, alerting.EventOrderCanceled, "Order canceled", "order_id", orderID)
	}
	return ok, nil
}

// TryFillResting re-runs the fill matcher over every resting limit
// order. Each fill commits in its own transaction, so a partial sweep
// leaves no inconsistent state and repeating the sweep is a no-op for
// orders already filled.
func (e *SimEngine) TryFillResting(ctx context.Context, lastPrices map[string]decimal.Decimal) (int, error) {
	e.recorder.RecordSweep()

	resting, err := e.store.RestingLimitOrders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list resting orders: %w", err)
	}

	filled := 0
	for _, order := range resting {
		ref, hasRef := lastPrices[order.Symbol]
		if !hasRef || !ref.IsPositive() {
			ref, hasRef, err = e.lastTraded(ctx, order.Symbol)
			if err != nil {
				return filled, err
			}
		}

		price, ok := EvaluateFill(order, ref, hasRef)
		if !ok {
			continue
		}
		if err := e.fill(ctx, order, price); err != nil {
			return filled, err
		}
		filled++
	}

	if filled > 0 {
		e.logger.Info("resting sweep produced fills", "fills", filled, "resting", len(resting))
	}
	return filled, nil
}

// ListOrders returns orders matching the filter, most recent first.
func (e *SimEngine) ListOrders(ctx context.Context, f persistence.OrderFilter) ([]types.Order, error) {
	return e.store.ListOrders(ctx, f)
}

// ListFills returns fills matching the filter, most recent first.
func (e *SimEngine) ListFills(ctx context.Context, f persistence.FillFilter) ([]types.Fill, error) {
	return e.store.ListFills(ctx, f)
}

// ListPositions returns every known position enriched with the last
// traded price, market value and unrealized PnL where computable.
func (e *SimEngine) ListPositions(ctx context.Context) ([]types.PositionView, error) {
	positions, err := e.store.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	views := make([]types.PositionView, 0, len(positions))
	open := 0
	for _, p := range positions {
		view := types.PositionView{
			Symbol:        p.Symbol,
			Qty:           p.Qty,
			AvgCost:       p.AvgCost,
			RealizedToday: p.RealizedToday,
		}

		last, hasLast, err := e.store.LastFillPrice(ctx, p.Symbol)
		if err != nil {
			return nil, fmt.Errorf("last fill price: %w", err)
		}
		if hasLast {
			qty := decimal.NewFromInt(p.Qty)
			mv := last.Mul(qty)
			view.LastPrice = &last
			view.MarketValue = &mv
			if p.Qty != 0 {
				upl := last.Sub(p.AvgCost).Mul(qty)
				view.UnrealizedPnL = &upl
			}
		}

		if p.Qty != 0 {
			open++
		}
		views = append(views, view)
	}

	e.recorder.RecordOpenPositions(open)
	return views, nil
}

// PnLToday sums the realized-today accumulators across all positions.
func (e *SimEngine) PnLToday(ctx context.Context) (types.DailyPnL, error) {
	realized, err := e.store.SumRealizedToday(ctx)
	if err != nil {
		return types.DailyPnL{}, fmt.Errorf("sum realized pnl: %w", err)
	}

	e.recorder.RecordRealizedPnL(realized)
	return types.DailyPnL{
		Date:     e.now().UTC().Format("2006-01-02"),
		Realized: realized,
	}, nil
}

// ResetDaily closes out the day: emits a summary of the realized total
// and zeroes the accumulators.
func (e *SimEngine) ResetDaily(ctx context.Context) error {
	realized, err := e.store.SumRealizedToday(ctx)
	if err != nil {
		return fmt.Errorf("sum realized pnl: %w", err)
	}

	if err := e.store.ResetDailyPnL(ctx); err != nil {
		return fmt.Errorf("reset daily pnl: %w", err)
	}

	e.recorder.RecordRealizedPnL(decimal.Zero)
	e.logger.Info("daily realized pnl reset", "realized", realized)
	e.alert(ctx, alerting.EventDailySummary, "Daily summary",
		"date", e.now().UTC().Format("2006-01-02"),
		"realized", realized.String(),
	)
	return nil
}

// fill commits a whole-order fill atomically and emits the
// notifications.
func (e *SimEngine) fill(ctx context.Context, order types.Order, price decimal.Decimal) error {
	fill := types.Fill{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Qty:       order.RequestedQty,
		Price:     price,
		Timestamp: e.now().UTC(),
	}

	if err := e.store.ApplyFill(ctx, order.Side, fill); err != nil {
		return fmt.Errorf("apply fill: %w", err)
	}

	e.recorder.RecordFill(order.Symbol, string(order.Side))
	e.logger.Info("order filled",
		"order_id", order.ID,
		"symbol", order.Symbol,
		"side", order.Side,
		"qty", fill.Qty,
		"price", price,
	)
	e.alert(ctx, alerting.EventOrderFilled, "Order filled",
		"order_id", order.ID,
		"symbol", order.Symbol,
		"side", string(order.Side),
		"qty", fill.Qty,
		"price", price.String(),
	)
	return nil
}

// resolvePrice finds the effective reference price for a symbol: the
// caller-supplied price when positive, else the most recent fill.
func (e *SimEngine) resolvePrice(ctx context.Context, symbol string, lastPrices map[string]decimal.Decimal) (decimal.Decimal, bool, error) {
	if last, ok := lastPrices[symbol]; ok && last.IsPositive() {
		return last, true, nil
	}
	return e.lastTraded(ctx, symbol)
}

func (e *SimEngine) lastTraded(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	last, ok, err := e.store.LastFillPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("last fill price: %w", err)
	}
	return last, ok, nil
}

func (e *SimEngine) alert(ctx context.Context, event alerting.Event, message string, fields ...any) {
	if e.alerter == nil {
		return
	}
	if err := e.alerter.Alert(ctx, alerting.EventSeverity(event), message, fields...); err != nil {
		e.logger.Warn("failed to send alert", "event", string(event), "err", err)
	}
}

// validateSpec rejects malformed specs: these are caller contract
// violations, not business outcomes.
func validateSpec(spec types.OrderSpec) error {
	if spec.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", types.ErrInvalidSpec)
	}
	if !spec.Side.Valid() {
		return fmt.Errorf("%w: unknown side %q", types.ErrInvalidSpec, spec.Side)
	}
	if !spec.OrderType.Valid() {
		return fmt.Errorf("%w: unknown order type %q", types.ErrInvalidSpec, spec.OrderType)
	}
	if spec.OrderType == types.OrderTypeLimit && spec.LimitPrice == nil {
		return fmt.Errorf("%w: limit order requires a limit price", types.ErrInvalidSpec)
	}
	if !spec.TIF.Valid() {
		return fmt.Errorf("%w: unknown time-in-force %q", types.ErrInvalidSpec, spec.TIF)
	}
	return nil
}
