package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thanhle/paperbroker/internal/ledger"
	"github.com/thanhle/paperbroker/internal/types"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and runs
// migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite permits one writer at a time; a single connection makes
	// concurrent mutations apply as sequential transactions instead of
	// failing with SQLITE_BUSY under contention.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

// Migrate creates the orders/fills/positions tables and their indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			account_id TEXT,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			order_type TEXT NOT NULL,
			limit_price TEXT,
			tif TEXT NOT NULL,
			requested_qty INTEGER NOT NULL,
			filled_qty INTEGER NOT NULL DEFAULT 0,
			avg_fill_price TEXT,
			status TEXT NOT NULL,
			decision_id TEXT,
			reject_reason TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,

		`CREATE TABLE IF NOT EXISTS fills (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			qty INTEGER NOT NULL,
			price TEXT NOT NULL,
			ts DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_fills_order ON fills(order_id)`,

		`CREATE TABLE IF NOT EXISTS positions (
			symbol TEXT PRIMARY KEY,
			qty INTEGER NOT NULL,
			avg_cost TEXT NOT NULL,
			realized_today TEXT NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// CreateOrder inserts a new order row.
func (s *SQLiteStore) CreateOrder(ctx context.Context, o types.Order) error {
	query := `INSERT INTO orders
		(id, account_id, symbol, side, order_type, limit_price, tif, requested_qty,
		 filled_qty, avg_fill_price, status, decision_id, reject_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		o.ID,
		o.AccountID,
		o.Symbol,
		string(o.Side),
		string(o.OrderType),
		decimalPtrToNull(o.LimitPrice),
		string(o.TIF),
		o.RequestedQty,
		o.FilledQty,
		decimalPtrToNull(o.AvgFillPrice),
		string(o.Status),
		o.DecisionID,
		o.RejectReason,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

const orderColumns = `id, account_id, symbol, side, order_type, limit_price, tif,
	requested_qty, filled_qty, avg_fill_price, status, decision_id, reject_reason,
	created_at, updated_at`

// GetOrder returns the order with the given id, or ErrOrderNotFound.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*types.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, types.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	return o, nil
}

// MarkOrderOpen moves an order to the open state after a failed
// immediate fill attempt.
func (s *SQLiteStore) MarkOrderOpen(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(types.StatusOpen), at, id,
	)
	if err != nil {
		return fmt.Errorf("mark order open: %w", err)
	}
	return nil
}

// CancelOrder cancels the order if it exists and is not terminal. The
// status check and update run in one transaction so a concurrent fill
// cannot be overwritten.
func (s *SQLiteStore) CancelOrder(ctx context.Context, id string, at time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin cancel: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query order status: %w", err)
	}

	if types.OrderStatus(status).IsFinal() {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(types.StatusCanceled), at, id,
	)
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit cancel: %w", err)
	}

	return true, nil
}

// ApplyFill records a whole-order fill: inserts the fill row, marks the
// order filled and reapplies the position ledger, all in one
// transaction.
func (s *SQLiteStore) ApplyFill(ctx context.Context, side types.Side, fill types.Fill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fill: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO fills (id, order_id, symbol, qty, price, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		fill.ID, fill.OrderID, fill.Symbol, fill.Qty, fill.Price.String(), fill.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert fill: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, filled_qty = ?, avg_fill_price = ?, updated_at = ? WHERE id = ?`,
		string(types.StatusFilled), fill.Qty, fill.Price.String(), fill.Timestamp, fill.OrderID,
	)
	if err != nil {
		return fmt.Errorf("update order on fill: %w", err)
	}

	pos := types.Position{Symbol: fill.Symbol, AvgCost: decimal.Zero, RealizedToday: decimal.Zero}
	var qty int64
	var avgCost, realized string
	err = tx.QueryRowContext(ctx,
		`SELECT qty, avg_cost, realized_today FROM positions WHERE symbol = ?`, fill.Symbol,
	).Scan(&qty, &avgCost, &realized)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("query position: %w", err)
	}
	if err == nil {
		pos.Qty = qty
		if pos.AvgCost, err = parseDecimal(avgCost, "avg_cost"); err != nil {
			return err
		}
		if pos.RealizedToday, err = parseDecimal(realized, "realized_today"); err != nil {
			return err
		}
	}

	next, _ := ledger.Apply(pos, side, fill.Qty, fill.Price)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO positions (symbol, qty, avg_cost, realized_today) VALUES (?, ?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET
		   qty = excluded.qty,
		   avg_cost = excluded.avg_cost,
		   realized_today = excluded.realized_today`,
		next.Symbol, next.Qty, next.AvgCost.String(), next.RealizedToday.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fill: %w", err)
	}

	return nil
}

// ListOrders returns orders matching the filter, most recent first.
func (s *SQLiteStore) ListOrders(ctx context.Context, f OrderFilter) ([]types.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var clauses []string
	var args []interface{}

	if f.Symbol != "" {
		clauses = append(clauses, "symbol = ?")
		args = append(args, f.Symbol)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultOrderLimit
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []types.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	return orders, rows.Err()
}

// RestingLimitOrders returns limit orders still eligible for a fill
// attempt (status open or pending).
func (s *SQLiteStore) RestingLimitOrders(ctx context.Context) ([]types.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status IN (?, ?) AND order_type = ?
		ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query,
		string(types.StatusOpen), string(types.StatusPending), string(types.OrderTypeLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("query resting orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []types.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	return orders, rows.Err()
}

// ListFills returns fills matching the filter, most recent first.
func (s *SQLiteStore) ListFills(ctx context.Context, f FillFilter) ([]types.Fill, error) {
	query := `SELECT id, order_id, symbol, qty, price, ts FROM fills`
	var args []interface{}

	if f.Symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, f.Symbol)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultFillLimit
	}
	query += " ORDER BY ts DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fills: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fills []types.Fill
	for rows.Next() {
		var fl types.Fill
		var price string

		if err := rows.Scan(&fl.ID, &fl.OrderID, &fl.Symbol, &fl.Qty, &price, &fl.Timestamp); err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}
		if fl.Price, err = parseDecimal(price, "price"); err != nil {
			return nil, err
		}

		fills = append(fills, fl)
	}

	return fills, rows.Err()
}

// LastFillPrice returns the price of the most recent fill for symbol.
// The boolean is false when the symbol has never traded.
func (s *SQLiteStore) LastFillPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	var price string
	err := s.db.QueryRowContext(ctx,
		`SELECT price FROM fills WHERE symbol = ? ORDER BY ts DESC, rowid DESC LIMIT 1`, symbol,
	).Scan(&price)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("query last fill price: %w", err)
	}

	d, err := parseDecimal(price, "price")
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

// GetPosition returns the position row for symbol, or nil when the
// symbol has never traded.
func (s *SQLiteStore) GetPosition(ctx context.Context, symbol string) (*types.Position, error) {
	var p types.Position
	var avgCost, realized string

	err := s.db.QueryRowContext(ctx,
		`SELECT symbol, qty, avg_cost, realized_today FROM positions WHERE symbol = ?`, symbol,
	).Scan(&p.Symbol, &p.Qty, &avgCost, &realized)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query position: %w", err)
	}

	if p.AvgCost, err = parseDecimal(avgCost, "avg_cost"); err != nil {
		return nil, err
	}
	if p.RealizedToday, err = parseDecimal(realized, "realized_today"); err != nil {
		return nil, err
	}

	return &p, nil
}

// ListPositions returns every known position ordered by symbol.
func (s *SQLiteStore) ListPositions(ctx context.Context) ([]types.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, qty, avg_cost, realized_today FROM positions ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var positions []types.Position
	for rows.Next() {
		var p types.Position
		var avgCost, realized string

		if err := rows.Scan(&p.Symbol, &p.Qty, &avgCost, &realized); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		if p.AvgCost, err = parseDecimal(avgCost, "avg_cost"); err != nil {
			return nil, err
		}
		if p.RealizedToday, err = parseDecimal(realized, "realized_today"); err != nil {
			return nil, err
		}

		positions = append(positions, p)
	}

	return positions, rows.Err()
}

// SumRealizedToday sums the realized-today accumulator across all
// positions. Decimals persist as TEXT, so the sum happens here rather
// than in SQL.
func (s *SQLiteStore) SumRealizedToday(ctx context.Context) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT realized_today FROM positions`)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query realized pnl: %w", err)
	}
	defer func() { _ = rows.Close() }()

	total := decimal.Zero
	for rows.Next() {
		var realized string
		if err := rows.Scan(&realized); err != nil {
			return decimal.Zero, fmt.Errorf("scan realized pnl: %w", err)
		}
		d, err := parseDecimal(realized, "realized_today")
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(d)
	}

	return total, rows.Err()
}

// ResetDailyPnL zeroes every position's realized-today accumulator.
func (s *SQLiteStore) ResetDailyPnL(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE positions SET realized_today = '0'`); err != nil {
		return fmt.Errorf("reset daily pnl: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*types.Order, error) {
	var o types.Order
	var side, orderType, tif, status string
	var limitPrice, avgFillPrice sql.NullString
	var accountID, decisionID, rejectReason sql.NullString

	err := row.Scan(
		&o.ID,
		&accountID,
		&o.Symbol,
		&side,
		&orderType,
		&limitPrice,
		&tif,
		&o.RequestedQty,
		&o.FilledQty,
		&avgFillPrice,
		&status,
		&decisionID,
		&rejectReason,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.AccountID = accountID.String
	o.Side = types.Side(side)
	o.OrderType = types.OrderType(orderType)
	o.TIF = types.TimeInForce(tif)
	o.Status = types.OrderStatus(status)
	o.DecisionID = decisionID.String
	o.RejectReason = rejectReason.String
	if o.LimitPrice, err = nullToDecimalPtr(limitPrice, "limit_price"); err != nil {
		return nil, err
	}
	if o.AvgFillPrice, err = nullToDecimalPtr(avgFillPrice, "avg_fill_price"); err != nil {
		return nil, err
	}

	return &o, nil
}

func decimalPtrToNull(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullToDecimalPtr(ns sql.NullString, column string) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := parseDecimal(ns.String, column)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseDecimal surfaces corrupted TEXT decimals as storage failures
// instead of letting them read back as zero.
func parseDecimal(s, column string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", column, s, err)
	}
	return d, nil
}
