// Package main is the entry point for the paper-trading broker.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/thanhle/paperbroker/internal/alerting"
	"github.com/thanhle/paperbroker/internal/config"
	"github.com/thanhle/paperbroker/internal/execution"
	"github.com/thanhle/paperbroker/internal/metrics"
	"github.com/thanhle/paperbroker/internal/persistence"
	"github.com/thanhle/paperbroker/internal/sweeper"
	"github.com/thanhle/paperbroker/internal/types"
)

// Version information (set by build flags).
var (
	Version   = "0.2.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Optional env file; config values may reference the variables.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		cmdVersion()
	case "help", "-h", "--help":
		printUsage()
	case "run":
		cmdRun(os.Args[2:])
	case "place":
		cmdPlace(os.Args[2:])
	case "orders":
		cmdOrders(os.Args[2:])
	case "fills":
		cmdFills(os.Args[2:])
	case "positions":
		cmdPositions(os.Args[2:])
	case "pnl":
		cmdPnL(os.Args[2:])
	case "validate":
		cmdValidate(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Paper Broker - simulated order execution against a local ledger

Usage:
  paperbroker <command> [options]

Commands:
  run        Start the engine with the resting-order sweeper
  place      Place a single order
  orders     List orders
  fills      List fills
  positions  List positions with marks
  pnl        Show today's realized PnL
  validate   Validate configuration file
  version    Show version information
  help       Show this help message

Examples:
  paperbroker run --config config.yaml
  paperbroker place --config config.yaml --symbol XYZ --side buy --size-type shares --size-value 10 --price 50
  paperbroker orders --config config.yaml --status open`)
}

func cmdVersion() {
	fmt.Printf("paperbroker version %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Git commit: %s\n", GitCommit)
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration is valid!")
	fmt.Printf("  Account: %s\n", cfg.Account.ID)
	fmt.Printf("  Starting equity: $%.2f\n", cfg.Account.StartingEquity)
	fmt.Printf("  Store: %s\n", cfg.Store.Path)
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	verbose := fs.Bool("verbose", false, "Verbose output")
	fs.Parse(args)

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("paperbroker starting",
		"version", Version,
		"account", cfg.Account.ID,
		"store", cfg.Store.Path,
	)

	store, err := persistence.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	var alerter alerting.Alerter
	if cfg.Alerting.Enabled {
		alerter = alerting.NewConsoleAlerter(logger)
	}

	engine := execution.NewSimEngine(store, alerter, logger)

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(metrics.ServerConfig{
			Port:        cfg.Metrics.Port,
			MetricsPath: cfg.Metrics.Path,
		}, logger)
		srv.RegisterHealthCheck("store", func() metrics.Check {
			if _, err := engine.PnLToday(ctx); err != nil {
				return metrics.Check{Status: "unhealthy", Message: err.Error()}
			}
			return metrics.Check{Status: "healthy"}
		})
		if err := srv.Start(); err != nil {
			slog.Error("failed to start metrics server", "err", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var prices sweeper.PriceSource
	if cfg.Sweep.PricesPath != "" {
		prices = sweeper.NewFileSource(cfg.Sweep.PricesPath)
	} else {
		prices = sweeper.NewStaticSource(nil)
	}

	sw := sweeper.New(sweeper.Config{
		Interval:   cfg.SweepInterval(),
		RatePerSec: cfg.Sweep.RatePerSec,
	}, engine, prices, logger)

	go runDailyReset(ctx, engine, logger)

	if err := sw.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("sweeper stopped", "err", err)
		os.Exit(1)
	}

	slog.Info("paperbroker stopped")
}

// runDailyReset zeroes the realized-today accumulators at each UTC
// midnight. The engine never resets on its own.
func runDailyReset(ctx context.Context, svc execution.Service, logger *slog.Logger) {
	for {
		now := time.Now().UTC()
		next := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := svc.ResetDaily(ctx); err != nil {
				logger.Error("daily pnl reset failed", "err", err)
			}
		}
	}
}

func cmdPlace(args []string) {
	fs := flag.NewFlagSet("place", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	symbol := fs.String("symbol", "", "Symbol (required)")
	side := fs.String("side", "buy", "Side: buy, sell")
	orderType := fs.String("type", "market", "Order type: market, limit")
	limitPrice := fs.String("limit", "", "Limit price (required for limit orders)")
	sizeType := fs.String("size-type", "shares", "Size type: shares, notional, risk_bps")
	sizeValue := fs.String("size-value", "", "Size value (required)")
	tif := fs.String("tif", "day", "Time in force: day, gtc")
	price := fs.String("price", "", "Reference price for the symbol")
	decisionID := fs.String("decision", "", "Decision correlation id")
	fs.Parse(args)

	if *symbol == "" || *sizeValue == "" {
		fmt.Fprintln(os.Stderr, "Error: --symbol and --size-value are required")
		fs.Usage()
		os.Exit(1)
	}

	cfg, engine, store := mustEngine(*configPath)
	defer func() { _ = store.Close() }()

	spec := types.OrderSpec{
		Symbol:     *symbol,
		Side:       types.Side(*side),
		OrderType:  types.OrderType(*orderType),
		SizeType:   types.SizeType(*sizeType),
		SizeValue:  mustDecimal(*sizeValue, "--size-value"),
		TIF:        types.TimeInForce(*tif),
		DecisionID: *decisionID,
	}
	if *limitPrice != "" {
		lp := mustDecimal(*limitPrice, "--limit")
		spec.LimitPrice = &lp
	}

	ectx := types.ExecutionContext{
		AccountID:  cfg.Account.ID,
		LastPrices: map[string]decimal.Decimal{},
		Equity:     cfg.StartingEquityDecimal(),
		Simulate:   true,
	}
	if *price != "" {
		ectx.LastPrices[*symbol] = mustDecimal(*price, "--price")
	}

	order, err := engine.PlaceOrder(context.Background(), spec, ectx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Place failed: %v\n", err)
		os.Exit(1)
	}

	printOrder(*order)
}

func cmdOrders(args []string) {
	fs := flag.NewFlagSet("orders", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	symbol := fs.String("symbol", "", "Filter by symbol")
	status := fs.String("status", "", "Filter by status")
	limit := fs.Int("limit", persistence.DefaultOrderLimit, "Maximum rows")
	fs.Parse(args)

	_, engine, store := mustEngine(*configPath)
	defer func() { _ = store.Close() }()

	orders, err := engine.ListOrders(context.Background(), persistence.OrderFilter{
		Symbol: *symbol,
		Status: types.OrderStatus(*status),
		Limit:  *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		os.Exit(1)
	}

	for _, o := range orders {
		printOrder(o)
	}
	fmt.Printf("%d order(s)\n", len(orders))
}

func cmdFills(args []string) {
	fs := flag.NewFlagSet("fills", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	symbol := fs.String("symbol", "", "Filter by symbol")
	limit := fs.Int("limit", persistence.DefaultFillLimit, "Maximum rows")
	fs.Parse(args)

	_, engine, store := mustEngine(*configPath)
	defer func() { _ = store.Close() }()

	fills, err := engine.ListFills(context.Background(), persistence.FillFilter{
		Symbol: *symbol,
		Limit:  *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		os.Exit(1)
	}

	for _, f := range fills {
		fmt.Printf("%s  %s  qty=%d  price=%s  order=%s\n",
			f.Timestamp.Format(time.RFC3339), f.Symbol, f.Qty, f.Price, f.OrderID)
	}
	fmt.Printf("%d fill(s)\n", len(fills))
}

func cmdPositions(args []string) {
	fs := flag.NewFlagSet("positions", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	fs.Parse(args)

	_, engine, store := mustEngine(*configPath)
	defer func() { _ = store.Close() }()

	views, err := engine.ListPositions(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		os.Exit(1)
	}

	for _, v := range views {
		line := fmt.Sprintf("%s  qty=%d  avg_cost=%s  realized_today=%s",
			v.Symbol, v.Qty, v.AvgCost, v.RealizedToday)
		if v.LastPrice != nil {
			line += fmt.Sprintf("  last=%s  mv=%s", v.LastPrice, v.MarketValue)
		}
		if v.UnrealizedPnL != nil {
			line += fmt.Sprintf("  upl=%s", v.UnrealizedPnL)
		}
		fmt.Println(line)
	}
	fmt.Printf("%d position(s)\n", len(views))
}

func cmdPnL(args []string) {
	fs := flag.NewFlagSet("pnl", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	fs.Parse(args)

	_, engine, store := mustEngine(*configPath)
	defer func() { _ = store.Close() }()

	pnl, err := engine.PnLToday(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s realized PnL: %s\n", pnl.Date, pnl.Realized)
}

func mustEngine(configPath string) (*config.Config, *execution.SimEngine, *persistence.SQLiteStore) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	store, err := persistence.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Store error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	return cfg, execution.NewSimEngine(store, nil, logger), store
}

func mustDecimal(s, flagName string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s must be a number, got %q\n", flagName, s)
		os.Exit(1)
	}
	return d
}

func printOrder(o types.Order) {
	line := fmt.Sprintf("%s  %s  %s %s  status=%s  req=%d  filled=%d",
		o.ID, o.Symbol, o.Side, o.OrderType, o.Status, o.RequestedQty, o.FilledQty)
	if o.LimitPrice != nil {
		line += fmt.Sprintf("  limit=%s", o.LimitPrice)
	}
	if o.AvgFillPrice != nil {
		line += fmt.Sprintf("  avg_fill=%s", o.AvgFillPrice)
	}
	if o.RejectReason != "" {
		line += fmt.Sprintf("  reject=%s", o.RejectReason)
	}
	fmt.Println(line)
}
