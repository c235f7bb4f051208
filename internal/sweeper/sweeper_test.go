package sweeper

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thanhle/paperbroker/internal/persistence"
	"github.com/thanhle/paperbroker/internal/types"
)

// stubService records TryFillResting invocations; the read and write
// operations are unused by the sweeper.
type stubService struct {
	sweeps     atomic.Int64
	lastPrices map[string]decimal.Decimal
	fills      int
}

func (s *stubService) TryFillResting(_ context.Context, prices map[string]decimal.Decimal) (int, error) {
	s.sweeps.Add(1)
	s.lastPrices = prices
	return s.fills, nil
}

func (s *stubService) PlaceOrder(context.Context, types.OrderSpec, types.ExecutionContext) (*types.Order, error) {
	return nil, nil
}
func (s *stubService) CancelOrder(context.Context, string) (bool, error) { return false, nil }
func (s *stubService) ListOrders(context.Context, persistence.OrderFilter) ([]types.Order, error) {
	return nil, nil
}
func (s *stubService) ListFills(context.Context, persistence.FillFilter) ([]types.Fill, error) {
	return nil, nil
}
func (s *stubService) ListPositions(context.Context) ([]types.PositionView, error) { return nil, nil }
func (s *stubService) PnLToday(context.Context) (types.DailyPnL, error) {
	return types.DailyPnL{}, nil
}
func (s *stubService) ResetDaily(context.Context) error { return nil }

func TestSweepPassesSnapshotToService(t *testing.T) {
	svc := &stubService{fills: 2}
	source := NewStaticSource(map[string]decimal.Decimal{
		"XYZ": decimal.RequireFromString("50"),
	})

	s := New(DefaultConfig(), svc, source, nil)
	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if svc.sweeps.Load() != 1 {
		t.Fatalf("sweeps = %d, want 1", svc.sweeps.Load())
	}
	price, ok := svc.lastPrices["XYZ"]
	if !ok || !price.Equal(decimal.RequireFromString("50")) {
		t.Errorf("prices passed = %v", svc.lastPrices)
	}
}

func TestSweepSkipsBeyondRateLimit(t *testing.T) {
	svc := &stubService{}
	source := NewStaticSource(nil)

	s := New(Config{Interval: time.Second, RatePerSec: 1}, svc, source, nil)

	// Burst of 1: the first pass runs, the second is dropped.
	for i := 0; i < 2; i++ {
		if err := s.Sweep(context.Background()); err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
	}

	if svc.sweeps.Load() != 1 {
		t.Errorf("sweeps = %d, want 1 (rate limited)", svc.sweeps.Load())
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	svc := &stubService{}
	s := New(Config{Interval: 10 * time.Millisecond, RatePerSec: 100}, svc, NewStaticSource(nil), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("run returned %v, want context.DeadlineExceeded", err)
	}
	if svc.sweeps.Load() == 0 {
		t.Error("no sweeps ran before cancellation")
	}
}

func TestStaticSourceSnapshotIsACopy(t *testing.T) {
	source := NewStaticSource(nil)
	source.Set("XYZ", decimal.RequireFromString("50"))

	snap, err := source.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	snap["XYZ"] = decimal.RequireFromString("1")

	again, _ := source.Snapshot(context.Background())
	if !again["XYZ"].Equal(decimal.RequireFromString("50")) {
		t.Error("mutating a snapshot leaked into the source")
	}
}

func TestFileSourceReloadsOnSnapshot(t *testing.T) {
	f, err := os.CreateTemp("", "prices-*.yaml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	write := func(body string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write price file: %v", err)
		}
	}

	write("XYZ: \"50\"\nABC: \"20.25\"\n")
	source := NewFileSource(path)

	prices, err := source.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("prices = %d, want 2", len(prices))
	}
	if !prices["ABC"].Equal(decimal.RequireFromString("20.25")) {
		t.Errorf("ABC = %s, want 20.25", prices["ABC"])
	}

	// Edits show up on the next pass without restarting anything.
	write("XYZ: \"48\"\n")
	prices, err = source.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot after edit: %v", err)
	}
	if !prices["XYZ"].Equal(decimal.RequireFromString("48")) {
		t.Errorf("XYZ = %s, want 48", prices["XYZ"])
	}
}

func TestFileSourceRejectsBadPrice(t *testing.T) {
	f, err := os.CreateTemp("", "prices-*.yaml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := os.WriteFile(path, []byte("XYZ: \"not-a-number\"\n"), 0o644); err != nil {
		t.Fatalf("write price file: %v", err)
	}

	if _, err := NewFileSource(path).Snapshot(context.Background()); err == nil {
		t.Fatal("expected a parse error")
	}
}
