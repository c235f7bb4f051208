// Package sweeper drives periodic fill attempts for resting limit
// orders. It owns no matching logic; it only fetches prices and invokes
// the execution service on a schedule.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/thanhle/paperbroker/internal/execution"
)

// Config holds sweeper settings.
type Config struct {
	Interval time.Duration
	// RatePerSec caps sweep frequency independently of Interval, for
	// callers that also trigger sweeps on demand.
	RatePerSec int
}

// DefaultConfig returns default sweeper settings.
func DefaultConfig() Config {
	return Config{
		Interval:   5 * time.Second,
		RatePerSec: 1,
	}
}

// Sweeper periodically re-evaluates resting limit orders against fresh
// prices.
type Sweeper struct {
	cfg     Config
	svc     execution.Service
	prices  PriceSource
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a sweeper. logger may be nil.
func New(cfg Config, svc execution.Service, prices PriceSource, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultConfig().RatePerSec
	}

	return &Sweeper{
		cfg:     cfg,
		svc:     svc,
		prices:  prices,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		logger:  logger,
	}
}

// Run sweeps on the configured interval until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("resting-order sweeper started", "interval", s.cfg.Interval)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("resting-order sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", "err", err)
			}
		}
	}
}

// Sweep runs one pass: snapshot prices, attempt resting fills. Passes
// beyond the rate limit are skipped, not queued.
func (s *Sweeper) Sweep(ctx context.Context) error {
	if !s.limiter.Allow() {
		return nil
	}

	prices, err := s.prices.Snapshot(ctx)
	if err != nil {
		return err
	}

	filled, err := s.svc.TryFillResting(ctx, prices)
	if err != nil {
		return err
	}
	if filled > 0 {
		s.logger.Info("sweep filled resting orders", "fills", filled)
	}

	return nil
}
