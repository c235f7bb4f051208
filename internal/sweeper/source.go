package sweeper

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// PriceSource supplies the symbol -> last price snapshot a sweep runs
// against.
type PriceSource interface {
	Snapshot(ctx context.Context) (map[string]decimal.Decimal, error)
}

// StaticSource serves a fixed price map. Used in tests and for manual
// driving.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticSource creates a static price source.
func NewStaticSource(prices map[string]decimal.Decimal) *StaticSource {
	if prices == nil {
		prices = make(map[string]decimal.Decimal)
	}
	return &StaticSource{prices: prices}
}

// Set updates the price for a symbol.
func (s *StaticSource) Set(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// Snapshot returns a copy of the current price map.
func (s *StaticSource) Snapshot(ctx context.Context) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(s.prices))
	for k, v := range s.prices {
		out[k] = v
	}
	return out, nil
}

// FileSource reads a YAML file of symbol -> price on every snapshot, so
// prices can be edited while the engine runs. This stands in for a live
// feed in the paper environment.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed price source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Snapshot reloads and parses the price file.
func (f *FileSource) Snapshot(ctx context.Context) (map[string]decimal.Decimal, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read price file: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse price file: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(raw))
	for symbol, s := range raw {
		price, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("parse price for %s: %w", symbol, err)
		}
		prices[symbol] = price
	}

	return prices, nil
}
