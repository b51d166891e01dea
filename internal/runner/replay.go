// Package runner contains the two tick drivers: the historical backtest and
// the wall-clock live loop.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// Replay is a ports.DataSource over a fixed candle series. The backtest
// driver advances a cursor through the series; every read answers as of the
// candle under the cursor, so producers and the engine see a consistent
// point in time.
type Replay struct {
	mu     sync.RWMutex
	klines []*domain.Kline
	cursor int
}

// NewReplay creates a replay source positioned on the first candle.
func NewReplay(klines []*domain.Kline) (*Replay, error) {
	if len(klines) == 0 {
		return nil, fmt.Errorf("%w: replay requires at least one candle", ports.ErrConfigurationError)
	}
	return &Replay{klines: klines}, nil
}

// Advance moves the cursor to the candle at index i.
func (r *Replay) Advance(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 {
		i = 0
	}
	if i >= len(r.klines) {
		i = len(r.klines) - 1
	}
	r.cursor = i
}

// GetKlines returns up to limit candles ending at the cursor, oldest first.
func (r *Replay) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	end := r.cursor + 1
	start := end - limit
	if start < 0 {
		start = 0
	}
	return r.klines[start:end], nil
}

// GetKlinesRange returns the candles overlapping [start, end]. The range is
// not clamped to the cursor: the fast-forward scan deliberately reads ahead
// of the outer loop.
func (r *Replay) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Kline
	for _, k := range r.klines {
		if k.CloseTime.Before(start) || k.OpenTime.After(end) {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

// AveragePrice returns the close of the candle under the cursor.
func (r *Replay) AveragePrice(ctx context.Context, symbol string) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.klines[r.cursor].Close, nil
}

func (r *Replay) FormatPrice(ctx context.Context, symbol string, value float64) (string, error) {
	return fmt.Sprintf("%.8f", value), nil
}

func (r *Replay) FormatQuantity(ctx context.Context, symbol string, value float64) (string, error) {
	return fmt.Sprintf("%.8f", value), nil
}

var _ ports.DataSource = (*Replay)(nil)
