package ports

import (
	"context"
	"time"

	"cryptoSignalBot/internal/domain"
)

// DataSource defines the market data surface the engine and drivers consume.
// Implementations are expected to return klines in ascending time order.
type DataSource interface {
	// GetKlines retrieves the most recent klines for the given symbol.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)

	// GetKlinesRange fetches all klines for a symbol/interval between start and end time.
	GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error)

	// AveragePrice computes the current reference price for a symbol,
	// volume-weighted over the most recent candles to smooth single-candle noise.
	AveragePrice(ctx context.Context, symbol string) (float64, error)

	// FormatPrice renders a price at the exchange's precision for the symbol.
	FormatPrice(ctx context.Context, symbol string, value float64) (string, error)

	// FormatQuantity renders a quantity at the exchange's precision for the symbol.
	FormatQuantity(ctx context.Context, symbol string, value float64) (string, error)
}
