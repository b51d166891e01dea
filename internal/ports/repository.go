package ports

import (
	"context"

	"cryptoSignalBot/internal/domain"
)

// ClosedSignalArchive defines the interface for recording and querying
// completed signals. It is a pure consumer of Closed tick results; the
// lifecycle engine never reads it back.
type ClosedSignalArchive interface {
	// RecordClose saves a closed-signal row and returns its assigned ID.
	RecordClose(ctx context.Context, cs *domain.ClosedSignal) (int64, error)
	// FindBySymbol retrieves the most recent closed signals for a symbol, up to a limit.
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.ClosedSignal, error)
	// CountTodayBySymbol counts the signals closed today for a symbol.
	CountTodayBySymbol(ctx context.Context, symbol string) (int, error)
	// TotalPNLPercent sums the realized PNL percentage across all closed signals.
	TotalPNLPercent(ctx context.Context) (float64, error)
}
