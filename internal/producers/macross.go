// Package producers holds signal sources that feed the lifecycle engine.
package producers

import (
	"context"
	"fmt"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// MACrossConfig holds parameters for the moving-average crossover producer.
type MACrossConfig struct {
	Symbol            string
	Interval          string  // e.g., "1m"
	ShortTermMAPeriod int     // e.g., 20
	LongTermMAPeriod  int     // e.g., 50
	EMAPeriod         int     // e.g., 20
	RSIPeriod         int     // e.g., 14
	RSIOverbought     float64 // e.g., 70.0
	RSIOversold       float64 // e.g., 30.0
	// TakeProfitPct and StopLossPct size the proposed levels as a percent
	// of the current price.
	TakeProfitPct   float64
	StopLossPct     float64
	LifetimeMinutes int
}

// MACross proposes a long signal on an uptrend confirmation and a short
// signal on the inverse, with indicator state computed from recent klines.
type MACross struct {
	cfg    MACrossConfig
	logger ports.Logger
	data   ports.DataSource
}

// NewMACross creates a moving-average crossover producer.
func NewMACross(cfg MACrossConfig, logger ports.Logger, data ports.DataSource) (*MACross, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for producer")
	}
	if data == nil {
		return nil, fmt.Errorf("data source is required for producer")
	}
	if cfg.Symbol == "" || cfg.Interval == "" {
		return nil, fmt.Errorf("%w: producer symbol and interval are required", ports.ErrConfigurationError)
	}
	if cfg.ShortTermMAPeriod <= 0 || cfg.LongTermMAPeriod <= 0 || cfg.EMAPeriod <= 0 || cfg.RSIPeriod <= 0 {
		return nil, fmt.Errorf("%w: producer periods must be positive", ports.ErrConfigurationError)
	}
	if cfg.ShortTermMAPeriod >= cfg.LongTermMAPeriod {
		return nil, fmt.Errorf("%w: short term MA period must be less than long term MA period", ports.ErrConfigurationError)
	}
	if cfg.TakeProfitPct <= 0 || cfg.StopLossPct <= 0 || cfg.LifetimeMinutes <= 0 {
		return nil, fmt.Errorf("%w: producer level offsets and lifetime must be positive", ports.ErrConfigurationError)
	}
	return &MACross{cfg: cfg, logger: logger, data: data}, nil
}

// RequiredDataPoints returns the minimum number of klines needed for the
// indicator calculations. RSI looks one step further back than its period.
func (p *MACross) RequiredDataPoints() int {
	maxPeriod := p.cfg.LongTermMAPeriod
	if p.cfg.EMAPeriod > maxPeriod {
		maxPeriod = p.cfg.EMAPeriod
	}
	if p.cfg.RSIPeriod > maxPeriod {
		maxPeriod = p.cfg.RSIPeriod
	}
	return maxPeriod + 1
}

// GetSignal implements ports.SignalProducer. A nil, nil return means no
// entry conditions are met at this instant.
func (p *MACross) GetSignal(ctx context.Context, now time.Time) (*domain.SignalProposal, error) {
	klines, err := p.data.GetKlines(ctx, p.cfg.Symbol, p.cfg.Interval, p.RequiredDataPoints())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines for indicator evaluation: %w", err)
	}
	if len(klines) < p.RequiredDataPoints() {
		p.logger.Debug(ctx, "Not enough kline data for producer evaluation",
			map[string]interface{}{"available": len(klines), "required": p.RequiredDataPoints()})
		return nil, nil
	}

	currentPrice := klines[len(klines)-1].Close

	shortTermMA, err := calculateMovingAverage(klines, p.cfg.ShortTermMAPeriod)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate short term MA: %w", err)
	}
	longTermMA, err := calculateMovingAverage(klines, p.cfg.LongTermMAPeriod)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate long term MA: %w", err)
	}
	ema, err := calculateEMA(klines, p.cfg.EMAPeriod)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate EMA: %w", err)
	}
	rsi, err := calculateRSI(klines, p.cfg.RSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate RSI: %w", err)
	}

	isTrendingUp := currentPrice > shortTermMA && currentPrice > longTermMA && shortTermMA > longTermMA
	isTrendingDown := currentPrice < shortTermMA && currentPrice < longTermMA && shortTermMA < longTermMA

	if isTrendingUp && rsi < p.cfg.RSIOverbought && currentPrice > ema {
		p.logger.Info(ctx, "Long entry conditions met", map[string]interface{}{
			"currentPrice": currentPrice, "shortMA": shortTermMA, "longMA": longTermMA,
			"ema": ema, "rsi": rsi,
		})
		return p.proposal(domain.Long, currentPrice), nil
	}
	if isTrendingDown && rsi > p.cfg.RSIOversold && currentPrice < ema {
		p.logger.Info(ctx, "Short entry conditions met", map[string]interface{}{
			"currentPrice": currentPrice, "shortMA": shortTermMA, "longMA": longTermMA,
			"ema": ema, "rsi": rsi,
		})
		return p.proposal(domain.Short, currentPrice), nil
	}

	p.logger.Debug(ctx, "Entry conditions not met", map[string]interface{}{
		"currentPrice": currentPrice, "shortMA": shortTermMA, "longMA": longTermMA,
		"ema": ema, "rsi": rsi,
		"isTrendingUp": isTrendingUp, "isTrendingDown": isTrendingDown,
	})
	return nil, nil
}

// proposal builds a market-entry proposal with percent offsets around the
// current price. EntryPrice is left zero so the engine resolves it to its
// own reference price.
func (p *MACross) proposal(side domain.PositionSide, price float64) *domain.SignalProposal {
	tp := price * (1 + p.cfg.TakeProfitPct/100)
	sl := price * (1 - p.cfg.StopLossPct/100)
	if side == domain.Short {
		tp = price * (1 - p.cfg.TakeProfitPct/100)
		sl = price * (1 + p.cfg.StopLossPct/100)
	}
	return &domain.SignalProposal{
		Side:            side,
		TakeProfit:      tp,
		StopLoss:        sl,
		LifetimeMinutes: p.cfg.LifetimeMinutes,
		Note:            "ma-cross",
	}
}
