// Command backtest_runner replays a historical period through the signal
// lifecycle engine and prints the aggregated outcome. The period, producer
// parameters and level sizing come from a YAML scenario file; the ambient
// configuration (thresholds, cost model, API keys) comes from the
// environment as usual.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/adapters/binanceclient"
	"cryptoSignalBot/internal/adapters/filestore"
	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/engine"
	"cryptoSignalBot/internal/producers"
	"cryptoSignalBot/internal/risk"
	"cryptoSignalBot/internal/runner"
)

// Scenario describes one backtest run.
type Scenario struct {
	Symbol   string    `yaml:"symbol"`
	Interval string    `yaml:"interval"`
	Start    time.Time `yaml:"start"`
	End      time.Time `yaml:"end"`

	Producer struct {
		ShortTermMAPeriod int     `yaml:"shortTermMAPeriod"`
		LongTermMAPeriod  int     `yaml:"longTermMAPeriod"`
		EMAPeriod         int     `yaml:"emaPeriod"`
		RSIPeriod         int     `yaml:"rsiPeriod"`
		RSIOverbought     float64 `yaml:"rsiOverbought"`
		RSIOversold       float64 `yaml:"rsiOversold"`
		TakeProfitPct     float64 `yaml:"takeProfitPct"`
		StopLossPct       float64 `yaml:"stopLossPct"`
		LifetimeMinutes   int     `yaml:"lifetimeMinutes"`
	} `yaml:"producer"`
}

func loadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %q: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %q: %w", path, err)
	}
	if s.Symbol == "" || s.Interval == "" {
		return nil, fmt.Errorf("scenario must set symbol and interval")
	}
	if !s.End.After(s.Start) {
		return nil, fmt.Errorf("scenario end %s must be after start %s", s.End, s.Start)
	}
	return &s, nil
}

func main() {
	scenarioPath := flag.String("scenario", "scenario.yaml", "path to the YAML scenario file")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.New(logger.ParseLevel(cfg.LogLevel))
	ctx := context.Background()

	scenario, err := loadScenario(*scenarioPath)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load scenario")
		log.Fatalf("FATAL: Failed to load scenario: %v", err)
	}
	cfg.Symbol = scenario.Symbol
	cfg.KlineInterval = scenario.Interval

	// Historical candles come from the real exchange; the replay source then
	// serves them deterministically.
	client, err := binanceclient.New(binanceclient.Config{
		APIKey:          cfg.APIKey,
		SecretKey:       cfg.SecretKey,
		UseTestnet:      cfg.IsTestnet,
		Logger:          appLogger,
		AvgPriceCandles: cfg.AvgPriceCandles,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	appLogger.Info(ctx, "Fetching historical candles", map[string]interface{}{
		"symbol": scenario.Symbol, "interval": scenario.Interval,
		"start": scenario.Start, "end": scenario.End,
	})
	klines, err := client.GetKlinesRange(ctx, scenario.Symbol, scenario.Interval, scenario.Start, scenario.End)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to fetch historical candles")
		log.Fatalf("FATAL: Failed to fetch historical candles: %v", err)
	}
	appLogger.Info(ctx, "Historical candles loaded", map[string]interface{}{"count": len(klines)})

	replay, err := runner.NewReplay(klines)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to build replay source")
		log.Fatalf("FATAL: Failed to build replay source: %v", err)
	}

	producer, err := producers.NewMACross(producers.MACrossConfig{
		Symbol:            scenario.Symbol,
		Interval:          scenario.Interval,
		ShortTermMAPeriod: scenario.Producer.ShortTermMAPeriod,
		LongTermMAPeriod:  scenario.Producer.LongTermMAPeriod,
		EMAPeriod:         scenario.Producer.EMAPeriod,
		RSIPeriod:         scenario.Producer.RSIPeriod,
		RSIOverbought:     scenario.Producer.RSIOverbought,
		RSIOversold:       scenario.Producer.RSIOversold,
		TakeProfitPct:     scenario.Producer.TakeProfitPct,
		StopLossPct:       scenario.Producer.StopLossPct,
		LifetimeMinutes:   scenario.Producer.LifetimeMinutes,
	}, appLogger, replay)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize producer")
		log.Fatalf("FATAL: Failed to initialize producer: %v", err)
	}

	riskManager, err := risk.NewManager(appLogger, map[string]risk.ProfileConfig{
		"default": {MaxOpenPositions: 1},
	}, nil)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize risk manager")
		log.Fatalf("FATAL: Failed to initialize risk manager: %v", err)
	}

	// Persistence is throwaway in a backtest but the same adapter is used,
	// so the durable write path is exercised end to end.
	tmpDir, err := os.MkdirTemp("", "backtest-signals-")
	if err != nil {
		log.Fatalf("FATAL: Failed to create temp data directory: %v", err)
	}
	defer os.RemoveAll(tmpDir)
	store, err := filestore.New(tmpDir, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize signal store")
		log.Fatalf("FATAL: Failed to initialize signal store: %v", err)
	}

	key := domain.Key{Symbol: scenario.Symbol, StrategyID: cfg.StrategyID, ExchangeID: cfg.ExchangeID}
	eng, err := engine.New(cfg, key, engine.Deps{
		Logger:   appLogger,
		Data:     replay,
		Store:    store,
		Risk:     riskManager,
		Producer: producer,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize engine")
		log.Fatalf("FATAL: Failed to initialize engine: %v", err)
	}

	bt, err := runner.NewBacktest(cfg, eng, replay, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize backtest driver")
		log.Fatalf("FATAL: Failed to initialize backtest driver: %v", err)
	}

	go func() {
		for res := range bt.Results() {
			appLogger.Info(ctx, "Signal closed", map[string]interface{}{
				"signalID": res.Signal.ID, "reason": res.CloseReason,
				"exitPrice": res.Price, "pnlPercent": res.PNLPercent,
				"closedAt": res.ClosedAt,
			})
		}
	}()

	summary, err := bt.Run(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Backtest failed")
		log.Fatalf("FATAL: Backtest failed: %v", err)
	}

	fmt.Printf("Backtest %s %s from %s to %s\n", scenario.Symbol, scenario.Interval,
		scenario.Start.Format(time.RFC3339), scenario.End.Format(time.RFC3339))
	fmt.Printf("  ticks:    %d\n", summary.Ticks)
	fmt.Printf("  opened:   %d\n", summary.Opened)
	fmt.Printf("  closed:   %d\n", summary.Closed)
	fmt.Printf("  wins:     %d\n", summary.Wins)
	fmt.Printf("  losses:   %d\n", summary.Losses)
	fmt.Printf("  timeouts: %d\n", summary.Timeouts)
	fmt.Printf("  net pnl:  %.4f%%\n", summary.TotalPNLPercent)
}
