package main

import (
	"context"
	"log" // Standard log only for fatal errors before the logger is up
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/adapters/binanceclient"
	"cryptoSignalBot/internal/adapters/filestore"
	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/adapters/sqlite"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/engine"
	"cryptoSignalBot/internal/metrics"
	"cryptoSignalBot/internal/producers"
	"cryptoSignalBot/internal/risk"
	"cryptoSignalBot/internal/runner"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.New(logger.ParseLevel(cfg.LogLevel))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize the durable signal store
	store, err := filestore.New(cfg.DataDir, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize signal store")
		log.Fatalf("FATAL: Failed to initialize signal store: %v", err)
	}

	// 4. Initialize the closed-signal archive
	archive, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize signal archive")
		log.Fatalf("FATAL: Failed to initialize signal archive: %v", err)
	}
	defer func() {
		if err := archive.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing signal archive")
		}
	}()

	// 5. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
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
	appLogger.Info(ctx, "Binance client initialized")

	// 6. Initialize the signal producer
	producer, err := producers.NewMACross(producers.MACrossConfig{
		Symbol:            cfg.Symbol,
		Interval:          cfg.KlineInterval,
		ShortTermMAPeriod: 20,
		LongTermMAPeriod:  50,
		EMAPeriod:         20,
		RSIPeriod:         14,
		RSIOverbought:     70,
		RSIOversold:       30,
		TakeProfitPct:     cfg.MinTakeProfitPct * 2,
		StopLossPct:       cfg.MinStopLossPct * 2,
		LifetimeMinutes:   cfg.MaxLifetimeMinutes / 2,
	}, appLogger, binanceClient)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize producer")
		log.Fatalf("FATAL: Failed to initialize producer: %v", err)
	}

	// 7. Initialize the risk controller
	riskManager, err := risk.NewManager(appLogger, map[string]risk.ProfileConfig{
		"default": {MaxOpenPositions: 1},
	}, nil)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize risk manager")
		log.Fatalf("FATAL: Failed to initialize risk manager: %v", err)
	}

	// 8. Build the engine for this key
	key := domain.Key{Symbol: cfg.Symbol, StrategyID: cfg.StrategyID, ExchangeID: cfg.ExchangeID}
	eng, err := engine.New(cfg, key, engine.Deps{
		Logger:   appLogger,
		Data:     binanceClient,
		Store:    store,
		Risk:     riskManager,
		Producer: producer,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize engine")
		log.Fatalf("FATAL: Failed to initialize engine: %v", err)
	}

	// 9. Metrics endpoint, if configured
	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		var promReg *prometheus.Registry
		m, promReg = metrics.New()
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, promReg, appLogger); err != nil {
				appLogger.Error(ctx, err, "Metrics server failed")
			}
		}()
	}

	// 10. Run the live driver until interrupted
	live, err := runner.NewLive(cfg, eng, appLogger, m, archive)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize live driver")
		log.Fatalf("FATAL: Failed to initialize live driver: %v", err)
	}

	go func() {
		for res := range live.Results() {
			appLogger.Debug(ctx, "Lifecycle event", map[string]interface{}{
				"status": res.Status, "price": res.Price,
			})
		}
	}()

	if err := live.Run(ctx); err != nil {
		appLogger.Error(ctx, err, "Live driver exited with error")
		log.Fatalf("FATAL: Live driver exited with error: %v", err)
	}

	appLogger.Info(ctx, "Application finished gracefully.")
}
