package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. It is built once, validated
// once, and treated as an immutable snapshot by everything downstream;
// concurrent drivers never share a mutable configuration object.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Identity
	Symbol     string
	StrategyID string
	ExchangeID string

	// Signal thresholds
	MinTakeProfitPct float64 // Minimum TP distance from entry, percent
	MinStopLossPct   float64 // Lower bound of the SL distance band, percent
	MaxStopLossPct   float64 // Upper bound of the SL distance band, percent

	// Execution cost model
	SlippagePct        float64 // Modeled unfavorable slippage per leg, percent
	FeePct             float64 // Fee per transaction, percent
	SafetyMarginFactor float64 // MinTakeProfitPct must exceed round-trip cost by this factor

	// Lifecycle timeouts
	MaxLifetimeMinutes     int // Cap on a signal's estimated lifetime
	ScheduleTimeoutMinutes int // How long a limit entry may wait un-activated

	// Tick pacing
	TickInterval     time.Duration // Live driver pause between ticks
	ProposalInterval time.Duration // Minimum spacing between producer consultations

	// Data source
	KlineInterval   string        // Candle interval for history fetches, e.g. "1m"
	AvgPriceCandles int           // Candles folded into the reference price
	FetchRetryCount int           // Retries per candle/price fetch
	FetchRetryDelay time.Duration // Delay between retries
	AnomalyFactor   float64       // Reference price jump factor treated as an anomaly

	// Event streams
	MaxErrorEvents int // Bound of the engine's error side channel
	MaxEventBuffer int // Bound of the live driver's result channel

	// Persistence
	DataDir string // Directory for durable signal records
	DBPath  string // SQLite archive of closed signals

	// Observability
	LogLevel    string
	MetricsAddr string // Empty disables the metrics server
}

// LoadConfig loads configuration from environment variables (.env file).
// All violations are collected and reported as one aggregated error so an
// invalid configuration is rejected outright before any strategy runs.
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	cfg.Symbol = getEnv("SYMBOL", "ETHUSDT")
	cfg.StrategyID = getEnv("STRATEGY_ID", "default")
	cfg.ExchangeID = getEnv("EXCHANGE_ID", "binance-futures")

	cfg.MinTakeProfitPct, err = getEnvAsFloatRequired("MIN_TAKE_PROFIT_PCT", 0.5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_TAKE_PROFIT_PCT: %v", err))
	}
	cfg.MinStopLossPct, err = getEnvAsFloatRequired("MIN_STOP_LOSS_PCT", 0.2)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_STOP_LOSS_PCT: %v", err))
	}
	cfg.MaxStopLossPct, err = getEnvAsFloatRequired("MAX_STOP_LOSS_PCT", 20.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_STOP_LOSS_PCT: %v", err))
	}

	cfg.SlippagePct, err = getEnvAsFloatRequired("SLIPPAGE_PCT", 0.1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SLIPPAGE_PCT: %v", err))
	}
	cfg.FeePct, err = getEnvAsFloatRequired("FEE_PCT", 0.1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FEE_PCT: %v", err))
	}
	cfg.SafetyMarginFactor, err = getEnvAsFloatRequired("SAFETY_MARGIN_FACTOR", 1.2)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SAFETY_MARGIN_FACTOR: %v", err))
	}

	cfg.MaxLifetimeMinutes = getEnvAsInt("MAX_LIFETIME_MINUTES", 2880)
	cfg.ScheduleTimeoutMinutes = getEnvAsInt("SCHEDULE_TIMEOUT_MINUTES", 60)

	tickSeconds := getEnvAsInt("TICK_INTERVAL_SECONDS", 30)
	cfg.TickInterval = time.Duration(tickSeconds) * time.Second
	proposalSeconds := getEnvAsInt("PROPOSAL_INTERVAL_SECONDS", 60)
	cfg.ProposalInterval = time.Duration(proposalSeconds) * time.Second

	cfg.KlineInterval = getEnv("KLINE_INTERVAL", "1m")
	cfg.AvgPriceCandles = getEnvAsInt("AVG_PRICE_CANDLES", 5)
	cfg.FetchRetryCount = getEnvAsInt("FETCH_RETRY_COUNT", 3)
	retryDelaySeconds := getEnvAsInt("FETCH_RETRY_DELAY_SECONDS", 2)
	cfg.FetchRetryDelay = time.Duration(retryDelaySeconds) * time.Second
	cfg.AnomalyFactor = getEnvAsFloat("ANOMALY_FACTOR", 1.5)

	cfg.MaxErrorEvents = getEnvAsInt("MAX_ERROR_EVENTS", 64)
	cfg.MaxEventBuffer = getEnvAsInt("MAX_EVENT_BUFFER", 256)

	cfg.DataDir = getEnv("DATA_DIR", "./data/signals")
	cfg.DBPath = getEnv("DB_PATH", "./data/signal_bot.db")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

	errs = append(errs, cfg.validate()...)

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// validate returns every violation found, including the economic-viability
// check tying the minimum take-profit distance to the round-trip cost.
func (c *Config) validate() []string {
	var errs []string

	if c.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}
	if c.StrategyID == "" {
		errs = append(errs, "STRATEGY_ID must be set")
	}
	if c.ExchangeID == "" {
		errs = append(errs, "EXCHANGE_ID must be set")
	}

	if c.MinTakeProfitPct <= 0 {
		errs = append(errs, "MIN_TAKE_PROFIT_PCT must be positive")
	}
	if c.MinStopLossPct <= 0 {
		errs = append(errs, "MIN_STOP_LOSS_PCT must be positive")
	}
	if c.MaxStopLossPct <= c.MinStopLossPct {
		errs = append(errs, "MAX_STOP_LOSS_PCT must be greater than MIN_STOP_LOSS_PCT")
	}

	if c.SlippagePct < 0 {
		errs = append(errs, "SLIPPAGE_PCT cannot be negative")
	}
	if c.FeePct < 0 {
		errs = append(errs, "FEE_PCT cannot be negative")
	}
	if c.SafetyMarginFactor < 1.0 {
		errs = append(errs, "SAFETY_MARGIN_FACTOR must be at least 1.0")
	}

	// Economic viability: a signal whose take-profit distance only just
	// covers slippage and fees can never realize a profit. Enforced here
	// once, not per signal.
	roundTrip := 2.0*c.SlippagePct + 2.0*c.FeePct
	if c.MinTakeProfitPct > 0 && c.MinTakeProfitPct < roundTrip*c.SafetyMarginFactor {
		errs = append(errs, fmt.Sprintf(
			"MIN_TAKE_PROFIT_PCT %.4f does not cover round-trip cost %.4f with safety margin %.2f",
			c.MinTakeProfitPct, roundTrip, c.SafetyMarginFactor))
	}

	if c.MaxLifetimeMinutes <= 0 {
		errs = append(errs, "MAX_LIFETIME_MINUTES must be positive")
	}
	if c.ScheduleTimeoutMinutes <= 0 {
		errs = append(errs, "SCHEDULE_TIMEOUT_MINUTES must be positive")
	}

	if c.TickInterval <= 0 {
		errs = append(errs, "TICK_INTERVAL_SECONDS must be positive")
	}
	if c.ProposalInterval < 0 {
		errs = append(errs, "PROPOSAL_INTERVAL_SECONDS cannot be negative")
	}

	if c.KlineInterval == "" {
		errs = append(errs, "KLINE_INTERVAL must be set")
	}
	if c.AvgPriceCandles <= 0 {
		errs = append(errs, "AVG_PRICE_CANDLES must be positive")
	}
	if c.FetchRetryCount < 0 {
		errs = append(errs, "FETCH_RETRY_COUNT cannot be negative")
	}
	if c.FetchRetryDelay < 0 {
		errs = append(errs, "FETCH_RETRY_DELAY_SECONDS cannot be negative")
	}
	if c.AnomalyFactor <= 1.0 {
		errs = append(errs, "ANOMALY_FACTOR must be greater than 1.0")
	}

	if c.MaxErrorEvents <= 0 {
		errs = append(errs, "MAX_ERROR_EVENTS must be positive")
	}
	if c.MaxEventBuffer <= 0 {
		errs = append(errs, "MAX_EVENT_BUFFER must be positive")
	}

	if c.DataDir == "" {
		errs = append(errs, "DATA_DIR must be set")
	}
	if c.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	return errs
}

// Validate exposes the aggregated checks for configurations constructed in
// code (tests, backtest scenarios) rather than from the environment.
func (c *Config) Validate() error {
	if errs := c.validate(); len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
