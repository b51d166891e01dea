// Package binanceclient implements the ports.DataSource interface using the
// go-binance library against the USD-M futures API.
package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

const (
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Client implements ports.DataSource using the go-binance library.
type Client struct {
	futuresClient   *futures.Client
	logger          ports.Logger
	avgPriceCandles int

	precMu     sync.RWMutex
	precisions map[string]symbolPrecision
}

type symbolPrecision struct {
	price    int32
	quantity int32
}

// Config holds configuration specific to the Binance adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
	// AvgPriceCandles is the number of recent 1m candles the reference
	// price is averaged over.
	AvgPriceCandles int
}

// New creates a new Binance data source adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.AvgPriceCandles <= 0 {
		return nil, fmt.Errorf("%w: AvgPriceCandles must be positive, got %d", ports.ErrConfigurationError, cfg.AvgPriceCandles)
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	return &Client{
		futuresClient:   client,
		logger:          cfg.Logger,
		avgPriceCandles: cfg.AvgPriceCandles,
		precisions:      make(map[string]symbolPrecision),
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003:
			mappedErr = ports.ErrRateLimited
		case -1021:
			mappedErr = ports.ErrTimeout
		case -1022:
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130:
			mappedErr = ports.ErrInvalidRequest
		case -2014, -2015:
			mappedErr = ports.ErrInvalidAPIKeys
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// GetKlines fetches the most recent klines for a symbol and interval.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	op := "GetKlines"
	binanceKlines, err := c.futuresClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	domainKlines := make([]*domain.Kline, 0, len(binanceKlines))
	for _, bk := range binanceKlines {
		dk, err := translateBinanceKline(bk, symbol, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
		}
		domainKlines = append(domainKlines, dk)
	}

	return domainKlines, nil
}

// GetKlinesRange fetches all klines for a symbol/interval between start and end time.
func (c *Client) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	op := "GetKlinesRange"
	var allKlines []*domain.Kline
	const maxLimit = 1500
	from := start

	for {
		klines, err := c.futuresClient.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(maxLimit).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, bk := range klines {
			dk, err := translateBinanceKline(bk, symbol, interval)
			if err != nil {
				return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline range: %w", err), op)
			}
			allKlines = append(allKlines, dk)
		}
		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime)
		if from.After(end) || len(klines) < maxLimit {
			break
		}
	}

	return allKlines, nil
}

// AveragePrice returns a volume-weighted average of the closes of the most
// recent 1m candles. Falls back to a simple mean when the window carries no
// volume.
func (c *Client) AveragePrice(ctx context.Context, symbol string) (float64, error) {
	klines, err := c.GetKlines(ctx, symbol, "1m", c.avgPriceCandles)
	if err != nil {
		return 0, err
	}
	if len(klines) == 0 {
		return 0, fmt.Errorf("AveragePrice failed: %w: no klines returned for %s", ports.ErrExchangeUnavailable, symbol)
	}

	var weighted, volume, simple float64
	for _, k := range klines {
		weighted += k.Close * k.Volume
		volume += k.Volume
		simple += k.Close
	}
	if volume > 0 {
		return weighted / volume, nil
	}
	return simple / float64(len(klines)), nil
}

// FormatPrice renders a price using the symbol's exchange price precision.
func (c *Client) FormatPrice(ctx context.Context, symbol string, value float64) (string, error) {
	prec, err := c.precision(ctx, symbol)
	if err != nil {
		return "", err
	}
	return decimal.NewFromFloat(value).Round(prec.price).StringFixed(prec.price), nil
}

// FormatQuantity renders a quantity using the symbol's exchange quantity precision.
func (c *Client) FormatQuantity(ctx context.Context, symbol string, value float64) (string, error) {
	prec, err := c.precision(ctx, symbol)
	if err != nil {
		return "", err
	}
	return decimal.NewFromFloat(value).Round(prec.quantity).StringFixed(prec.quantity), nil
}

// precision returns the cached exchange precision for a symbol, fetching the
// exchange info on first use.
func (c *Client) precision(ctx context.Context, symbol string) (symbolPrecision, error) {
	c.precMu.RLock()
	prec, ok := c.precisions[symbol]
	c.precMu.RUnlock()
	if ok {
		return prec, nil
	}

	op := "GetExchangeInfo"
	info, err := c.futuresClient.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return symbolPrecision{}, c.handleError(ctx, err, op)
	}

	c.precMu.Lock()
	defer c.precMu.Unlock()
	for _, s := range info.Symbols {
		c.precisions[s.Symbol] = symbolPrecision{
			price:    int32(s.PricePrecision),
			quantity: int32(s.QuantityPrecision),
		}
	}
	prec, ok = c.precisions[symbol]
	if !ok {
		return symbolPrecision{}, fmt.Errorf("%s failed: %w: symbol %s not listed", op, ports.ErrNotFound, symbol)
	}
	return prec, nil
}

func translateBinanceKline(bk *futures.Kline, symbol, interval string) (*domain.Kline, error) {
	if bk == nil {
		return nil, errors.New("received nil historical kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(bk.OpenTime),
		CloseTime: time.UnixMilli(bk.CloseTime),
		Symbol:    symbol,
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
		IsFinal:   true,
	}, nil
}

var _ ports.DataSource = (*Client)(nil)
