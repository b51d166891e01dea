package risk

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func key(symbol, strategy string) domain.Key {
	return domain.Key{Symbol: symbol, StrategyID: strategy, ExchangeID: "binance-futures"}
}

func proposal() *domain.SignalProposal {
	return &domain.SignalProposal{Side: domain.Long, TakeProfit: 42600, StopLoss: 41500, LifetimeMinutes: 60}
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, map[string]ProfileConfig{"default": {MaxOpenPositions: 1}}, nil)
	require.Error(t, err)

	_, err = NewManager(nopLogger{}, map[string]ProfileConfig{"aggressive": {MaxOpenPositions: 1}}, nil)
	require.ErrorIs(t, err, ports.ErrConfigurationError, "default profile is mandatory")

	_, err = NewManager(nopLogger{}, map[string]ProfileConfig{"default": {MaxOpenPositions: 0}}, nil)
	require.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = NewManager(nopLogger{},
		map[string]ProfileConfig{"default": {MaxOpenPositions: 1}},
		map[string]string{"scalper": "missing"})
	require.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestOpenPositionLimit(t *testing.T) {
	m, err := NewManager(nopLogger{}, map[string]ProfileConfig{"default": {MaxOpenPositions: 2}}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.CheckSignal(ctx, proposal(), key("ETHUSDT", "s1")))
	m.RegisterOpenPosition(ctx, key("ETHUSDT", "s1"))
	require.NoError(t, m.CheckSignal(ctx, proposal(), key("BTCUSDT", "s2")))
	m.RegisterOpenPosition(ctx, key("BTCUSDT", "s2"))

	err = m.CheckSignal(ctx, proposal(), key("SOLUSDT", "s3"))
	require.ErrorIs(t, err, ports.ErrRiskRejected)

	m.ReleasePosition(ctx, key("ETHUSDT", "s1"))
	assert.NoError(t, m.CheckSignal(ctx, proposal(), key("SOLUSDT", "s3")))
}

func TestPerSymbolLimit(t *testing.T) {
	m, err := NewManager(nopLogger{}, map[string]ProfileConfig{
		"default": {MaxOpenPositions: 10, MaxPerSymbol: 1},
	}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	m.RegisterOpenPosition(ctx, key("ETHUSDT", "s1"))
	err = m.CheckSignal(ctx, proposal(), key("ETHUSDT", "s2"))
	require.ErrorIs(t, err, ports.ErrRiskRejected)
	assert.Contains(t, err.Error(), "ETHUSDT")

	assert.NoError(t, m.CheckSignal(ctx, proposal(), key("BTCUSDT", "s2")))
}

func TestProfileMapping(t *testing.T) {
	m, err := NewManager(nopLogger{}, map[string]ProfileConfig{
		"default":    {MaxOpenPositions: 1},
		"aggressive": {MaxOpenPositions: 3},
	}, map[string]string{"scalper": "aggressive"})
	require.NoError(t, err)
	ctx := context.Background()

	// The default profile is full; the mapped profile is not affected.
	m.RegisterOpenPosition(ctx, key("ETHUSDT", "swing"))
	require.ErrorIs(t, m.CheckSignal(ctx, proposal(), key("BTCUSDT", "swing")), ports.ErrRiskRejected)
	assert.NoError(t, m.CheckSignal(ctx, proposal(), key("BTCUSDT", "scalper")))

	assert.Equal(t, 1, m.OpenPositions("default"))
	assert.Equal(t, 0, m.OpenPositions("aggressive"))
}

func TestRegisterAndReleaseAreIdempotent(t *testing.T) {
	m, err := NewManager(nopLogger{}, map[string]ProfileConfig{"default": {MaxOpenPositions: 5}}, nil)
	require.NoError(t, err)
	ctx := context.Background()
	k := key("ETHUSDT", "s1")

	m.RegisterOpenPosition(ctx, k)
	m.RegisterOpenPosition(ctx, k)
	assert.Equal(t, 1, m.OpenPositions("default"), "double register counts once")

	m.ReleasePosition(ctx, k)
	m.ReleasePosition(ctx, k)
	assert.Equal(t, 0, m.OpenPositions("default"), "double release is harmless")
}

func TestConcurrentAdmission(t *testing.T) {
	m, err := NewManager(nopLogger{}, map[string]ProfileConfig{"default": {MaxOpenPositions: 64}}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := key(fmt.Sprintf("SYM%dUSDT", i), "s1")
			if m.CheckSignal(ctx, proposal(), k) == nil {
				m.RegisterOpenPosition(ctx, k)
			}
			m.ReleasePosition(ctx, k)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, m.OpenPositions("default"))
}
