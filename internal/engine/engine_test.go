package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// Mock implementations

type mockLogger struct {
	mu        sync.Mutex
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockDataSource struct {
	price    float64
	priceErr error
	klines   []*domain.Kline
}

func (m *mockDataSource) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	return m.klines, nil
}
func (m *mockDataSource) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	return m.klines, nil
}
func (m *mockDataSource) AveragePrice(ctx context.Context, symbol string) (float64, error) {
	return m.price, m.priceErr
}
func (m *mockDataSource) FormatPrice(ctx context.Context, symbol string, value float64) (string, error) {
	return fmt.Sprintf("%.2f", value), nil
}
func (m *mockDataSource) FormatQuantity(ctx context.Context, symbol string, value float64) (string, error) {
	return fmt.Sprintf("%.3f", value), nil
}

type mockStore struct {
	mu        sync.Mutex
	scheduled map[string]*domain.Signal
	active    map[string]*domain.Signal
	writeErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		scheduled: make(map[string]*domain.Signal),
		active:    make(map[string]*domain.Signal),
	}
}

func (m *mockStore) ReadScheduled(ctx context.Context, key domain.Key) (*domain.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduled[key.String()], nil
}
func (m *mockStore) WriteScheduled(ctx context.Context, key domain.Key, sig *domain.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	cp := *sig
	m.scheduled[key.String()] = &cp
	return nil
}
func (m *mockStore) DeleteScheduled(ctx context.Context, key domain.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scheduled, key.String())
	return nil
}
func (m *mockStore) ReadActive(ctx context.Context, key domain.Key) (*domain.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[key.String()], nil
}
func (m *mockStore) WriteActive(ctx context.Context, key domain.Key, sig *domain.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	cp := *sig
	m.active[key.String()] = &cp
	return nil
}
func (m *mockStore) DeleteActive(ctx context.Context, key domain.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, key.String())
	return nil
}

type mockRisk struct {
	mu        sync.Mutex
	checkErr  error
	registers int
	releases  int
}

func (m *mockRisk) CheckSignal(ctx context.Context, proposal *domain.SignalProposal, key domain.Key) error {
	return m.checkErr
}
func (m *mockRisk) RegisterOpenPosition(ctx context.Context, key domain.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registers++
}
func (m *mockRisk) ReleasePosition(ctx context.Context, key domain.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
}

type mockProducer struct {
	proposal *domain.SignalProposal
	err      error
	panics   bool
	calls    int
}

func (m *mockProducer) GetSignal(ctx context.Context, now time.Time) (*domain.SignalProposal, error) {
	m.calls++
	if m.panics {
		panic("strategy blew up")
	}
	return m.proposal, m.err
}

// Test fixtures

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testKey() domain.Key {
	return domain.Key{Symbol: "ETHUSDT", StrategyID: "default", ExchangeID: "binance-futures"}
}

func testConfig() *config.Config {
	return &config.Config{
		Symbol:                 "ETHUSDT",
		StrategyID:             "default",
		ExchangeID:             "binance-futures",
		MinTakeProfitPct:       0.3,
		MinStopLossPct:         0.2,
		MaxStopLossPct:         20.0,
		SlippagePct:            0.1,
		FeePct:                 0.1,
		SafetyMarginFactor:     1.0,
		MaxLifetimeMinutes:     2880,
		ScheduleTimeoutMinutes: 60,
		TickInterval:           time.Second,
		ProposalInterval:       0,
		KlineInterval:          "1m",
		AvgPriceCandles:        5,
		FetchRetryCount:        0,
		FetchRetryDelay:        0,
		AnomalyFactor:          1.5,
		MaxErrorEvents:         16,
		MaxEventBuffer:         16,
		DataDir:                "unused",
		DBPath:                 "unused",
	}
}

type fixture struct {
	eng      *Engine
	data     *mockDataSource
	store    *mockStore
	risk     *mockRisk
	producer *mockProducer
	logger   *mockLogger
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	f := &fixture{
		data:     &mockDataSource{price: 42000},
		store:    newMockStore(),
		risk:     &mockRisk{},
		producer: &mockProducer{},
		logger:   &mockLogger{},
	}
	eng, err := New(cfg, testKey(), Deps{
		Logger:   f.logger,
		Data:     f.data,
		Store:    f.store,
		Risk:     f.risk,
		Producer: f.producer,
	})
	require.NoError(t, err)
	f.eng = eng
	return f
}

func marketLongProposal() *domain.SignalProposal {
	return &domain.SignalProposal{
		Side:            domain.Long,
		TakeProfit:      42600,
		StopLoss:        41500,
		LifetimeMinutes: 120,
	}
}

// Tests

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(testConfig(), testKey(), Deps{})
	require.Error(t, err)

	_, err = New(testConfig(), domain.Key{Symbol: "ETHUSDT"}, Deps{
		Logger: &mockLogger{}, Data: &mockDataSource{}, Store: newMockStore(),
		Risk: &mockRisk{}, Producer: &mockProducer{},
	})
	require.Error(t, err)
}

func TestMarketProposalOpensImmediately(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.proposal = marketLongProposal()

	res, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)
	require.Equal(t, domain.TickOpened, res.Status)
	require.NotNil(t, res.Signal)

	assert.NotEmpty(t, res.Signal.ID, "an ID is generated when the proposal carries none")
	assert.Equal(t, 42000.0, res.Signal.EntryPrice, "market order resolves to the reference price")
	assert.Equal(t, baseTime, res.Signal.CreatedAt)
	assert.Equal(t, baseTime, res.Signal.ActivatedAt, "market orders activate at creation time")
	assert.False(t, res.Signal.PendingEntry)

	assert.Equal(t, 1, f.risk.registers)
	assert.NotNil(t, f.store.active[testKey().String()], "active record persisted")
	assert.Nil(t, f.store.scheduled[testKey().String()])
}

func TestLimitProposalBelowMarketIsScheduled(t *testing.T) {
	f := newFixture(t, testConfig())
	p := marketLongProposal()
	p.EntryPrice = 41000
	p.TakeProfit = 41800
	p.StopLoss = 40500
	f.producer.proposal = p

	res, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickIdle, res.Status, "scheduling reports as idle until activation")

	sched := f.store.scheduled[testKey().String()]
	require.NotNil(t, sched, "scheduled record persisted")
	assert.True(t, sched.PendingEntry)
	assert.Equal(t, 0, f.risk.registers, "risk slot not taken before activation")

	// Price touches the entry two ticks later: next tick opens.
	f.producer.proposal = nil
	f.data.price = 40990
	activationTime := baseTime.Add(5 * time.Minute)
	res, err = f.eng.Tick(context.Background(), activationTime, false)
	require.NoError(t, err)
	require.Equal(t, domain.TickOpened, res.Status)
	assert.Equal(t, activationTime, res.Signal.ActivatedAt, "activation time is the crossing tick, not proposal time")
	assert.Equal(t, baseTime, res.Signal.CreatedAt)
	assert.Equal(t, 1, f.risk.registers)
	assert.Nil(t, f.store.scheduled[testKey().String()], "scheduled record cleared on activation")
	assert.NotNil(t, f.store.active[testKey().String()])
}

func TestLimitProposalAlreadyReachedOpensDirectly(t *testing.T) {
	f := newFixture(t, testConfig())
	p := marketLongProposal()
	p.EntryPrice = 42200 // long limit above the market: already reached
	f.producer.proposal = p

	res, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickOpened, res.Status)
	assert.False(t, res.Signal.PendingEntry, "never transiently scheduled")
	assert.Nil(t, f.store.scheduled[testKey().String()])
}

func TestScheduledSignalExpires(t *testing.T) {
	cfg := testConfig()
	cfg.ScheduleTimeoutMinutes = 30
	f := newFixture(t, cfg)
	p := marketLongProposal()
	p.EntryPrice = 41000
	p.TakeProfit = 41800
	p.StopLoss = 40500
	f.producer.proposal = p

	_, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)
	require.NotNil(t, f.store.scheduled[testKey().String()])

	f.producer.proposal = nil
	res, err := f.eng.Tick(context.Background(), baseTime.Add(31*time.Minute), false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickIdle, res.Status)
	assert.Equal(t, domain.CloseReasonCancelled, res.CloseReason, "expiry reports the cancellation reason")
	assert.Nil(t, f.store.scheduled[testKey().String()], "expired record cleared")
	assert.Equal(t, 0, f.risk.registers)
}

func TestActiveClosesOnTakeProfit(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.proposal = marketLongProposal()

	_, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)

	f.data.price = 42700 // above the 42600 take-profit
	res, err := f.eng.Tick(context.Background(), baseTime.Add(time.Minute), false)
	require.NoError(t, err)
	require.Equal(t, domain.TickClosed, res.Status)
	assert.Equal(t, domain.CloseReasonTakeProfit, res.CloseReason)
	assert.Equal(t, 42600.0, res.Price, "closes at the take-profit level")
	assert.Greater(t, res.PNLPercent, 0.0)
	assert.Equal(t, 1, f.risk.releases)
	assert.Nil(t, f.store.active[testKey().String()], "durable record discarded on close")
}

func TestActiveClosesOnStopLoss(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.proposal = marketLongProposal()

	_, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)

	f.data.price = 41400
	res, err := f.eng.Tick(context.Background(), baseTime.Add(time.Minute), false)
	require.NoError(t, err)
	require.Equal(t, domain.TickClosed, res.Status)
	assert.Equal(t, domain.CloseReasonStopLoss, res.CloseReason)
	assert.Less(t, res.PNLPercent, 0.0)
}

func TestActiveClosesOnLifetimeTimeout(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.proposal = marketLongProposal() // 120 minute lifetime

	_, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)

	f.data.price = 42100 // between the levels
	res, err := f.eng.Tick(context.Background(), baseTime.Add(121*time.Minute), false)
	require.NoError(t, err)
	require.Equal(t, domain.TickClosed, res.Status)
	assert.Equal(t, domain.CloseReasonTimeout, res.CloseReason)
	assert.Equal(t, 42100.0, res.Price, "timeout closes at the current price")
}

func TestActiveReportsProgress(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.proposal = marketLongProposal()

	_, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)

	f.data.price = 42300
	res, err := f.eng.Tick(context.Background(), baseTime.Add(time.Minute), false)
	require.NoError(t, err)
	require.Equal(t, domain.TickActive, res.Status)
	assert.InDelta(t, (42600.0-42300.0)/42300.0*100.0, res.PercentToTP, 1e-9)
	assert.InDelta(t, (42300.0-41500.0)/42300.0*100.0, res.PercentToSL, 1e-9)
}

func TestShortSignalLifecycle(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.proposal = &domain.SignalProposal{
		Side:            domain.Short,
		TakeProfit:      41400,
		StopLoss:        42500,
		LifetimeMinutes: 120,
	}

	res, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)
	require.Equal(t, domain.TickOpened, res.Status)

	f.data.price = 41300 // below the short take-profit
	res, err = f.eng.Tick(context.Background(), baseTime.Add(time.Minute), false)
	require.NoError(t, err)
	require.Equal(t, domain.TickClosed, res.Status)
	assert.Equal(t, domain.CloseReasonTakeProfit, res.CloseReason)
	assert.Greater(t, res.PNLPercent, 0.0)
}

func TestValidationRejectionYieldsIdle(t *testing.T) {
	f := newFixture(t, testConfig())
	p := marketLongProposal()
	p.TakeProfit = 42010 // micro-profit below the minimum distance
	f.producer.proposal = p

	res, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickIdle, res.Status)
	assert.Nil(t, f.store.active[testKey().String()])
	assert.Nil(t, f.store.scheduled[testKey().String()])
	assert.Equal(t, 0, f.risk.registers)

	select {
	case surfaced := <-f.eng.Errors():
		assert.Contains(t, surfaced.Error(), "take profit distance")
	default:
		t.Fatal("expected the rejection on the error channel")
	}
}

func TestRiskRejectionYieldsIdle(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.proposal = marketLongProposal()
	f.risk.checkErr = fmt.Errorf("%w: portfolio slots exhausted", ports.ErrRiskRejected)

	res, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickIdle, res.Status)
	assert.Equal(t, 0, f.risk.registers)
}

func TestProducerErrorAndPanicAreContained(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.err = errors.New("exchange hiccup")

	res, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickIdle, res.Status)

	f.producer.err = nil
	f.producer.panics = true
	res, err = f.eng.Tick(context.Background(), baseTime.Add(time.Second), false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickIdle, res.Status)

	var sawPanic bool
	for {
		select {
		case surfaced := <-f.eng.Errors():
			if errors.Is(surfaced, ports.ErrProducerFailed) {
				sawPanic = true
			}
			continue
		default:
		}
		break
	}
	assert.True(t, sawPanic, "producer panic surfaced as an error")
}

func TestProposalThrottling(t *testing.T) {
	cfg := testConfig()
	cfg.ProposalInterval = time.Minute
	f := newFixture(t, cfg)

	_, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)
	_, err = f.eng.Tick(context.Background(), baseTime.Add(10*time.Second), false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.producer.calls, "producer consulted at most once per interval")

	_, err = f.eng.Tick(context.Background(), baseTime.Add(61*time.Second), false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.producer.calls)
}

func TestPersistenceFailureAbortsOpen(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.proposal = marketLongProposal()
	f.store.writeErr = errors.New("disk full")

	_, err := f.eng.Tick(context.Background(), baseTime, false)
	require.Error(t, err, "an unpersisted open is not crash-safe and must abort")
	assert.Equal(t, 1, f.risk.registers)
	assert.Equal(t, 1, f.risk.releases, "risk slot released on abort")

	// The engine holds no signal afterwards.
	f.store.writeErr = nil
	f.producer.proposal = nil
	res, err := f.eng.Tick(context.Background(), baseTime.Add(time.Second), false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickIdle, res.Status)
}

func TestFetchFailureWithActiveSignalIsFatalForTick(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.proposal = marketLongProposal()

	_, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)

	f.data.priceErr = errors.New("exchange down")
	_, err = f.eng.Tick(context.Background(), baseTime.Add(time.Minute), false)
	require.Error(t, err, "blind-spot monitoring must be surfaced, never skipped")
	assert.ErrorIs(t, err, ports.ErrRetriesExhausted)
}

func TestFetchFailureWhileIdleYieldsIdle(t *testing.T) {
	f := newFixture(t, testConfig())
	f.data.priceErr = errors.New("exchange down")

	res, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickIdle, res.Status)
}

func TestPriceAnomalyHoldsPosition(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.proposal = marketLongProposal()

	_, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)

	// A 2x spike against a 1.5 factor: hold on the last trusted price.
	f.data.price = 84000
	res, err := f.eng.Tick(context.Background(), baseTime.Add(time.Minute), false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickActive, res.Status, "spike must not trigger the take-profit")
	assert.Equal(t, 42000.0, res.Price)
}

func TestStopSuppressesProposalsButLetsActiveClose(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.proposal = marketLongProposal()

	_, err := f.eng.Tick(context.Background(), baseTime, false)
	require.NoError(t, err)

	f.eng.Stop()

	// The active signal still closes naturally.
	f.data.price = 42700
	res, err := f.eng.Tick(context.Background(), baseTime.Add(time.Minute), false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickClosed, res.Status)

	// No new proposal afterwards.
	calls := f.producer.calls
	res, err = f.eng.Tick(context.Background(), baseTime.Add(2*time.Minute), false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickIdle, res.Status)
	assert.Equal(t, calls, f.producer.calls)
}

func TestCrashRecoveryResumesActiveSignal(t *testing.T) {
	store := newMockStore()
	persisted := &domain.Signal{
		ID:                 "sig-recovered",
		Symbol:             "ETHUSDT",
		StrategyID:         "default",
		ExchangeID:         "binance-futures",
		Side:               domain.Long,
		EntryPrice:         42000,
		TakeProfit:         42600,
		StopLoss:           41500,
		OriginalTakeProfit: 42600,
		OriginalStopLoss:   41500,
		LifetimeMinutes:    120,
		CreatedAt:          baseTime,
		ActivatedAt:        baseTime,
	}
	require.NoError(t, store.WriteActive(context.Background(), testKey(), persisted))

	// A fresh engine against the same store, simulating a process restart.
	f := &fixture{
		data:     &mockDataSource{price: 42100},
		store:    store,
		risk:     &mockRisk{},
		producer: &mockProducer{},
		logger:   &mockLogger{},
	}
	eng, err := New(testConfig(), testKey(), Deps{
		Logger: f.logger, Data: f.data, Store: f.store, Risk: f.risk, Producer: f.producer,
	})
	require.NoError(t, err)

	require.NoError(t, eng.Recover(context.Background()))
	res, err := eng.Tick(context.Background(), baseTime.Add(time.Minute), false)
	require.NoError(t, err)
	require.Equal(t, domain.TickActive, res.Status, "recovered signal is monitored, not regenerated")
	assert.Equal(t, "sig-recovered", res.Signal.ID)
	assert.Equal(t, 0, f.producer.calls, "no new proposal while a recovered signal is live")
	assert.Equal(t, 1, f.risk.registers)
}

func TestRecoveryIsIdempotent(t *testing.T) {
	store := newMockStore()
	persisted := &domain.Signal{
		ID: "sig-1", Symbol: "ETHUSDT", StrategyID: "default", ExchangeID: "binance-futures",
		Side: domain.Long, EntryPrice: 42000, TakeProfit: 42600, StopLoss: 41500,
		OriginalTakeProfit: 42600, OriginalStopLoss: 41500,
		LifetimeMinutes: 120, CreatedAt: baseTime, ActivatedAt: baseTime,
	}
	require.NoError(t, store.WriteActive(context.Background(), testKey(), persisted))

	risk := &mockRisk{}
	eng, err := New(testConfig(), testKey(), Deps{
		Logger: &mockLogger{}, Data: &mockDataSource{price: 42100}, Store: store,
		Risk: risk, Producer: &mockProducer{},
	})
	require.NoError(t, err)

	require.NoError(t, eng.Recover(context.Background()))
	require.NoError(t, eng.Recover(context.Background()), "double start must be harmless")
	assert.Equal(t, 1, risk.registers, "no duplicate risk registration")

	// Recovery racing a stop command still recovers; stop only gates new
	// proposals.
	eng.Stop()
	res, err := eng.Tick(context.Background(), baseTime.Add(time.Minute), false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickActive, res.Status)
}

func TestRecoveryOfScheduledSignal(t *testing.T) {
	store := newMockStore()
	persisted := &domain.Signal{
		ID: "sig-sched", Symbol: "ETHUSDT", StrategyID: "default", ExchangeID: "binance-futures",
		Side: domain.Long, EntryPrice: 41000, TakeProfit: 41800, StopLoss: 40500,
		OriginalTakeProfit: 41800, OriginalStopLoss: 40500,
		LifetimeMinutes: 120, CreatedAt: baseTime, PendingEntry: true,
	}
	require.NoError(t, store.WriteScheduled(context.Background(), testKey(), persisted))

	risk := &mockRisk{}
	eng, err := New(testConfig(), testKey(), Deps{
		Logger: &mockLogger{}, Data: &mockDataSource{price: 40900}, Store: store,
		Risk: risk, Producer: &mockProducer{},
	})
	require.NoError(t, err)
	require.NoError(t, eng.Recover(context.Background()))

	// Price is already below the limit entry: the first tick activates it.
	res, err := eng.Tick(context.Background(), baseTime.Add(time.Minute), false)
	require.NoError(t, err)
	assert.Equal(t, domain.TickOpened, res.Status)
	assert.Equal(t, 1, risk.registers)
}
