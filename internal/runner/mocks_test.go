package runner

import (
	"context"
	"sync"
	"time"

	"signal_trader/internal/models"

	"github.com/stretchr/testify/mock"
)

type brokerMock struct {
	mock.Mock
}

func (m *brokerMock) OpenPositions(ctx context.Context, instrument string) ([]models.Position, error) {
	args := m.Called(ctx, instrument)
	positions, _ := args.Get(0).([]models.Position)
	return positions, args.Error(1)
}

func (m *brokerMock) ClosePosition(ctx context.Context, instrument string) (models.CloseResult, error) {
	args := m.Called(ctx, instrument)
	res, _ := args.Get(0).(models.CloseResult)
	return res, args.Error(1)
}

func (m *brokerMock) CurrentPrice(ctx context.Context, instrument string) (float64, error) {
	args := m.Called(ctx, instrument)
	return args.Get(0).(float64), args.Error(1)
}

func (m *brokerMock) Equity(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *brokerMock) PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(models.OrderResult)
	return res, args.Error(1)
}

type predictorMock struct {
	mock.Mock
}

func (m *predictorMock) Predict(ctx context.Context) (models.Signal, error) {
	args := m.Called(ctx)
	sig, _ := args.Get(0).(models.Signal)
	return sig, args.Error(1)
}

func (m *predictorMock) Retrain(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *predictorMock) Backtest(ctx context.Context) (models.BacktestResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(models.BacktestResult)
	return res, args.Error(1)
}

func (m *predictorMock) ModelReady(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type memLedger struct {
	mu     sync.Mutex
	trades []models.TradeRecord
	skips  []models.SkipRecord
	closes []models.CloseRecord
	err    error
}

func (l *memLedger) AppendTrade(_ context.Context, rec models.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.trades = append(l.trades, rec)
	return nil
}

func (l *memLedger) AppendSkip(_ context.Context, rec models.SkipRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.skips = append(l.skips, rec)
	return nil
}

func (l *memLedger) AppendClose(_ context.Context, rec models.CloseRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes = append(l.closes, rec)
	return nil
}

func (l *memLedger) Summary(context.Context) (models.LedgerSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return models.Summarize(len(l.trades), l.closes), nil
}

func (l *memLedger) RecentTrades(_ context.Context, n int) ([]models.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.trades) <= n {
		return append([]models.TradeRecord(nil), l.trades...), nil
	}
	return append([]models.TradeRecord(nil), l.trades[len(l.trades)-n:]...), nil
}

type chatRecorder struct {
	mu   sync.Mutex
	msgs []string
}

func (c *chatRecorder) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
	return nil
}

func (c *chatRecorder) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) == 0 {
		return ""
	}
	return c.msgs[len(c.msgs)-1]
}

type observerFunc func(models.Outcome)

func (f observerFunc) Observe(out models.Outcome) { f(out) }

type fixedHours bool

func (h fixedHours) IsOpen(time.Time) bool { return bool(h) }
