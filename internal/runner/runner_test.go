package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"signal_trader/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testInstrument = "EUR_USD"

var cycleTime = time.Date(2026, 3, 10, 12, 15, 0, 0, time.UTC)

type engineFixture struct {
	engine    *Engine
	broker    *brokerMock
	predictor *predictorMock
	ledger    *memLedger
	chat      *chatRecorder
	state     *models.EngineState
	observed  []models.Outcome
}

func newEngineFixture(t *testing.T, hours MarketHours) *engineFixture {
	t.Helper()
	f := &engineFixture{
		broker:    &brokerMock{},
		predictor: &predictorMock{},
		ledger:    &memLedger{},
		chat:      &chatRecorder{},
		state:     models.NewEngineState(),
	}
	params := Params{
		Instrument:     testInstrument,
		Threshold:      0.6,
		RiskFraction:   0.15,
		Leverage:       20,
		TakeProfitPips: 15,
		StopLossPips:   10,
		PipSize:        0.0001,
		CallTimeout:    time.Second,
	}
	f.engine = NewEngine(params, f.broker, f.predictor, f.chat, f.ledger, hours, f.state,
		observerFunc(func(out models.Outcome) { f.observed = append(f.observed, out) }))
	f.engine.now = func() time.Time { return cycleTime }
	return f
}

func signal(dir models.Direction, conf float64) models.Signal {
	return models.Signal{Direction: dir, Confidence: conf, Indicators: map[string]float64{"rsi": 61.2}}
}

func TestRunCyclePausedSkipsBeforePredict(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	f.state.SetPaused(true)

	out, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, models.OutcomeSkipped, out.Status)
	require.Equal(t, models.ReasonPaused, out.Reason)
	require.False(t, out.HasSignal)
	f.predictor.AssertNotCalled(t, "Predict", mock.Anything)
	f.broker.AssertNotCalled(t, "OpenPositions", mock.Anything, mock.Anything)

	require.Len(t, f.ledger.skips, 1)
	require.Nil(t, f.ledger.skips[0].Direction)
	require.Nil(t, f.ledger.skips[0].Confidence)
	require.NotEmpty(t, f.ledger.skips[0].ID)
	require.Equal(t, "📭 Trade skipped: paused", f.chat.last())
}

func TestRunCycleMarketClosed(t *testing.T) {
	f := newEngineFixture(t, fixedHours(false))

	out, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.ReasonMarketClosed, out.Reason)
	f.predictor.AssertNotCalled(t, "Predict", mock.Anything)
}

func TestRunCycleLowConfidenceMakesNoBrokerCalls(t *testing.T) {
	for _, conf := range []float64{0, 0.3, 0.5999} {
		f := newEngineFixture(t, fixedHours(true))
		f.predictor.On("Predict", mock.Anything).Return(signal(models.DirectionBuy, conf), nil)

		out, err := f.engine.RunCycle(context.Background())
		require.NoError(t, err)

		require.Equal(t, models.OutcomeSkipped, out.Status)
		require.Equal(t, models.ReasonLowConfidence, out.Reason)
		require.True(t, out.HasSignal)
		require.InDelta(t, conf, out.Confidence, 1e-12)
		f.broker.AssertNotCalled(t, "ClosePosition", mock.Anything, mock.Anything)
		f.broker.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)

		require.Empty(t, f.ledger.trades)
		require.Len(t, f.ledger.skips, 1)
		require.NotNil(t, f.ledger.skips[0].Direction)
		require.Equal(t, models.DirectionBuy, *f.ledger.skips[0].Direction)

		last, ok := f.state.LastSignal()
		require.True(t, ok)
		require.Equal(t, cycleTime, last.At)
	}
}

func TestRunCycleOppositeClosesBeforePlacing(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	var calls []string

	f.predictor.On("Predict", mock.Anything).Return(signal(models.DirectionBuy, 0.8), nil)
	f.broker.On("OpenPositions", mock.Anything, testInstrument).
		Return([]models.Position{{Instrument: testInstrument, SignedUnits: -500}}, nil)
	f.broker.On("ClosePosition", mock.Anything, testInstrument).
		Run(func(mock.Arguments) { calls = append(calls, "close") }).
		Return(models.CloseResult{Instrument: testInstrument, ClosedUnits: 500, RealizedPL: 12.5}, nil)
	f.broker.On("CurrentPrice", mock.Anything, testInstrument).Return(1.25, nil)
	f.broker.On("Equity", mock.Anything).Return(10000.0, nil)
	f.broker.On("PlaceOrder", mock.Anything, models.OrderRequest{
		Instrument:      testInstrument,
		SignedUnits:     24000,
		TakeProfitPrice: 1.2515,
		StopLossPrice:   1.249,
	}).
		Run(func(mock.Arguments) { calls = append(calls, "place") }).
		Return(models.OrderResult{OrderID: "42", FillPrice: 1.25002, SignedUnits: 24000}, nil)

	out, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)
	f.broker.AssertExpectations(t)

	require.Equal(t, []string{"close", "place"}, calls)
	require.True(t, out.IsExecuted())
	require.EqualValues(t, 24000, out.SignedUnits)
	require.Equal(t, "42", out.OrderID)
	require.Equal(t, 1.25002, out.Price)

	require.Len(t, f.ledger.closes, 1)
	require.Equal(t, 12.5, f.ledger.closes[0].RealizedPL)
	require.Len(t, f.ledger.trades, 1)
	require.Equal(t, models.DirectionBuy, f.ledger.trades[0].Direction)
	require.Equal(t, 1.2515, f.ledger.trades[0].TakeProfit)

	require.Len(t, f.observed, 1)
	assert.Contains(t, f.chat.last(), "Trade executed")
	assert.Contains(t, f.chat.last(), "24000")
}

func TestRunCycleSameDirectionSkips(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	f.predictor.On("Predict", mock.Anything).Return(signal(models.DirectionSell, 0.8), nil)
	f.broker.On("OpenPositions", mock.Anything, testInstrument).
		Return([]models.Position{{Instrument: testInstrument, SignedUnits: -300}}, nil)

	out, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, models.ReasonAlreadyHolding, out.Reason)
	f.broker.AssertNotCalled(t, "ClosePosition", mock.Anything, mock.Anything)
	f.broker.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
	require.Empty(t, f.ledger.closes)
}

func TestRunCycleSellOnFlatAccount(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	f.predictor.On("Predict", mock.Anything).Return(signal(models.DirectionSell, 0.7), nil)
	f.broker.On("OpenPositions", mock.Anything, testInstrument).
		Return([]models.Position{{Instrument: "USD_JPY", SignedUnits: 100}}, nil)
	f.broker.On("CurrentPrice", mock.Anything, testInstrument).Return(1.1, nil)
	f.broker.On("Equity", mock.Anything).Return(1000.0, nil)
	f.broker.On("PlaceOrder", mock.Anything, models.OrderRequest{
		Instrument:      testInstrument,
		SignedUnits:     -2727,
		TakeProfitPrice: 1.0985,
		StopLossPrice:   1.101,
	}).Return(models.OrderResult{OrderID: "7"}, nil)

	out, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)
	f.broker.AssertExpectations(t)

	require.True(t, out.IsExecuted())
	require.EqualValues(t, -2727, out.SignedUnits)
	require.Equal(t, 1.1, out.Price)
	f.broker.AssertNotCalled(t, "ClosePosition", mock.Anything, mock.Anything)
}

func TestRunCycleZeroSizeSkips(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	f.predictor.On("Predict", mock.Anything).Return(signal(models.DirectionBuy, 0.9), nil)
	f.broker.On("OpenPositions", mock.Anything, testInstrument).Return([]models.Position{}, nil)
	f.broker.On("CurrentPrice", mock.Anything, testInstrument).Return(1.25, nil)
	f.broker.On("Equity", mock.Anything).Return(0.01, nil)

	out, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.ReasonZeroSize, out.Reason)
	f.broker.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestRunCycleMalformedSignalIsFatal(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	f.predictor.On("Predict", mock.Anything).Return(models.Signal{Direction: 5, Confidence: 0.9}, nil)

	_, err := f.engine.RunCycle(context.Background())
	require.Error(t, err)
	require.True(t, models.IsFatal(err))
	require.Empty(t, f.ledger.skips)
	require.Empty(t, f.ledger.trades)
	f.broker.AssertNotCalled(t, "OpenPositions", mock.Anything, mock.Anything)
}

func TestRunCycleBrokerErrorIsTransient(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	f.predictor.On("Predict", mock.Anything).Return(signal(models.DirectionBuy, 0.9), nil)
	f.broker.On("OpenPositions", mock.Anything, testInstrument).Return(nil, errors.New("502 bad gateway"))

	_, err := f.engine.RunCycle(context.Background())
	require.Error(t, err)
	require.Equal(t, models.ErrTransient, models.KindOf(err))
	require.Contains(t, err.Error(), "502 bad gateway")
	require.Empty(t, f.ledger.skips)
}

func TestRunCycleNonPositiveEquityIsFatal(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	f.predictor.On("Predict", mock.Anything).Return(signal(models.DirectionBuy, 0.9), nil)
	f.broker.On("OpenPositions", mock.Anything, testInstrument).Return([]models.Position{}, nil)
	f.broker.On("CurrentPrice", mock.Anything, testInstrument).Return(1.25, nil)
	f.broker.On("Equity", mock.Anything).Return(0.0, nil)

	_, err := f.engine.RunCycle(context.Background())
	require.True(t, models.IsFatal(err))
	f.broker.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestRunCycleCallTimeout(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	f.engine.params.CallTimeout = 20 * time.Millisecond
	f.predictor.On("Predict", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(models.Signal{}, context.DeadlineExceeded)

	start := time.Now()
	_, err := f.engine.RunCycle(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, models.ErrTransient, models.KindOf(err))
	require.Less(t, time.Since(start), time.Second)
}

func TestRunCycleLedgerFailureStillReportsOutcome(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	f.ledger.err = errors.New("disk full")
	f.state.SetPaused(true)

	out, err := f.engine.RunCycle(context.Background())
	require.Error(t, err)
	require.Equal(t, models.ErrTransient, models.KindOf(err))
	require.Equal(t, models.ReasonPaused, out.Reason)
	require.Equal(t, "📭 Trade skipped: paused", f.chat.last())
}

func TestPredictionTextSortsIndicators(t *testing.T) {
	txt := PredictionText(testInstrument, models.Signal{
		Direction:  models.DirectionBuy,
		Confidence: 0.725,
		Indicators: map[string]float64{"rsi": 55, "ema": 1.1},
	})
	require.Contains(t, txt, "🟢 Buy")
	require.Contains(t, txt, "72.5%")
	require.Less(t, strings.Index(txt, "ema"), strings.Index(txt, "rsi"))
}
