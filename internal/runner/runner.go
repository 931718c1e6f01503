package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"signal_trader/internal/models"
	"signal_trader/pkg/logger"
	"signal_trader/pkg/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Broker: то, что движку нужно от брокера. Все вызовы могут быть медленными.
type Broker interface {
	OpenPositions(ctx context.Context, instrument string) ([]models.Position, error)
	ClosePosition(ctx context.Context, instrument string) (models.CloseResult, error)
	CurrentPrice(ctx context.Context, instrument string) (float64, error)
	Equity(ctx context.Context) (float64, error)
	PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error)
}

type Predictor interface {
	Predict(ctx context.Context) (models.Signal, error)
	Retrain(ctx context.Context) error
	ModelReady(ctx context.Context) (bool, error)
	Backtest(ctx context.Context) (models.BacktestResult, error)
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

type Ledger interface {
	AppendTrade(ctx context.Context, rec models.TradeRecord) error
	AppendSkip(ctx context.Context, rec models.SkipRecord) error
	AppendClose(ctx context.Context, rec models.CloseRecord) error
	Summary(ctx context.Context) (models.LedgerSummary, error)
	RecentTrades(ctx context.Context, n int) ([]models.TradeRecord, error)
}

type MarketHours interface {
	IsOpen(t time.Time) bool
}

// OutcomeObserver получает каждый итог цикла (метрики, websocket).
type OutcomeObserver interface {
	Observe(out models.Outcome)
}

// Params: торговые настройки одного инструмента.
type Params struct {
	Instrument     string
	Threshold      float64
	RiskFraction   float64
	Leverage       float64
	TakeProfitPips float64
	StopLossPips   float64
	PipSize        float64
	CallTimeout    time.Duration
}

// Engine выполняет один торговый цикл (прогноз, сверка с позициями, сайзинг, ордер).
// Состояние позиций не кэшируется, каждый цикл перечитывает его у брокера.
type Engine struct {
	params    Params
	broker    Broker
	predictor Predictor
	notifier  Notifier
	ledger    Ledger
	hours     MarketHours
	state     *models.EngineState
	observers []OutcomeObserver

	now func() time.Time
	// циклы не пересекаются
	mu sync.Mutex
}

func NewEngine(
	params Params,
	broker Broker,
	predictor Predictor,
	notifier Notifier,
	ledger Ledger,
	hours MarketHours,
	state *models.EngineState,
	observers ...OutcomeObserver,
) *Engine {
	if params.CallTimeout <= 0 {
		params.CallTimeout = 20 * time.Second
	}
	return &Engine{
		params:    params,
		broker:    broker,
		predictor: predictor,
		notifier:  notifier,
		ledger:    ledger,
		hours:     hours,
		state:     state,
		observers: observers,
		now:       time.Now,
	}
}

// RunCycle выдаёт ровно один Outcome или ошибку.
// Пропуск возвращается как Outcome, ошибка как Transient/Fatal для JobRunner.
// Если цикл дошёл до итога, но запись в журнал не удалась, возвращаются оба.
func (e *Engine) RunCycle(ctx context.Context) (models.Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	span, ctx := tracing.StartSpan(ctx, "cycle")
	span.SetTag("instrument", e.params.Instrument)

	out, err := e.decide(ctx)
	if err != nil {
		tracing.Finish(span, err)
		logger.With(
			zap.String("instrument", e.params.Instrument),
			zap.String("kind", models.KindOf(err).String()),
			zap.Error(err),
		).Error("[CYCLE] aborted")
		return models.Outcome{}, err
	}

	err = e.record(ctx, out)
	tracing.Finish(span, err)
	return out, err
}

func (e *Engine) decide(ctx context.Context) (models.Outcome, error) {
	inst := e.params.Instrument
	now := e.now()

	if e.state.Paused() {
		return models.Skipped(inst, models.ReasonPaused, now), nil
	}
	if e.hours != nil && !e.hours.IsOpen(now) {
		return models.Skipped(inst, models.ReasonMarketClosed, now), nil
	}

	sig, err := e.predict(ctx, now)
	if err != nil {
		return models.Outcome{}, err
	}
	e.state.SetLastSignal(sig)
	e.notify(ctx, PredictionText(inst, sig))

	if sig.Confidence < e.params.Threshold {
		return models.SkippedWithSignal(inst, models.ReasonLowConfidence, sig, now), nil
	}

	var positions []models.Position
	err = e.call(ctx, "open positions", func(ctx context.Context) (err error) {
		positions, err = e.broker.OpenPositions(ctx, inst)
		return err
	})
	if err != nil {
		return models.Outcome{}, err
	}

	switch rel := Classify(sig.Direction, positions, inst); rel {
	case RelationSame:
		return models.SkippedWithSignal(inst, models.ReasonAlreadyHolding, sig, now), nil
	case RelationOpposite:
		if err := e.closeOpposite(ctx, now); err != nil {
			return models.Outcome{}, err
		}
	}

	var price, equity float64
	err = e.call(ctx, "current price", func(ctx context.Context) (err error) {
		price, err = e.broker.CurrentPrice(ctx, inst)
		return err
	})
	if err != nil {
		return models.Outcome{}, err
	}
	err = e.call(ctx, "equity", func(ctx context.Context) (err error) {
		equity, err = e.broker.Equity(ctx)
		return err
	})
	if err != nil {
		return models.Outcome{}, err
	}

	units, err := Size(price, equity, e.params.RiskFraction, e.params.Leverage)
	if err != nil {
		return models.Outcome{}, err
	}
	if units == 0 {
		return models.SkippedWithSignal(inst, models.ReasonZeroSize, sig, now), nil
	}

	tp, err := calcTradeParams(sig.Direction, price, e.params.TakeProfitPips, e.params.StopLossPips, e.params.PipSize)
	if err != nil {
		return models.Outcome{}, err
	}

	req := models.OrderRequest{
		Instrument:      inst,
		SignedUnits:     units * sig.Direction.Sign(),
		TakeProfitPrice: tp.TakeProfit,
		StopLossPrice:   tp.StopLoss,
	}
	var res models.OrderResult
	err = e.call(ctx, "place order", func(ctx context.Context) (err error) {
		res, err = e.broker.PlaceOrder(ctx, req)
		return err
	})
	if err != nil {
		return models.Outcome{}, err
	}

	logger.With(
		zap.String("instrument", inst),
		zap.String("direction", sig.Direction.String()),
		zap.Int64("units", req.SignedUnits),
		zap.String("order_id", res.OrderID),
	).Info("[BROKER] order placed")

	out := models.Executed(inst, sig, req.SignedUnits, now)
	out.Price = price
	if res.FillPrice > 0 {
		out.Price = res.FillPrice
	}
	out.TakeProfit = tp.TakeProfit
	out.StopLoss = tp.StopLoss
	out.OrderID = res.OrderID
	return out, nil
}

func (e *Engine) predict(ctx context.Context, now time.Time) (models.Signal, error) {
	var sig models.Signal
	err := e.call(ctx, "predict", func(ctx context.Context) (err error) {
		sig, err = e.predictor.Predict(ctx)
		return err
	})
	if err != nil {
		return models.Signal{}, err
	}
	if err := sig.Validate(); err != nil {
		return models.Signal{}, models.Fatal("predict", err)
	}
	if sig.At.IsZero() {
		sig.At = now
	}
	return sig, nil
}

// closeOpposite закрывает всё по инструменту перед разворотом.
// Закрытие и новый вход не атомарны: при падении между ними остаёмся без позиции.
func (e *Engine) closeOpposite(ctx context.Context, now time.Time) error {
	inst := e.params.Instrument
	var res models.CloseResult
	err := e.call(ctx, "close position", func(ctx context.Context) (err error) {
		res, err = e.broker.ClosePosition(ctx, inst)
		return err
	})
	if err != nil {
		return err
	}

	logger.With(
		zap.String("instrument", inst),
		zap.Int64("units", res.ClosedUnits),
		zap.Float64("realized_pl", res.RealizedPL),
	).Info("[BROKER] opposite position closed")

	rec := models.CloseRecord{
		ID:          uuid.NewString(),
		Timestamp:   now,
		Instrument:  inst,
		ClosedUnits: res.ClosedUnits,
		RealizedPL:  res.RealizedPL,
	}
	if err := e.withTimeout(ctx, func(ctx context.Context) error { return e.ledger.AppendClose(ctx, rec) }); err != nil {
		logger.Error("[CYCLE] close of %s not recorded: %v", inst, err)
	}
	e.notify(ctx, fmt.Sprintf("🔁 Closed %s position (%d units), realized P/L %.2f", inst, res.ClosedUnits, res.RealizedPL))
	return nil
}

// record: журнал, наблюдатели, уведомление. Ошибка журнала возвращается как Transient.
func (e *Engine) record(ctx context.Context, out models.Outcome) error {
	log := logger.With(
		zap.String("instrument", out.Instrument),
		zap.String("status", string(out.Status)),
		zap.String("reason", out.Reason),
		zap.Int64("units", out.SignedUnits),
	)
	if out.HasSignal {
		log = log.With(zap.String("direction", out.Direction.String()), zap.Float64("confidence", out.Confidence))
	}
	log.Info("[CYCLE] outcome")

	for _, o := range e.observers {
		o.Observe(out)
	}

	var err error
	if out.IsExecuted() {
		rec := models.TradeRecord{
			ID:          uuid.NewString(),
			Timestamp:   out.At,
			Instrument:  out.Instrument,
			Direction:   out.Direction,
			Confidence:  out.Confidence,
			SignedUnits: out.SignedUnits,
			Price:       out.Price,
			TakeProfit:  out.TakeProfit,
			StopLoss:    out.StopLoss,
			OrderID:     out.OrderID,
			Indicators:  out.Indicators,
		}
		err = e.withTimeout(ctx, func(ctx context.Context) error { return e.ledger.AppendTrade(ctx, rec) })
	} else {
		rec := models.SkipRecord{
			ID:         uuid.NewString(),
			Timestamp:  out.At,
			Instrument: out.Instrument,
			Reason:     out.Reason,
			Indicators: out.Indicators,
		}
		if out.HasSignal {
			dir, conf := out.Direction, out.Confidence
			rec.Direction, rec.Confidence = &dir, &conf
		}
		err = e.withTimeout(ctx, func(ctx context.Context) error { return e.ledger.AppendSkip(ctx, rec) })
	}

	e.notify(ctx, OutcomeText(out))

	if err != nil {
		return models.Transient("ledger", err)
	}
	return nil
}

// call: внешний вызов с таймаутом. Уже типизированные ошибки не переклассифицируются.
func (e *Engine) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := e.withTimeout(ctx, fn)
	if err == nil {
		return nil
	}
	var ce *models.CycleError
	if errors.As(err, &ce) {
		return err
	}
	return models.Transient(op, err)
}

func (e *Engine) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.params.CallTimeout)
	defer cancel()
	return fn(ctx)
}

// notify не валит цикл: недоставленное сообщение только логируется.
func (e *Engine) notify(ctx context.Context, text string) {
	if e.notifier == nil {
		return
	}
	if err := e.withTimeout(ctx, func(ctx context.Context) error { return e.notifier.Send(ctx, text) }); err != nil {
		logger.Warn("[TG] notification not delivered: %v", err)
	}
}

func PredictionText(instrument string, sig models.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 Prediction for %s: %s (confidence %.1f%%)", instrument, sig.Direction.Emoji(), sig.Confidence*100)
	if len(sig.Indicators) > 0 {
		keys := make([]string, 0, len(sig.Indicators))
		for k := range sig.Indicators {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n• %s: %.5g", k, sig.Indicators[k])
		}
	}
	return b.String()
}

func OutcomeText(out models.Outcome) string {
	if !out.IsExecuted() {
		return "📭 Trade skipped: " + out.Reason
	}
	return fmt.Sprintf(
		"✅ Trade executed\nInstrument: %s\nDirection: %s\nConfidence: %.1f%%\nUnits: %d\nPrice: %.5f\nTake profit: %.5f\nStop loss: %.5f",
		out.Instrument, out.Direction.Emoji(), out.Confidence*100, out.SignedUnits,
		out.Price, out.TakeProfit, out.StopLoss,
	)
}
