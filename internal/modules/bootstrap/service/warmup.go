package service

import (
	"context"
	"fmt"

	oanda "signal_trader/internal/modules/oanda_client/service"
	"signal_trader/internal/notify"
	"signal_trader/pkg/logger"
)

type CandleSource interface {
	Candles(ctx context.Context, instrument, granularity string, count int) ([]oanda.Candle, error)
}

type ModelEnsurer interface {
	EnsureModel(ctx context.Context) (bool, error)
}

type Readiness interface {
	SetReady(v bool)
}

type Options struct {
	Instrument  string
	Granularity string
	// сколько баров запросить для проверки связи с брокером
	Candles int
}

// Warmuper на старте проверяет, что брокер отвечает и модель обучена.
type Warmuper struct {
	opts    Options
	candles CandleSource
	model   ModelEnsurer
	ready   Readiness
	n       notify.Notifier
}

func NewWarmuper(opts Options, candles CandleSource, model ModelEnsurer, ready Readiness, n notify.Notifier) *Warmuper {
	if opts.Candles <= 0 {
		opts.Candles = 50
	}
	return &Warmuper{
		opts:    opts,
		candles: candles,
		model:   model,
		ready:   ready,
		n:       n,
	}
}

func (w *Warmuper) Warmup(ctx context.Context) error {
	w.send(ctx, fmt.Sprintf("🔥 Warmup start: %s %s", w.opts.Instrument, w.opts.Granularity))

	// 1) брокер
	cs, err := w.candles.Candles(ctx, w.opts.Instrument, w.opts.Granularity, w.opts.Candles)
	if err != nil {
		err = fmt.Errorf("warmup candles %s: %w", w.opts.Instrument, err)
		w.send(ctx, "⚠️ Warmup finished with error: "+err.Error())
		return err
	}
	if len(cs) > 0 {
		last := cs[len(cs)-1]
		logger.Info("[BOOT] %d candles, last %s close=%.5f complete=%t",
			len(cs), last.Time.UTC().Format("2006-01-02 15:04"), last.Close, last.Complete)
	}

	// 2) модель
	trained, err := w.model.EnsureModel(ctx)
	if err != nil {
		err = fmt.Errorf("warmup model: %w", err)
		w.send(ctx, "⚠️ Warmup finished with error: "+err.Error())
		return err
	}
	if trained {
		w.send(ctx, "🧠 No trained model found, retrained at startup.")
	}

	w.ready.SetReady(true)
	w.send(ctx, "✅ Warmup finished. Trading cycle is armed.")
	return nil
}

func (w *Warmuper) send(ctx context.Context, text string) {
	if err := w.n.Send(ctx, text); err != nil {
		logger.Warn("[BOOT] notify: %v", err)
	}
}
