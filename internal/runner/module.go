package runner

import (
	"context"
	"time"

	"signal_trader/internal/helper"
	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/notify"
	"signal_trader/internal/scheduler"
	"signal_trader/pkg/logger"
	"signal_trader/pkg/metrics"

	"go.uber.org/fx"
)

// TickObserver узнаёт о каждом тике планировщика (health, метрики).
type TickObserver interface {
	TouchTick(t time.Time)
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			models.NewEngineState,
			NewParams,
			NewMarketHours,
			newRetrainer,
			newEngine,
			newCommands,
			newScheduler,
		),
		fx.Invoke(registerJobs, runScheduler),
	)
}

func NewParams(cfg *config.Config) Params {
	return Params{
		Instrument:     cfg.Trading.Instrument,
		Threshold:      cfg.Trading.ConfidenceThreshold,
		RiskFraction:   cfg.Trading.RiskFraction,
		Leverage:       cfg.Trading.Leverage,
		TakeProfitPips: cfg.Trading.TakeProfitPips,
		StopLossPips:   cfg.Trading.StopLossPips,
		PipSize:        cfg.Trading.PipSize,
		CallTimeout:    cfg.Trading.CallTimeout,
	}
}

func NewMarketHours(cfg *config.Config) MarketHours {
	if !cfg.Trading.MarketHours {
		return helper.AlwaysOpen{}
	}
	return helper.ForexHours{}
}

func newRetrainer(cfg *config.Config, p Predictor, st *models.EngineState) *Retrainer {
	return NewRetrainer(p, st, cfg.Predictor.RetrainTimeout)
}

type engineDeps struct {
	fx.In

	Params    Params
	Broker    Broker
	Predictor Predictor
	Notifier  notify.Notifier
	Ledger    Ledger
	Hours     MarketHours
	State     *models.EngineState
	Metrics   *metrics.Recorder
	Observers []OutcomeObserver `group:"outcome_observers"`
}

func newEngine(d engineDeps) *Engine {
	observers := append([]OutcomeObserver{metricsObserver{d.Metrics}}, d.Observers...)
	return NewEngine(d.Params, d.Broker, d.Predictor, d.Notifier, d.Ledger, d.Hours, d.State, observers...)
}

func newCommands(p Params, st *models.EngineState, b Broker, l Ledger, h MarketHours, r *Retrainer, rec *metrics.Recorder) *Commands {
	return NewCommands(p, st, b, l, h, r, rec)
}

type schedulerDeps struct {
	fx.In

	Config   *config.Config
	Notifier notify.Notifier
	Metrics  *metrics.Recorder
	Ticks    []TickObserver `group:"tick_observers"`
}

func newScheduler(d schedulerDeps) *scheduler.Scheduler {
	jr := scheduler.NewJobRunner(d.Notifier, d.Metrics, d.Config.Schedule.JobTimeout)
	s := scheduler.New(jr, d.Config.Schedule.Tick)
	s.OnTick(func(t time.Time) {
		d.Metrics.TouchTick(t)
		for _, o := range d.Ticks {
			o.TouchTick(t)
		}
	})
	return s
}

func registerJobs(cfg *config.Config, s *scheduler.Scheduler, e *Engine, r *Retrainer, st *models.EngineState, n notify.Notifier) error {
	// формат уже проверен в config.Validate
	rh, rm, _ := helper.ParseClock(cfg.Schedule.RetrainAt)
	zh, zm, _ := helper.ParseClock(cfg.Schedule.ActivityResetAt)

	jobs := Jobs(JobsConfig{
		TradeInterval:     cfg.Schedule.TradeInterval,
		RetrainHour:       rh,
		RetrainMinute:     rm,
		RetrainTimeout:    cfg.Predictor.RetrainTimeout,
		HeartbeatInterval: cfg.Schedule.HeartbeatInterval,
		ActivityInterval:  cfg.Schedule.ActivityInterval,
		ResetHour:         zh,
		ResetMinute:       zm,
		Location:          cfg.Location(),
	}, e, r, NewActivityLog(cfg.Schedule.ActivityLogPath), st, n)

	for _, j := range jobs {
		if err := s.Register(j); err != nil {
			return err
		}
	}
	return nil
}

func runScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			s.Wait()
			logger.Info("[SCHED] all jobs finished")
			return nil
		},
	})
}

type metricsObserver struct {
	rec *metrics.Recorder
}

func (m metricsObserver) Observe(out models.Outcome) {
	m.rec.RecordOutcome(string(out.Status), out.Reason)
}
