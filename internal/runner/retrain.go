package runner

import (
	"context"
	"time"

	"signal_trader/internal/models"
	"signal_trader/pkg/logger"
)

// Retrainer переобучает модель и отмечает время в EngineState.
// Общий для ночной джобы, команды /retrain и старта без модели.
type Retrainer struct {
	predictor Predictor
	state     *models.EngineState
	timeout   time.Duration
	now       func() time.Time
}

func NewRetrainer(predictor Predictor, state *models.EngineState, timeout time.Duration) *Retrainer {
	return &Retrainer{
		predictor: predictor,
		state:     state,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (r *Retrainer) Run(ctx context.Context) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := r.now()
	if err := r.predictor.Retrain(ctx); err != nil {
		return models.Transient("retrain", err)
	}
	done := r.now()
	r.state.SetLastRetrain(done)
	logger.Info("[RETRAIN] model retrained in %s", done.Sub(start).Round(time.Millisecond))
	return nil
}

// Backtest: та же цена, что у переобучения, поэтому и тот же таймаут.
// Время переобучения не отмечаем: модель оценивается, а не выкатывается по расписанию.
func (r *Retrainer) Backtest(ctx context.Context) (models.BacktestResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res, err := r.predictor.Backtest(ctx)
	if err != nil {
		if models.IsFatal(err) {
			return models.BacktestResult{}, err
		}
		return models.BacktestResult{}, models.Transient("backtest", err)
	}
	logger.Info("[RETRAIN] backtest on %d samples: test accuracy %.2f%%", res.Samples, res.TestAccuracy)
	return res, nil
}

// EnsureModel переобучает, только если модели ещё нет.
func (r *Retrainer) EnsureModel(ctx context.Context) (bool, error) {
	ready, err := r.predictor.ModelReady(ctx)
	if err != nil {
		return false, models.Transient("model ready", err)
	}
	if ready {
		return false, nil
	}
	logger.Info("[RETRAIN] no trained model, training before first cycle")
	return true, r.Run(ctx)
}
