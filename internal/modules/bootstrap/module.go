package bootstrap

import (
	"context"

	bootstrap "signal_trader/internal/modules/bootstrap/service"
	"signal_trader/internal/modules/config"
	healthsvc "signal_trader/internal/modules/health/service"
	oanda "signal_trader/internal/modules/oanda_client/service"
	"signal_trader/internal/notify"
	"signal_trader/internal/runner"
	"signal_trader/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(newWarmuper),
		fx.Invoke(func(lc fx.Lifecycle, wu *bootstrap.Warmuper) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						if err := wu.Warmup(ctx); err != nil {
							logger.Error("[BOOT] warmup error: %v", err)
							return
						}
						logger.Info("[BOOT] warmup done")
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}

func newWarmuper(cfg *config.Config, c *oanda.Client, r *runner.Retrainer, st *healthsvc.State, n notify.Notifier) *bootstrap.Warmuper {
	return bootstrap.NewWarmuper(bootstrap.Options{
		Instrument:  cfg.Trading.Instrument,
		Granularity: cfg.Trading.Granularity,
	}, c, r, st, n)
}
