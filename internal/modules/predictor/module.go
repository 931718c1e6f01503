package predictor

import (
	"signal_trader/internal/modules/config"
	"signal_trader/internal/modules/predictor/service"
	"signal_trader/internal/runner"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("predictor",
		fx.Provide(
			fx.Annotate(
				newClient,
				fx.As(new(runner.Predictor)),
			),
		),
	)
}

func newClient(cfg *config.Config) *service.Client {
	return service.NewClient(service.Config{
		URL:         cfg.Predictor.URL,
		Instrument:  cfg.Trading.Instrument,
		Granularity: cfg.Trading.Granularity,
		Timeout:     cfg.Predictor.Timeout,
	})
}
