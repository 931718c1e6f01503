package oanda

import (
	"signal_trader/internal/modules/config"
	"signal_trader/internal/modules/oanda_client/service"
	"signal_trader/internal/runner"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("oanda",
		fx.Provide(
			// *service.Client нужен ещё и bootstrap для свечей
			fx.Annotate(
				newClient,
				fx.As(fx.Self()),
				fx.As(new(runner.Broker)),
			),
		),
	)
}

func newClient(cfg *config.Config) *service.Client {
	return service.NewClient(service.Config{
		APIURL:    cfg.Oanda.APIURL,
		APIKey:    cfg.Oanda.APIKey,
		AccountID: cfg.Oanda.AccountID,
		Timeout:   cfg.Oanda.Timeout,
	})
}
