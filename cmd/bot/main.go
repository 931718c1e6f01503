package main

import (
	"context"

	"signal_trader/internal/modules/bootstrap"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/modules/health"
	"signal_trader/internal/modules/ledger"
	oanda "signal_trader/internal/modules/oanda_client"
	"signal_trader/internal/modules/postgres"
	"signal_trader/internal/modules/predictor"
	telegram "signal_trader/internal/modules/telegram_bot"
	"signal_trader/internal/runner"
	"signal_trader/pkg/logger"
	"signal_trader/pkg/tracing"

	"go.uber.org/fx"
)

const serviceName = "signal_trader"

func main() {
	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		// до остальных модулей: их конструкторы уже пишут в лог
		fx.Module("observability",
			fx.Invoke(initLogger, initTracing),
		),
		health.Module(),
		telegram.Module(),
		oanda.Module(),
		predictor.Module(),
		postgres.Module(),
		ledger.Module(),
		runner.Module(),
		bootstrap.Module(),
	)
	app.Run()
	logger.Sync()
}

func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.Log.Level, cfg.Log.Development)
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	_, closer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}
