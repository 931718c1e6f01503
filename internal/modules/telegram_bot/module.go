package telegram

import (
	"context"

	"signal_trader/internal/modules/config"
	healthsvc "signal_trader/internal/modules/health/service"
	"signal_trader/internal/modules/telegram_bot/service"
	"signal_trader/internal/notify"
	"signal_trader/internal/runner"
	"signal_trader/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			newTelegram,
			newNotifier,
			fx.Annotate(
				newWebhookRoute,
				fx.ResultTags(`group:"http_routes"`),
			),
		),
		fx.Invoke(func(lc fx.Lifecycle, t *service.Telegram) {
			if t == nil {
				return
			}
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return t.Start(ctx)
				},
				OnStop: func(ctx context.Context) error {
					t.Stop()
					return nil
				},
			})
		}),
	)
}

// newTelegram без токена возвращает nil: алерты идут в лог, команды не принимаются.
func newTelegram(cfg *config.Config, commands *runner.Commands) (*service.Telegram, error) {
	if cfg.Telegram.Token == "" {
		logger.Warn("[TG] token is not set, notifications go to stdout")
		return nil, nil
	}
	return service.New(service.Options{
		Token:      cfg.Telegram.Token,
		ChatID:     cfg.Telegram.ChatID,
		UseWebhook: cfg.Telegram.UseWebhook,
		WebhookURL: cfg.Telegram.WebhookURL,
	}, commands)
}

func newNotifier(t *service.Telegram) notify.Notifier {
	if t == nil {
		return notify.NewStdout()
	}
	return t
}

func newWebhookRoute(cfg *config.Config, t *service.Telegram) healthsvc.Route {
	if t == nil || !cfg.Telegram.UseWebhook {
		return healthsvc.Route{}
	}
	return healthsvc.Route{
		Pattern: "POST " + service.WebhookPath(cfg.Telegram.Token),
		Handler: t.WebhookHandler(),
	}
}
