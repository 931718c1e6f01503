package notify

import (
	"context"

	"signal_trader/pkg/logger"
)

// Notifier доставляет оператору человекочитаемые сообщения.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Stdout используется, когда телеграм не настроен. Всё уходит в лог.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Send(_ context.Context, text string) error {
	logger.Info("[NOTIFY] %s", text)
	return nil
}
