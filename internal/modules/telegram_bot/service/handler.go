package service

import (
	"net/http"

	"signal_trader/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleUpdate: слушаемся только настроенного чата и только команд.
func (t *Telegram) handleUpdate(upd tgbot.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	if msg.Chat.ID != t.opts.ChatID {
		logger.Warn("[TG] ignored message from chat %d", msg.Chat.ID)
		return
	}
	if !msg.IsCommand() {
		return
	}

	// команда может идти минутами (/retrain), апдейты не ждут её
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		reply := t.commands.HandleText(t.ctx, msg.Text)
		if err := t.Send(t.ctx, reply); err != nil {
			logger.Error("[TG] reply to /%s: %v", msg.Command(), err)
		}
	}()
}

// WebhookHandler принимает апдейты в режиме вебхука.
func (t *Telegram) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		upd, err := t.bot.HandleUpdate(r)
		if err != nil {
			logger.Warn("[TG] bad webhook payload: %v", err)
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		t.handleUpdate(*upd)
		w.WriteHeader(http.StatusOK)
	})
}

func (t *Telegram) wait() {
	t.wg.Wait()
}
