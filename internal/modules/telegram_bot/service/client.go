package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"signal_trader/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// лимит Telegram на длину сообщения
const maxMessageRunes = 4096

// CommandHandler отвечает на текст команды из чата.
type CommandHandler interface {
	HandleText(ctx context.Context, text string) string
}

type Options struct {
	Token      string
	ChatID     int64
	UseWebhook bool
	// публичный адрес сервиса; путь вебхука дописывается сам
	WebhookURL string
	// формат как у tgbot.APIEndpoint, для тестов
	Endpoint string
	Timeout  time.Duration
}

// Telegram: алерты в один чат и приём команд оператора (long polling или вебхук).
type Telegram struct {
	bot      *tgbot.BotAPI
	opts     Options
	commands CommandHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(opts Options, commands CommandHandler) (*Telegram, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}
	if opts.Endpoint == "" {
		opts.Endpoint = tgbot.APIEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	b, err := tgbot.NewBotAPIWithClient(opts.Token, opts.Endpoint, &http.Client{Timeout: opts.Timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	logger.Info("[TG] authorized as @%s", b.Self.UserName)

	ctx, cancel := context.WithCancel(context.Background())
	return &Telegram{
		bot:      b,
		opts:     opts,
		commands: commands,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Send пишет в настроенный чат.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.opts.ChatID == 0 {
		return fmt.Errorf("telegram chat id is not configured")
	}
	_, err := t.bot.Send(tgbot.NewMessage(t.opts.ChatID, truncate(text, maxMessageRunes)))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// WebhookPath: путь, на который Telegram шлёт апдейты. Токен в пути служит секретом.
func WebhookPath(token string) string {
	return "/webhook/" + token
}

// Start поднимает выбранный транспорт команд.
func (t *Telegram) Start(ctx context.Context) error {
	if t.opts.UseWebhook {
		link := strings.TrimRight(t.opts.WebhookURL, "/") + WebhookPath(t.opts.Token)
		wh, err := tgbot.NewWebhook(link)
		if err != nil {
			return fmt.Errorf("webhook url: %w", err)
		}
		if _, err := t.bot.Request(wh); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		logger.Info("[TG] webhook mode")
		return nil
	}

	// в режиме polling старый вебхук мешает getUpdates
	if _, err := t.bot.Request(tgbot.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}
	updates := t.bot.GetUpdatesChan(u)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-t.ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(upd)
			}
		}
	}()
	logger.Info("[TG] polling mode")
	return nil
}

func (t *Telegram) Stop() {
	if !t.opts.UseWebhook {
		t.bot.StopReceivingUpdates()
	}
	t.cancel()
	t.wg.Wait()
}
