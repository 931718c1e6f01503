package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signal_trader/internal/helper"
	"signal_trader/internal/models"
	"signal_trader/pkg/logger"
)

// CommandKind: закрытый набор команд оператора.
type CommandKind int

const (
	CmdStart CommandKind = iota
	CmdStatus
	CmdPause
	CmdResume
	CmdRetrain
	CmdTrades
	CmdStats
	CmdBacktest
)

var commandNames = map[CommandKind]string{
	CmdStart:    "start",
	CmdStatus:   "status",
	CmdPause:    "pause",
	CmdResume:   "resume",
	CmdRetrain:  "retrain",
	CmdTrades:   "trades",
	CmdStats:    "stats",
	CmdBacktest: "backtest",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// ParseCommand понимает "status", "/status" и "/status@my_bot".
func ParseCommand(text string) (CommandKind, bool) {
	name := strings.TrimSpace(text)
	if i := strings.IndexAny(name, " \n"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	name = strings.ToLower(name)
	for k, n := range commandNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// PauseObserver узнаёт о смене паузы (метрика).
type PauseObserver interface {
	SetPaused(v bool)
}

const recentTradesLimit = 10

type commandHandler func(ctx context.Context) (string, error)

// Commands обслуживает команды из чата. Хэндлеры сидят в таблице по CommandKind.
type Commands struct {
	instrument  string
	state       *models.EngineState
	broker      Broker
	ledger      Ledger
	hours       MarketHours
	retrainer   *Retrainer
	pause       PauseObserver
	callTimeout time.Duration
	now         func() time.Time

	handlers map[CommandKind]commandHandler
}

func NewCommands(
	params Params,
	state *models.EngineState,
	broker Broker,
	ledger Ledger,
	hours MarketHours,
	retrainer *Retrainer,
	pause PauseObserver,
) *Commands {
	c := &Commands{
		instrument:  params.Instrument,
		state:       state,
		broker:      broker,
		ledger:      ledger,
		hours:       hours,
		retrainer:   retrainer,
		pause:       pause,
		callTimeout: params.CallTimeout,
		now:         time.Now,
	}
	if c.callTimeout <= 0 {
		c.callTimeout = 20 * time.Second
	}
	c.handlers = map[CommandKind]commandHandler{
		CmdStart:    c.start,
		CmdStatus:   c.status,
		CmdPause:    c.pauseTrading,
		CmdResume:   c.resumeTrading,
		CmdRetrain:  c.retrain,
		CmdTrades:   c.trades,
		CmdStats:    c.stats,
		CmdBacktest: c.backtest,
	}
	return c
}

func (c *Commands) Handle(ctx context.Context, kind CommandKind) (string, error) {
	h, ok := c.handlers[kind]
	if !ok {
		return "", fmt.Errorf("unknown command %s", kind)
	}
	logger.Info("[TG] command /%s", kind)
	return h(ctx)
}

// HandleText: ответ на произвольный текст из чата; ошибки превращаются в текст.
func (c *Commands) HandleText(ctx context.Context, text string) string {
	kind, ok := ParseCommand(text)
	if !ok {
		return "🤷 Unknown command.\n" + helpText()
	}
	reply, err := c.Handle(ctx, kind)
	if err != nil {
		logger.Error("[TG] /%s failed: %v", kind, err)
		return fmt.Sprintf("❗️ /%s failed: %v", kind, err)
	}
	return reply
}

func helpText() string {
	return strings.Join([]string{
		"/status: bot state",
		"/pause: stop opening trades",
		"/resume: resume trading",
		"/retrain: retrain the model now",
		"/trades: recent trades",
		"/stats: performance summary",
		"/backtest: evaluate the model on held-out history",
	}, "\n")
}

func (c *Commands) start(context.Context) (string, error) {
	return fmt.Sprintf("🤖 Signal trader for %s is running.\n\n%s", c.instrument, helpText()), nil
}

func (c *Commands) status(ctx context.Context) (string, error) {
	snap := c.state.Snapshot()
	now := c.now()

	var b strings.Builder
	b.WriteString("🤖 Status\n")
	if snap.Paused {
		b.WriteString("Trading: ⏸ paused\n")
	} else {
		b.WriteString("Trading: ▶️ active\n")
	}
	if c.hours == nil || c.hours.IsOpen(now) {
		b.WriteString("Market: open\n")
	} else {
		b.WriteString("Market: closed\n")
	}
	fmt.Fprintf(&b, "Instrument: %s\n", c.instrument)

	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	positions, err := c.broker.OpenPositions(cctx, c.instrument)
	cancel()
	if err != nil {
		fmt.Fprintf(&b, "Open trades: unavailable (%v)\n", err)
	} else {
		var total int64
		n := 0
		for _, p := range positions {
			if p.Instrument != c.instrument || p.SignedUnits == 0 {
				continue
			}
			n++
			total += p.SignedUnits
		}
		fmt.Fprintf(&b, "Open trades: %d (net units %d)\n", n, total)
	}

	if snap.LastRetrain.IsZero() {
		b.WriteString("Last retrain: never\n")
	} else {
		fmt.Fprintf(&b, "Last retrain: %s\n", snap.LastRetrain.UTC().Format(time.DateTime))
	}
	if snap.LastSignal == nil {
		b.WriteString("Last prediction: none")
	} else {
		s := snap.LastSignal
		fmt.Fprintf(&b, "Last prediction: %s %.1f%% at %s",
			s.Direction.Emoji(), s.Confidence*100, s.At.UTC().Format(time.DateTime))
	}
	return b.String(), nil
}

func (c *Commands) pauseTrading(context.Context) (string, error) {
	if c.state.SetPaused(true) {
		return "⏸ Trading is already paused.", nil
	}
	if c.pause != nil {
		c.pause.SetPaused(true)
	}
	return "⏸ Trading paused. Scheduled cycles will be skipped.", nil
}

func (c *Commands) resumeTrading(context.Context) (string, error) {
	if !c.state.SetPaused(false) {
		return "▶️ Trading is already active.", nil
	}
	if c.pause != nil {
		c.pause.SetPaused(false)
	}
	return "▶️ Trading resumed.", nil
}

func (c *Commands) retrain(ctx context.Context) (string, error) {
	if err := c.retrainer.Run(ctx); err != nil {
		return "", err
	}
	return "🧠 Model retrained.", nil
}

func (c *Commands) trades(ctx context.Context) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	recs, err := c.ledger.RecentTrades(cctx, recentTradesLimit)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "📭 No trades yet.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📒 Last %d trades:\n", len(recs))
	for _, r := range recs {
		fmt.Fprintf(&b, "%s %s %s %d @ %.5f (%.0f%%)\n",
			r.Timestamp.UTC().Format(time.DateTime), r.Instrument, r.Direction.Emoji(),
			r.SignedUnits, r.Price, r.Confidence*100)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (c *Commands) stats(ctx context.Context) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	s, err := c.ledger.Summary(cctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("📊 Stats\nTotal trades: %d\nWins: %d\nLosses: %d\nWin rate: %.1f%%\nNet P/L: %s\n%s",
		s.TotalTrades, s.Wins, s.Losses, s.WinRate, helper.FormatMoney(s.NetPL), statsScopeNote), nil
}

// Закрытия по TP/SL у брокера в журнал не попадают.
const statsScopeNote = "ℹ️ Wins/losses/P&L count only positions the bot closed on reversal; broker TP/SL exits are not included."

func (c *Commands) backtest(ctx context.Context) (string, error) {
	res, err := c.retrainer.Backtest(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🔁 Backtest Results\n\n📦 Samples: %d\n✅ Accuracy: %.2f%%\n🎯 Confident Accuracy: %.2f%%\n📊 Confidence Coverage: %.2f%%",
		res.Samples, res.TestAccuracy, res.ConfidentAccuracy, res.ConfidenceCoverage), nil
}
