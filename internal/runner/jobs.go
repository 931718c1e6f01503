package runner

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/scheduler"
	"signal_trader/pkg/logger"
)

// Имена джоб, они же метки в метриках.
const (
	JobTrade         = "trade"
	JobRetrain       = "retrain"
	JobActivityLog   = "activity_log"
	JobHeartbeat     = "heartbeat"
	JobActivityReset = "activity_log_reset"
)

const RetrainDoneText = "🧠 Retrain finished."

type JobsConfig struct {
	TradeInterval     time.Duration
	RetrainHour       int
	RetrainMinute     int
	RetrainTimeout    time.Duration
	HeartbeatInterval time.Duration
	ActivityInterval  time.Duration
	ResetHour         int
	ResetMinute       int
	Location          *time.Location
}

// Jobs: набор джоб процесса.
// Торговая джоба идёт и на паузе: цикл сам вернёт Skipped{paused} и запишет его в журнал.
func Jobs(cfg JobsConfig, engine *Engine, retrainer *Retrainer, activity *ActivityLog, state *models.EngineState, n Notifier) []scheduler.Job {
	return []scheduler.Job{
		{
			Name:    JobTrade,
			Trigger: scheduler.Every(cfg.TradeInterval),
			Work: func(ctx context.Context) error {
				_, err := engine.RunCycle(ctx)
				return err
			},
		},
		{
			Name:    JobRetrain,
			Trigger: scheduler.At(cfg.RetrainHour, cfg.RetrainMinute, cfg.Location),
			Timeout: cfg.RetrainTimeout,
			Work: func(ctx context.Context) error {
				if err := retrainer.Run(ctx); err != nil {
					return err
				}
				if n != nil {
					if err := n.Send(ctx, RetrainDoneText); err != nil {
						logger.Warn("[TG] retrain notification not delivered: %v", err)
					}
				}
				return nil
			},
		},
		{
			Name:    JobActivityLog,
			Trigger: scheduler.Every(cfg.ActivityInterval),
			Work: func(context.Context) error {
				return activity.Append(time.Now())
			},
		},
		{
			Name:    JobHeartbeat,
			Trigger: scheduler.Every(cfg.HeartbeatInterval),
			Work: func(context.Context) error {
				logger.Info("[SCHED] heartbeat, paused=%v", state.Paused())
				return nil
			},
		},
		{
			Name:    JobActivityReset,
			Trigger: scheduler.At(cfg.ResetHour, cfg.ResetMinute, cfg.Location),
			Work: func(context.Context) error {
				return activity.Reset()
			},
		},
	}
}

// ActivityLog: текстовый файл активности планировщика, обнуляется раз в сутки.
type ActivityLog struct {
	path string
	mu   sync.Mutex
}

func NewActivityLog(path string) *ActivityLog {
	return &ActivityLog{path: path}
}

func (a *ActivityLog) Append(now time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	_, err = fmt.Fprintf(f, "%s - [SCHEDULER] Checked tasks\n", now.Format(time.DateTime))
	return err
}

func (a *ActivityLog) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.WriteFile(a.path, nil, 0o644); err != nil {
		return fmt.Errorf("reset activity log: %w", err)
	}
	logger.Info("[SCHED] activity log reset")
	return nil
}
