package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"signal_trader/internal/models"
	"signal_trader/pkg/logger"
	"signal_trader/pkg/tracing"

	"go.uber.org/zap"
)

// Work: единица работы джобы.
type Work func(ctx context.Context) error

// Alerter: куда уходят сообщения об упавших джобах.
type Alerter interface {
	Send(ctx context.Context, text string) error
}

type JobRecorder interface {
	RecordJob(job string, ok bool, took time.Duration)
}

const alertTimeout = 10 * time.Second

// JobRunner: единственная граница, на которой ошибки и паники джоб превращаются в алерты.
// Наружу ничего не пробрасывается.
type JobRunner struct {
	alerter  Alerter
	recorder JobRecorder
	timeout  time.Duration
}

func NewJobRunner(alerter Alerter, recorder JobRecorder, timeout time.Duration) *JobRunner {
	return &JobRunner{
		alerter:  alerter,
		recorder: recorder,
		timeout:  timeout,
	}
}

// Run выполняет fn с таймаутом. timeout=0 берёт таймаут раннера.
// Возвращает true, если джоба отработала без ошибки.
func (r *JobRunner) Run(ctx context.Context, name string, timeout time.Duration, fn Work) bool {
	if timeout <= 0 {
		timeout = r.timeout
	}
	log := logger.With(zap.String("job", name))

	span, ctx := tracing.StartSpan(ctx, "job."+name)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := call(ctx, fn)
	took := time.Since(start)

	tracing.Finish(span, err)
	if r.recorder != nil {
		r.recorder.RecordJob(name, err == nil, took)
	}

	if err == nil {
		log.Debug("[JOB] done", zap.Duration("took", took))
		return true
	}

	kind := models.KindOf(err)
	log.Error("[JOB] failed",
		zap.String("kind", kind.String()),
		zap.Duration("took", took),
		zap.Error(err),
	)
	r.alert(name, kind, err)
	return false
}

func call(ctx context.Context, fn Work) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("[JOB] panic: %v\n%s", rec, debug.Stack())
			err = models.Fatal("panic", fmt.Errorf("%v", rec))
		}
	}()
	return fn(ctx)
}

// alert шлёт отдельным контекстом: у джобы он мог уже истечь.
func (r *JobRunner) alert(name string, kind models.ErrorKind, err error) {
	if r.alerter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
	defer cancel()

	if sendErr := r.alerter.Send(ctx, AlertText(name, kind, err)); sendErr != nil {
		logger.Error("[JOB] alert for %s not delivered: %v", name, sendErr)
	}
}

// AlertText: короткое сообщение оператору о сбое джобы.
func AlertText(name string, kind models.ErrorKind, err error) string {
	if kind == models.ErrFatal {
		return fmt.Sprintf("🛑 Job %q failed (fatal): %v", name, err)
	}
	return fmt.Sprintf("⚠️ Job %q failed (transient): %v", name, err)
}
