package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signal_trader/pkg/logger"
)

// Job: описание регистрируемой джобы.
type Job struct {
	Name    string
	Trigger Trigger
	// Timeout перекрывает таймаут JobRunner; 0: по умолчанию.
	Timeout time.Duration
	Work    Work
}

type jobState struct {
	Job
	lastRun time.Time
	running bool
}

// Scheduler держит набор джоб и на каждом тике запускает те, чей триггер сработал.
// Каждая джоба идёт в своей горутине: зависший вызов брокера стопорит только её.
type Scheduler struct {
	runner *JobRunner
	every  time.Duration

	mu     sync.Mutex
	jobs   []*jobState
	byName map[string]*jobState

	onTick func(time.Time)
	wg     sync.WaitGroup
}

// Пауза торговли здесь не учитывается: торговая джоба запускается и сама пишет Skipped{paused}.
func New(runner *JobRunner, every time.Duration) *Scheduler {
	if every <= 0 {
		every = time.Second
	}
	return &Scheduler{
		runner: runner,
		every:  every,
		byName: make(map[string]*jobState),
	}
}

// OnTick вызывается в начале каждого тика (метрики, health).
func (s *Scheduler) OnTick(fn func(time.Time)) {
	s.onTick = fn
}

func (s *Scheduler) Register(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name is empty")
	}
	if job.Trigger == nil || job.Work == nil {
		return fmt.Errorf("job %q: trigger and work are required", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[job.Name]; ok {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	st := &jobState{Job: job}
	s.jobs = append(s.jobs, st)
	s.byName[job.Name] = st
	logger.Info("[SCHED] registered %s (%s)", job.Name, job.Trigger)
	return nil
}

// LastRun: последний записанный запуск джобы.
func (s *Scheduler) LastRun(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byName[name]
	if !ok || st.lastRun.IsZero() {
		return time.Time{}, false
	}
	return st.lastRun, true
}

// Tick проверяет все джобы относительно now и запускает созревшие.
// Сам не блокируется на работе джоб.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	if s.onTick != nil {
		s.onTick(now)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.jobs {
		if !s.due(st, now) {
			continue
		}
		if st.running {
			logger.Debug("[SCHED] %s still running, tick skipped", st.Name)
			continue
		}

		st.running = true
		s.wg.Add(1)
		go s.dispatch(ctx, st, now)
	}
}

// due ловит панику триггера: цикл планировщика не должен падать ни при каких условиях.
func (s *Scheduler) due(st *jobState, now time.Time) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("[SCHED] trigger of %s failed: %v", st.Name, rec)
			ok = false
		}
	}()
	return st.Trigger.Due(now, st.lastRun)
}

func (s *Scheduler) dispatch(ctx context.Context, st *jobState, now time.Time) {
	defer s.wg.Done()

	s.runner.Run(ctx, st.Name, st.Timeout, st.Work)

	s.mu.Lock()
	st.lastRun = st.Trigger.Stamp(now)
	st.running = false
	s.mu.Unlock()
}

// Start крутит тики до отмены ctx. Первый тик сразу.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("[SCHED] started, tick every %s, %d jobs", s.every, len(s.jobs))

	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	s.Tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			logger.Info("[SCHED] stopped")
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Wait ждёт завершения всех запущенных джоб.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
