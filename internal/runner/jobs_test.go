package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/scheduler"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestActivityLogAppendAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler_log.txt")
	a := NewActivityLog(path)

	require.NoError(t, a.Append(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, a.Append(time.Date(2026, 3, 10, 9, 1, 0, 0, time.UTC)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, []string{
		"2026-03-10 09:00:00 - [SCHEDULER] Checked tasks",
		"2026-03-10 09:01:00 - [SCHEDULER] Checked tasks",
	}, lines)

	require.NoError(t, a.Reset())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestJobsTable(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	retrainer := NewRetrainer(f.predictor, f.state, time.Minute)
	jobs := Jobs(JobsConfig{
		TradeInterval:     15 * time.Minute,
		RetrainHour:       23,
		RetrainTimeout:    10 * time.Minute,
		HeartbeatInterval: time.Minute,
		ActivityInterval:  time.Minute,
		Location:          time.UTC,
	}, f.engine, retrainer, NewActivityLog(filepath.Join(t.TempDir(), "log.txt")), f.state, f.chat)

	byName := make(map[string]scheduler.Job, len(jobs))
	for _, j := range jobs {
		byName[j.Name] = j
	}
	require.Len(t, byName, 5)

	trade := byName[JobTrade]
	require.Equal(t, scheduler.Every(15*time.Minute), trade.Trigger)

	retrain := byName[JobRetrain]
	require.Equal(t, scheduler.At(23, 0, time.UTC), retrain.Trigger)
	require.Equal(t, 10*time.Minute, retrain.Timeout)

	require.Equal(t, scheduler.At(0, 0, time.UTC), byName[JobActivityReset].Trigger)
	require.NoError(t, byName[JobHeartbeat].Work(context.Background()))
}

func TestTradeJobPausedThroughScheduler(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	f.state.SetPaused(true)
	jobs := Jobs(JobsConfig{
		TradeInterval:     15 * time.Minute,
		RetrainHour:       23,
		HeartbeatInterval: time.Minute,
		ActivityInterval:  time.Minute,
		Location:          time.UTC,
	}, f.engine, NewRetrainer(f.predictor, f.state, time.Minute),
		NewActivityLog(filepath.Join(t.TempDir(), "log.txt")), f.state, f.chat)

	s := scheduler.New(scheduler.NewJobRunner(nil, nil, time.Second), time.Second)
	for _, j := range jobs {
		require.NoError(t, s.Register(j))
	}
	for i := 0; i < 4; i++ {
		s.Tick(context.Background(), cycleTime.Add(time.Duration(i)*15*time.Minute))
		s.Wait()
	}

	f.predictor.AssertNotCalled(t, "Predict", mock.Anything)
	require.Len(t, f.ledger.skips, 4)
	for _, sk := range f.ledger.skips {
		require.Equal(t, models.ReasonPaused, sk.Reason)
	}
	require.Len(t, f.observed, 4)
	require.Contains(t, f.chat.last(), "paused")
	_, ok := s.LastRun(JobHeartbeat)
	require.True(t, ok)
}

func TestRetrainJobNotifiesOnSuccess(t *testing.T) {
	f := newEngineFixture(t, fixedHours(true))
	jobs := Jobs(JobsConfig{
		TradeInterval:     15 * time.Minute,
		HeartbeatInterval: time.Minute,
		ActivityInterval:  time.Minute,
		Location:          time.UTC,
	}, f.engine, NewRetrainer(f.predictor, f.state, time.Minute),
		NewActivityLog(filepath.Join(t.TempDir(), "log.txt")), f.state, f.chat)

	var retrain scheduler.Job
	for _, j := range jobs {
		if j.Name == JobRetrain {
			retrain = j
		}
	}

	f.predictor.On("Retrain", mock.Anything).Return(nil).Once()
	require.NoError(t, retrain.Work(context.Background()))
	require.Equal(t, RetrainDoneText, f.chat.last())

	f.predictor.On("Retrain", mock.Anything).Return(errors.New("boom")).Once()
	require.Error(t, retrain.Work(context.Background()))
	require.Len(t, f.chat.msgs, 1)
}

func TestRetrainerEnsureModel(t *testing.T) {
	p := &predictorMock{}
	st := models.NewEngineState()
	r := NewRetrainer(p, st, time.Second)

	p.On("ModelReady", mock.Anything).Return(true, nil).Once()
	trained, err := r.EnsureModel(context.Background())
	require.NoError(t, err)
	require.False(t, trained)
	p.AssertNotCalled(t, "Retrain", mock.Anything)

	p.On("ModelReady", mock.Anything).Return(false, nil).Once()
	p.On("Retrain", mock.Anything).Return(nil).Once()
	trained, err = r.EnsureModel(context.Background())
	require.NoError(t, err)
	require.True(t, trained)
	_, ok := st.LastRetrain()
	require.True(t, ok)

	p.On("ModelReady", mock.Anything).Return(false, errors.New("connection refused")).Once()
	_, err = r.EnsureModel(context.Background())
	require.Equal(t, models.ErrTransient, models.KindOf(err))
}
