package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder собирает метрики планировщика и торгового цикла.
// Каждый Recorder держит свой реестр, чтобы тесты не делили глобальный.
type Recorder struct {
	registry *prometheus.Registry

	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	outcomes    *prometheus.CounterVec
	paused      prometheus.Gauge
	lastTick    prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_trader_job_runs_total",
				Help: "Job runs by job name and result",
			},
			[]string{"job", "status"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signal_trader_job_duration_seconds",
				Help:    "Duration of job runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_trader_cycle_outcomes_total",
				Help: "Decision cycle outcomes by status and reason",
			},
			[]string{"status", "reason"},
		),
		paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_trader_trading_paused",
			Help: "1 when trading is paused by the operator",
		}),
		lastTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_trader_scheduler_last_tick_unix",
			Help: "Unix time of the last scheduler tick",
		}),
	}

	reg.MustRegister(
		r.jobRuns,
		r.jobDuration,
		r.outcomes,
		r.paused,
		r.lastTick,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// RecordJob фиксирует результат одного запуска джобы.
func (r *Recorder) RecordJob(job string, ok bool, took time.Duration) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	r.jobRuns.WithLabelValues(job, status).Inc()
	r.jobDuration.WithLabelValues(job).Observe(took.Seconds())
}

func (r *Recorder) RecordOutcome(status, reason string) {
	r.outcomes.WithLabelValues(status, reason).Inc()
}

func (r *Recorder) SetPaused(v bool) {
	if v {
		r.paused.Set(1)
		return
	}
	r.paused.Set(0)
}

func (r *Recorder) TouchTick(t time.Time) {
	r.lastTick.Set(float64(t.Unix()))
}

// Handler отдаёт /metrics для этого реестра.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry нужен тестам.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
