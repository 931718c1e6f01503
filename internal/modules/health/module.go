package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/modules/health/service"
	"signal_trader/internal/runner"
	"signal_trader/pkg/logger"
	"signal_trader/pkg/metrics"

	"github.com/bytedance/sonic"
	"go.uber.org/fx"
)

type Config struct {
	Addr string // например ":8080"
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.Port)}
}

type muxDeps struct {
	fx.In

	State   *service.State
	Engine  *models.EngineState
	Hub     *service.Hub
	Metrics *metrics.Recorder
	Routes  []service.Route `group:"http_routes"`
}

func NewMux(d muxDeps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Bot is running."))
	})

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: модель есть, планировщик запущен
		if !d.State.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		snap := d.Engine.Snapshot()
		resp := map[string]any{
			"ready":        d.State.Ready(),
			"paused":       snap.Paused,
			"uptimeSec":    int64(d.State.Uptime().Seconds()),
			"lastTickUnix": unixOrZero(d.State.LastTick()),
			"lastRetrain":  unixOrZero(snap.LastRetrain),
			"wsClients":    d.Hub.Clients(),
		}
		if snap.LastSignal != nil {
			resp["lastSignal"] = snap.LastSignal
		}
		data, err := sonic.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})

	mux.Handle("/metrics", d.Metrics.Handler())
	mux.Handle("/ws/outcomes", d.Hub)

	for _, rt := range d.Routes {
		if rt.Pattern == "" || rt.Handler == nil {
			continue
		}
		mux.Handle(rt.Pattern, rt.Handler)
	}

	return mux
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux, hub *service.Hub) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			logger.Info("[HTTP] listening on %s", cfg.Addr)
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			hub.Close()
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			service.NewHub,
			metrics.New,
			NewConfig,
			NewMux,
			fx.Annotate(
				func(s *service.State) runner.TickObserver { return s },
				fx.ResultTags(`group:"tick_observers"`),
			),
			fx.Annotate(
				func(h *service.Hub) runner.OutcomeObserver { return h },
				fx.ResultTags(`group:"outcome_observers"`),
			),
		),
		fx.Invoke(RunHTTP),
	)
}
