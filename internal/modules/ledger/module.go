package ledger

import (
	"context"

	"signal_trader/internal/modules/config"
	"signal_trader/internal/modules/ledger/service"
	"signal_trader/internal/modules/ledger/service/pg"
	"signal_trader/internal/runner"
	"signal_trader/pkg/db"
	"signal_trader/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("ledger",
		fx.Provide(New),
	)
}

// New выбирает бэкенд журнала по конфигу.
func New(ctx context.Context, cfg *config.Config, tm *db.PgTxManager) (runner.Ledger, error) {
	if cfg.Ledger.Backend == "postgres" {
		logger.Info("[LEDGER] postgres")
		return pg.NewLedger(ctx, tm)
	}
	logger.Info("[LEDGER] csv in %s", cfg.Ledger.Dir)
	return service.NewCSV(cfg.Ledger.Dir)
}

// Open: журнал вне fx (cmd/report). close освобождает пул Postgres.
func Open(ctx context.Context, cfg *config.Config) (l runner.Ledger, closeFn func(), err error) {
	if cfg.Ledger.Backend != "postgres" {
		l, err = service.NewCSV(cfg.Ledger.Dir)
		return l, func() {}, err
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.Ledger.DSN, MaxConns: 2})
	if err != nil {
		return nil, nil, err
	}
	tm := db.NewPgTxManager(pool)
	l, err = pg.NewLedger(ctx, tm)
	if err != nil {
		tm.Close()
		return nil, nil, err
	}
	return l, tm.Close, nil
}
