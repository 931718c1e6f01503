package postgres

import (
	"context"
	"fmt"

	"signal_trader/internal/modules/config"
	"signal_trader/pkg/db"
	"signal_trader/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(newTxManager),
	)
}

// newTxManager поднимает пул только для журнала в Postgres, иначе nil.
func newTxManager(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
	if cfg.Ledger.Backend != "postgres" {
		return nil, nil
	}
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN:      cfg.Ledger.DSN,
		MaxConns: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	if err = poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, err
	}
	logger.Info("[DB] connected")

	tm := db.NewPgTxManager(poolMaster)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tm.Close()
			return nil
		},
	})
	return tm, nil
}
