package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"wallex_bot/internal/journal"
	"wallex_bot/internal/modules/config"
	"wallex_bot/pkg/db"
)

// NewTxManager: без DSN журнал выключен и менеджер не создаётся.
func NewTxManager(lc fx.Lifecycle, ctx context.Context, cfg *config.Config, log *zap.Logger) (*db.PgTxManager, error) {
	if cfg.DB == "" {
		log.Info("database dsn is empty, order journal disabled")
		return nil, nil
	}
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	if err = poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, err
	}

	m := db.NewPgTxManager(poolMaster)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			m.Close()
			return nil
		},
	})
	return m, nil
}

func NewJournal(lc fx.Lifecycle, tx *db.PgTxManager) *journal.Journal {
	j := journal.New(tx)
	lc.Append(fx.Hook{
		OnStart: j.Migrate,
	})
	return j
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			NewTxManager,
			NewJournal,
		),
	)
}
