package redis

import (
	"context"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"wallex_bot/internal/lease"
	"wallex_bot/internal/modules/config"
)

// NewClient: nil, если REDIS_ADDR не задан: бот работает в одиночном режиме.
func NewClient(lc fx.Lifecycle, ctx context.Context, cfg *config.Config, log *zap.Logger) (*goredis.Client, error) {
	if cfg.Redis.Addr == "" {
		log.Info("redis disabled, namespace lease is local only")
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return rdb.Close() },
	})
	return rdb, nil
}

func NewLease(rdb *goredis.Client, cfg *config.Config) *lease.Lease {
	return lease.New(rdb, cfg.Redis.LeaseTTL)
}

func Module() fx.Option {
	return fx.Module("redis",
		fx.Provide(
			NewClient,
			NewLease,
		),
	)
}
