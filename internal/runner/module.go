package runner

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"wallex_bot/internal/feed"
	"wallex_bot/internal/indicators"
	"wallex_bot/internal/journal"
	"wallex_bot/internal/lease"
	"wallex_bot/internal/modules/config"
	healthsvc "wallex_bot/internal/modules/health/service"
	tgsvc "wallex_bot/internal/modules/telegram_bot/service"
	wallex "wallex_bot/internal/modules/wallex_client/service"
	"wallex_bot/internal/pricing"
	"wallex_bot/internal/reconciler"
	"wallex_bot/internal/strategy"
)

type params struct {
	fx.In

	Cfg     *config.Config
	Client  *wallex.Client
	Lease   *lease.Lease
	Journal *journal.Journal
	Tg      *tgsvc.Telegram
	Health  *healthsvc.State
	Log     *zap.Logger
}

func NewRunner(p params) *Runner {
	cfg := p.Cfg
	calc := pricing.NewCalculator(pricing.Config{
		TickValue:       cfg.Trading.TickValue,
		StopLossBuffer:  cfg.StopLossBuffer(),
		PipAllowance:    cfg.PipAllowance(),
		MinRewardToRisk: cfg.Trading.MinRewardToRisk,
	})
	src := indicators.NewSource(cfg.Strategy.RSIPeriod, cfg.Strategy.BBPeriod, cfg.Strategy.BBDeviations)

	return New(Options{
		Symbol:       cfg.Trading.Symbol,
		Prefix:       cfg.Trading.NamespacePrefix,
		BacklogDelay: cfg.Loop.BacklogDelay,
		RetryDelay:   cfg.Loop.RetryDelay,
		CallTimeout:  cfg.Exchange.RequestTimeout,
	}, Deps{
		Feed:       feed.New(p.Client, src, cfg.Trading.Symbol, cfg.Trading.Candles),
		Detector:   strategy.NewDetector(strategy.Thresholds{RSILow: cfg.Strategy.RSILow, RSIHigh: cfg.Strategy.RSIHigh}),
		Calculator: calc,
		Reconciler: reconciler.New(p.Client, calc, reconciler.Params{
			Symbol:    cfg.Trading.Symbol,
			OrderType: cfg.Trading.OrderType,
			Quantity:  cfg.Trading.Quantity,
			Settle: reconciler.SettlePolicy{
				Interval: cfg.Loop.SettleInterval,
				Timeout:  cfg.Loop.SettleTimeout,
			},
		}, p.Log.Named("reconciler")),
		Lease:    p.Lease,
		Journal:  p.Journal,
		Notifier: p.Tg,
		Health:   p.Health,
		Log:      p.Log.Named("runner"),
	})
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewRunner,
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner, ctx context.Context) {
			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						defer close(done)
						_ = r.Run(runCtx)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
