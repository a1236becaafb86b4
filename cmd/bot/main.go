package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"wallex_bot/internal/modules/config"
	"wallex_bot/internal/modules/health"
	"wallex_bot/internal/modules/postgres"
	"wallex_bot/internal/modules/redis"
	telegram "wallex_bot/internal/modules/telegram_bot"
	"wallex_bot/internal/modules/wallex_client"
	"wallex_bot/internal/runner"
	"wallex_bot/pkg/logger"
	"wallex_bot/pkg/tracing"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger.SetServiceName(cfg.Service.Name)
	tracing.SetServiceName(cfg.Service.Name)
	return logger.New(cfg.Service.LogLevel)
}

func initTracing(lc fx.Lifecycle, cfg *config.Config, l *zap.Logger) error {
	_, closer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Tracing.Host,
		Port: cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}
	if cfg.Tracing.Host == "" {
		l.Info("tracing disabled")
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return ctx
			},
			newLogger,
		),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		config.Module(),
		postgres.Module(),
		redis.Module(),
		wallex_client.Module(),
		telegram.Module(),
		health.Module(),
		runner.Module(),
		fx.Invoke(
			initTracing,
			func(cfg *config.Config, l *zap.Logger) {
				l.Info("effective config\n" + cfg.Dump())
			},
		),
	)
	if err := app.Start(ctx); err != nil {
		log.Fatal(err)
	}
	logger.Info("wallex bot started")

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Error("shutdown: %v", err)
	}
	logger.Info("wallex bot stopped")
}
