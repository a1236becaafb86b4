package telegram

import (
	"go.uber.org/fx"

	"wallex_bot/internal/modules/telegram_bot/service"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			service.NewTelegram,
		),
	)
}
