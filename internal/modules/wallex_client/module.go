package wallex_client

import (
	"go.uber.org/fx"

	"wallex_bot/internal/modules/wallex_client/service"
)

// Module отдаёт REST-клиент Wallex.
func Module() fx.Option {
	return fx.Module("wallex_client",
		fx.Provide(
			service.NewClient,
		),
	)
}
