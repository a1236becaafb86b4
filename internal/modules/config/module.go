package config

import "go.uber.org/fx"

// Module отдаёт *Config, провалидированный на старте.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
	)
}
