package components

import (
	"reservation-engine/internal/pkg/clock"
	"reservation-engine/internal/usecase/commands"
	"reservation-engine/internal/usecase/notify"
	"reservation-engine/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	fx.Annotate(
		notify.NewEmitter,
		fx.As(new(commands.EventEmitter)),
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		// The portfolio query service doubles as the stats cache
		// invalidator used by the write side.
		fx.Annotate(
			queries.NewPortfolioQueries,
			fx.As(new(queries.PortfolioQueries)),
			fx.As(new(commands.StatsInvalidator)),
		),
		queries.NewReservationQueries,
		queries.NewItemQueries,
	),
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewReservationCommands,
	),
)
