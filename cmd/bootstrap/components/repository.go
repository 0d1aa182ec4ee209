package components

import (
	"reservation-engine/internal/infra/readstore"
	repo_impl "reservation-engine/internal/infra/repository"
	"reservation-engine/internal/usecase/commands"
	"reservation-engine/internal/usecase/notify"
	"reservation-engine/internal/usecase/queries"

	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		fx.Annotate(
			repo_impl.NewLedgerRepository,
			fx.As(new(commands.LedgerRepository)),
		),
		fx.Annotate(
			repo_impl.NewNotificationJobRepository,
			fx.As(new(notify.JobStore)),
		),
		// Read-side stores for queries
		fx.Annotate(
			readstore.NewReservationReadStore,
			fx.As(new(queries.ReservationReadStore)),
		),
		fx.Annotate(
			readstore.NewPortfolioReadStore,
			fx.As(new(queries.PortfolioReadStore)),
		),
		fx.Annotate(
			readstore.NewItemReadStore,
			fx.As(new(queries.ItemReadStore)),
		),
	),
)
