package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"reservation-engine/internal/pkg/config"
	"reservation-engine/internal/usecase/commands"

	"go.uber.org/fx"
)

var SweeperModule = fx.Module("sweeper",
	fx.Invoke(StartSweeper),
)

// StartSweeper runs the expiry sweep on a fixed interval for the whole
// process lifetime. One sweep per process is enough; concurrent sweeps
// from multiple replicas are safe but wasteful, they contend on the
// same item locks.
func StartSweeper(lc fx.Lifecycle, cfg config.Config, cmds commands.ReservationCommands, logger *slog.Logger) {
	done := make(chan struct{})
	stopped := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			ticker := time.NewTicker(cfg.Sweep.Interval)
			go func() {
				defer close(stopped)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						ctx, cancel := context.WithTimeout(context.Background(), cfg.Sweep.Interval)
						if _, err := cmds.SweepExpired(ctx, time.Now(), cfg.Sweep.ExpiryWindow); err != nil {
							logger.Error("expiry sweep failed", "error", err)
						}
						cancel()
					}
				}
			}()
			logger.Info("expiry sweeper started",
				"interval", cfg.Sweep.Interval, "expiry_window", cfg.Sweep.ExpiryWindow)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(done)
			select {
			case <-stopped:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
