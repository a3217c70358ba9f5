package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/dfsbridge/internal/bridge"
	"github.com/shaiso/dfsbridge/internal/telemetry"
)

// NewRunCmd создаёт команду запуска бриджа. Работает до SIGINT/SIGTERM.
func NewRunCmd(envFn func() *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFn()

			cfg, err := env.Config()
			if err != nil {
				return err
			}

			logger := env.Logger
			if logger == nil {
				logger = telemetry.SetupLogger()
			}
			logger.Info("starting dfs-bridge",
				"storage", cfg.Storage.Backend,
				"queues", cfg.Queues.Backend,
			)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			b, err := bridge.New(ctx, cfg, bridge.Deps{Logger: logger, Store: env.Store})
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.Run(ctx); err != nil {
				return err
			}
			logger.Info("dfs-bridge stopped")
			return nil
		},
	}
}
