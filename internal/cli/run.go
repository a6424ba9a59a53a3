package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd(app *App) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading cycle loop",
		Long: `Run the decision cycle on the configured interval.

Each cycle syncs positions, analyzes the universe, updates holdings,
applies sell and rotation rules, opens new positions, and persists state.
A shutdown signal finishes the in-flight cycle before exiting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			kv, err := openStore(app)
			if err != nil {
				return err
			}
			defer kv.Close()

			eng, err := buildEngine(ctx, app, kv, true)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if once {
				output.Info("Running a single cycle")
			} else {
				output.Info("Starting cycle loop (interval %s)", app.Config.Trading.CycleInterval)
			}

			err = eng.Run(ctx, once)
			if err != nil && ctx.Err() == nil {
				return err
			}
			output.Success("Done")
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	return cmd
}
