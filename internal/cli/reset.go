package cli

import (
	"github.com/spf13/cobra"
)

func newResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the portfolio to its initial state",
		Long: `Reset cash to the configured initial capital and clear holdings,
trade history, signals, equity history and the benchmark series.
Learning state is preserved; use reset-learning for that.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := openStore(app)
			if err != nil {
				return err
			}
			defer kv.Close()

			eng, err := buildEngine(cmd.Context(), app, kv, false)
			if err != nil {
				return err
			}
			if err := eng.Reset(cmd.Context()); err != nil {
				return err
			}

			output := NewOutput(cmd)
			output.Success("Portfolio reset to %s", FormatMoney(app.Config.Trading.InitialCapital))
			return nil
		},
	}
}

func newResetLearningCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-learning",
		Short: "Reset learned weights and parameters to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := openStore(app)
			if err != nil {
				return err
			}
			defer kv.Close()

			eng, err := buildEngine(cmd.Context(), app, kv, false)
			if err != nil {
				return err
			}
			if err := eng.ResetLearning(cmd.Context()); err != nil {
				return err
			}

			output := NewOutput(cmd)
			output.Success("Learning state reset to defaults")
			return nil
		},
	}
}
