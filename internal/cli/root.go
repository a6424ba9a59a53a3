// Package cli provides the command-line interface for the trading engine.
package cli

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"adaptive-trader/internal/broker"
	"adaptive-trader/internal/config"
	"adaptive-trader/internal/engine"
	"adaptive-trader/internal/logging"
	"adaptive-trader/internal/marketdata"
	"adaptive-trader/internal/models"
	"adaptive-trader/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies shared by commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Adaptive Trader - regime-adaptive self-tuning paper trading engine",
		Long: `Adaptive Trader is an autonomous paper trading engine.

It classifies the market regime per symbol, blends trend and reversion
strategy signals with regime-specific weights, sizes positions from ATR
risk, and tunes its own weights and parameters from closed-trade
outcomes.

Use 'trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/adaptive-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))
	rootCmd.AddCommand(newResetCmd(app))
	rootCmd.AddCommand(newResetLearningCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Adaptive Trader v%s\n", Version)
			}
		},
	}
}

// openStore opens the SQLite-backed KV store under the effective config
// directory, so --config relocates state alongside configuration.
func openStore(app *App) (store.KVStore, error) {
	dir := app.Config.Dir
	if dir == "" {
		dir = config.DefaultConfigDir()
	}
	return store.NewSQLiteStore(filepath.Join(dir, "trader.db"))
}

// buildEngine wires the full engine. withData controls whether the live
// data sources are constructed; maintenance commands (reset, status)
// work without credentials and always get the local paper broker.
func buildEngine(ctx context.Context, app *App, kv store.KVStore, withData bool) (*engine.Engine, error) {
	var exec broker.Broker
	var paper *broker.PaperBroker
	var orch *marketdata.Orchestrator
	var benchmark engine.BenchmarkSource

	if withData {
		if err := app.Config.RequireCredentials(); err != nil {
			return nil, err
		}
		primary := marketdata.NewAlpacaClient(app.Config.Data, app.Config.Credentials, app.Logger)
		secondary := marketdata.NewTwelveDataClient(app.Config.Data, app.Config.Credentials, app.Logger)
		orch = marketdata.NewOrchestrator(primary, secondary, app.Config.Trading.ChunkSize, app.Logger)
		benchmark = secondary
		if app.Config.Trading.ExecutionBroker == config.BrokerAlpaca {
			exec = primary
		}
	}
	if exec == nil {
		paper = broker.NewPaperBroker(app.Config.Trading.InitialCapital)
		exec = paper
	}

	eng, err := engine.New(ctx, app.Config, kv, exec, orch, benchmark, marketdata.DefaultUniverse(), app.Logger)
	if err != nil {
		return nil, err
	}

	// Resume the local simulation from the persisted portfolio. The
	// Alpaca paper account carries its own positions and needs no seed;
	// the engine reconciles against it at cycle start.
	if paper != nil {
		portfolio := eng.Portfolio()
		positions := make([]models.Position, 0, len(portfolio.Holdings))
		for _, h := range portfolio.Holdings {
			positions = append(positions, models.Position{
				Symbol:       h.Symbol,
				Quantity:     h.Shares,
				AveragePrice: h.AvgCost,
				CurrentPrice: h.CurrentPrice,
				MarketValue:  h.Shares * h.CurrentPrice,
			})
		}
		paper.Restore(portfolio.Cash, positions)
	}

	return eng, nil
}
