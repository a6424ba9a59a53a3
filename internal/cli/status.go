package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"adaptive-trader/internal/learning"
	"adaptive-trader/internal/models"
	"adaptive-trader/internal/store"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show portfolio, signals and learning status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kv, err := openStore(app)
			if err != nil {
				return err
			}
			defer kv.Close()

			portfolio := models.NewPortfolio(app.Config.Trading.InitialCapital)
			if _, err := store.GetJSON(ctx, kv, store.KeyPortfolio, portfolio); err != nil {
				return err
			}

			var lastRun time.Time
			hasRun, err := store.GetJSON(ctx, kv, store.KeyLastRun, &lastRun)
			if err != nil {
				return err
			}

			signals := make(map[string]*models.SignalSnapshot)
			if _, err := store.GetJSON(ctx, kv, store.KeySignals, &signals); err != nil {
				return err
			}

			var state learning.State
			hasLearning, err := store.GetJSON(ctx, kv, store.KeyLearningState, &state)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"portfolio": portfolio,
					"last_run":  lastRun,
					"signals":   signals,
					"learning":  state,
				})
			}

			printPortfolio(output, portfolio, hasRun, lastRun)
			printHoldings(output, portfolio)
			printSignals(output, signals)
			if hasLearning {
				printLearning(output, &state)
			}
			return nil
		},
	}
}

func printPortfolio(output *Output, p *models.Portfolio, hasRun bool, lastRun time.Time) {
	output.Println(output.Bold("Portfolio"))
	output.Printf("  Total value:  %s\n", FormatMoney(p.TotalValue))
	output.Printf("  Cash:         %s\n", FormatMoney(p.Cash))
	gain := p.TotalValue - p.InitialCapital
	gainPc := 0.0
	if p.InitialCapital > 0 {
		gainPc = gain / p.InitialCapital * 100
	}
	output.Printf("  Return:       %s (%s)\n", output.FormatPnL(gain), output.FormatPercent(gainPc))
	if hasRun {
		output.Printf("  Last cycle:   %s\n", lastRun.Format(time.RFC3339))
	} else {
		output.Dim("  No cycles run yet")
	}
	output.Println()
}

func printHoldings(output *Output, p *models.Portfolio) {
	if len(p.Holdings) == 0 {
		output.Dim("No open holdings")
		output.Println()
		return
	}

	output.Println(output.Bold("Holdings"))
	table := NewTable(output, "SYMBOL", "SHARES", "AVG COST", "PRICE", "VALUE", "P&L")
	for _, sym := range sortedKeys(p.Holdings) {
		h := p.Holdings[sym]
		table.AddRow(
			sym,
			fmt.Sprintf("%.4f", h.Shares),
			FormatMoney(h.AvgCost),
			FormatMoney(h.CurrentPrice),
			FormatMoney(h.MarketValue),
			output.FormatPercent(h.UnrealizedGainPc),
		)
	}
	table.Render()
	output.Println()
}

func printSignals(output *Output, signals map[string]*models.SignalSnapshot) {
	if len(signals) == 0 {
		return
	}

	output.Println(output.Bold("Latest signals"))
	table := NewTable(output, "SYMBOL", "REGIME", "COMBINED", "ACTION")
	for _, sym := range sortedKeys(signals) {
		snap := signals[sym]
		table.AddRow(
			sym,
			string(snap.Regime),
			fmt.Sprintf("%+.3f", snap.Combined),
			output.Recommendation(string(snap.Recommendation)),
		)
	}
	table.Render()
	output.Println()
}

func printLearning(output *Output, state *learning.State) {
	output.Println(output.Bold("Learning"))
	if state.WarmupComplete {
		output.Printf("  Warmup complete (%d trades analyzed)\n", state.TotalTradesAnalyzed)
	} else {
		output.Printf("  Warming up: %d trades analyzed\n", state.TotalTradesAnalyzed)
	}
	for _, reg := range []models.Regime{models.RegimeTrendingUp, models.RegimeTrendingDown, models.RegimeRangeBound, models.RegimeUnknown} {
		if w, ok := state.RegimeWeights[reg]; ok {
			output.Printf("  %-14s trend %.2f / reversion %.2f\n", reg, w.Trend, w.Reversion)
		}
	}
	for _, spec := range learning.Registry() {
		if v, ok := state.Params[spec.Name]; ok {
			output.Printf("  %-24s %.2f\n", spec.Name, v)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
