package learning

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"adaptive-trader/internal/config"
	"adaptive-trader/internal/models"
	"adaptive-trader/internal/strategy"
)

func testAdapter() *Adapter {
	return NewAdapter(config.Default().Learning, nil, zerolog.Nop())
}

// closedTrade builds a SELL trade with an entry snapshot dominated by
// the given family.
func closedTrade(reg models.Regime, trendDominant, win bool, at time.Time) models.Trade {
	trendScore, revScore := 0.8, 0.1
	if !trendDominant {
		trendScore, revScore = 0.1, 0.8
	}
	gain := 5.0
	if !win {
		gain = -5.0
	}
	return models.Trade{
		Timestamp:      at,
		Symbol:         "TEST",
		Action:         models.OrderSideSell,
		Shares:         1,
		Price:          100,
		RealizedGainPc: gain,
		EntrySignals: &models.SignalSnapshot{
			Regime: reg,
			Signals: []models.StrategySignal{
				{Name: strategy.NameTrendMomentum, Score: trendScore, Confidence: 0.7},
				{Name: strategy.NameBollingerRSI, Score: revScore, Confidence: 0.7},
			},
		},
	}
}

func TestProperty_WeightFloorNeverViolated(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("regime weights stay within [floor, 1-floor] after any trade stream", prop.ForAll(
		func(outcomes []bool) bool {
			a := testAdapter()
			at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			for i, win := range outcomes {
				trendDominant := i%3 != 0
				a.RecordClose(closedTrade(models.RegimeTrendingUp, trendDominant, win, at))
				at = at.Add(time.Hour)
			}

			floor := a.cfg.WeightFloor
			for _, w := range a.state.RegimeWeights {
				if w.Trend < floor-1e-9 || w.Trend > 1-floor+1e-9 {
					return false
				}
				if w.Reversion < floor-1e-9 || w.Reversion > 1-floor+1e-9 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(120, gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestProperty_TunerRespectsBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("tuned parameters stay within their registry bounds", prop.ForAll(
		func(outcomes []bool) bool {
			a := testAdapter()
			at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			for i, win := range outcomes {
				a.RecordClose(closedTrade(models.RegimeRangeBound, i%2 == 0, win, at))
				at = at.Add(time.Hour)
			}

			for _, spec := range Registry() {
				v := a.Param(spec.Name)
				if v < spec.Min-1e-9 || v > spec.Max+1e-9 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(400, gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestWarmupGatesAdaptation(t *testing.T) {
	a := testAdapter()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// Below the warmup count, weights stay at defaults.
	for i := 0; i < a.cfg.WarmupTrades-1; i++ {
		a.RecordClose(closedTrade(models.RegimeTrendingUp, true, true, at))
		at = at.Add(time.Hour)
	}
	if a.state.WarmupComplete {
		t.Fatal("warmup completed early")
	}
	defaults := strategy.DefaultWeights()
	got := a.Weights()
	for reg, w := range defaults {
		if got[reg] != w {
			t.Errorf("pre-warmup weights for %v = %v, want default %v", reg, got[reg], w)
		}
	}

	a.RecordClose(closedTrade(models.RegimeTrendingUp, true, true, at))
	if !a.state.WarmupComplete {
		t.Fatal("warmup did not complete at the configured trade count")
	}
}

func TestWeightsShiftTowardWinningFamily(t *testing.T) {
	a := testAdapter()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// Warmup with mixed outcomes, then trend-dominant wins and
	// reversion-dominant losses in the same regime.
	for i := 0; i < a.cfg.WarmupTrades; i++ {
		a.RecordClose(closedTrade(models.RegimeTrendingUp, i%2 == 0, i%2 == 0, at))
		at = at.Add(time.Hour)
	}
	before := a.state.RegimeWeights[models.RegimeTrendingUp].Trend

	for i := 0; i < 40; i++ {
		a.RecordClose(closedTrade(models.RegimeTrendingUp, true, true, at))
		a.RecordClose(closedTrade(models.RegimeTrendingUp, false, false, at.Add(time.Minute)))
		at = at.Add(time.Hour)
	}

	after := a.state.RegimeWeights[models.RegimeTrendingUp].Trend
	if after <= before {
		t.Errorf("trend weight did not grow toward the winning family: before %v, after %v", before, after)
	}
}

func TestTunerMovesParameterAfterTuneWindow(t *testing.T) {
	a := testAdapter()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	startValues := make(map[string]float64)
	for _, spec := range Registry() {
		startValues[spec.Name] = a.Param(spec.Name)
	}

	// Warmup, then enough trades to trigger two tune steps. The newer
	// half wins more, so the first nudge keeps the default +1 direction.
	for i := 0; i < a.cfg.WarmupTrades; i++ {
		a.RecordClose(closedTrade(models.RegimeTrendingUp, true, i%3 == 0, at))
		at = at.Add(time.Hour)
	}
	for i := 0; i < a.cfg.TuneEveryTrades; i++ {
		a.RecordClose(closedTrade(models.RegimeTrendingUp, true, true, at))
		at = at.Add(time.Hour)
	}

	moved := false
	for _, spec := range Registry() {
		if a.Param(spec.Name) != startValues[spec.Name] {
			moved = true
		}
	}
	if !moved {
		t.Error("no parameter moved after a full tune window")
	}
	if len(a.state.ParamHistory) == 0 {
		t.Error("parameter history not recorded")
	}

	// The first tuned parameter moved in the increasing direction since
	// the newer half outperformed the older half.
	first := a.state.ParamHistory[0]
	if first.Direction != 1 {
		t.Errorf("first tune direction = %v, want +1 with improving win rate", first.Direction)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	a := testAdapter()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		a.RecordClose(closedTrade(models.RegimeRangeBound, i%2 == 0, i%3 == 0, at))
		at = at.Add(time.Hour)
	}

	a.Reset()
	fresh := DefaultState()

	if a.state.TotalTradesAnalyzed != 0 || a.state.WarmupComplete {
		t.Error("reset did not clear trade counters")
	}
	for _, spec := range Registry() {
		if a.Param(spec.Name) != spec.Default {
			t.Errorf("param %s = %v after reset, want default %v", spec.Name, a.Param(spec.Name), spec.Default)
		}
	}
	for reg, w := range fresh.RegimeWeights {
		if a.state.RegimeWeights[reg] != w {
			t.Errorf("weights for %v = %v after reset, want %v", reg, a.state.RegimeWeights[reg], w)
		}
	}

	// Resetting twice is idempotent.
	a.Reset()
	if a.state.TotalTradesAnalyzed != 0 {
		t.Error("second reset changed state")
	}
}

func TestMigrateFillsMissingFields(t *testing.T) {
	partial := &State{Version: 1}
	migrated := Migrate(partial)

	if migrated.Version != StateVersion {
		t.Errorf("version = %d, want %d", migrated.Version, StateVersion)
	}
	if migrated.RegimeWeights == nil || migrated.Params == nil || migrated.ParamDirection == nil {
		t.Error("migrate left nil maps")
	}
	for _, spec := range Registry() {
		if _, ok := migrated.Params[spec.Name]; !ok {
			t.Errorf("migrate missed param %s", spec.Name)
		}
	}

	if got := Migrate(nil); got == nil || got.Params == nil {
		t.Error("migrate of nil state must return defaults")
	}
}
