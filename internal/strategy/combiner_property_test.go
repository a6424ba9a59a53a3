package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"adaptive-trader/internal/models"
)

func signalGen(name string) gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-1, 1),
		gen.Float64Range(0, 1),
	).Map(func(vs []interface{}) models.StrategySignal {
		return models.StrategySignal{
			Name:       name,
			Score:      vs[0].(float64),
			Confidence: vs[1].(float64),
		}
	})
}

func signalSetGen() gopter.Gen {
	return gopter.CombineGens(
		signalGen(NameTrendMomentum),
		signalGen(NameMACDTrend),
		signalGen(NameBollingerRSI),
		signalGen(NameVWAPReversion),
	).Map(func(vs []interface{}) []models.StrategySignal {
		out := make([]models.StrategySignal, len(vs))
		for i, v := range vs {
			out[i] = v.(models.StrategySignal)
		}
		return out
	})
}

func regimeGen() gopter.Gen {
	return gen.OneConstOf(
		models.RegimeTrendingUp,
		models.RegimeTrendingDown,
		models.RegimeRangeBound,
		models.RegimeUnknown,
	)
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	for reg, w := range DefaultWeights() {
		if math.Abs(w.Trend+w.Reversion-1) > 1e-9 {
			t.Errorf("weights for %v sum to %v, want 1", reg, w.Trend+w.Reversion)
		}
	}
}

func TestProperty_CombinedWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("combined score stays within [-1, 1]", prop.ForAll(
		func(signals []models.StrategySignal, reg models.Regime) bool {
			combined, _ := Combine(signals, reg, DefaultWeights())
			return combined >= -1 && combined <= 1
		},
		signalSetGen(),
		regimeGen(),
	))

	properties.TestingRun(t)
}

func TestRecommendThresholds(t *testing.T) {
	tests := []struct {
		combined float64
		expect   models.Recommendation
	}{
		{0.56, models.StrongBuy},
		{0.55, models.Buy}, // exactly at the strong threshold is not strong
		{0.36, models.Buy},
		{0.35, models.Hold},
		{0.0, models.Hold},
		{-0.35, models.Hold},
		{-0.36, models.Sell},
		{-0.55, models.Sell},
		{-0.56, models.StrongSell},
	}

	for _, tt := range tests {
		if got := Recommend(tt.combined); got != tt.expect {
			t.Errorf("Recommend(%v) = %v, want %v", tt.combined, got, tt.expect)
		}
	}
}

func TestCombineUsesRegimeWeights(t *testing.T) {
	signals := []models.StrategySignal{
		{Name: NameTrendMomentum, Score: 1, Confidence: 1},
		{Name: NameMACDTrend, Score: 1, Confidence: 1},
		{Name: NameBollingerRSI, Score: -1, Confidence: 1},
		{Name: NameVWAPReversion, Score: -1, Confidence: 1},
	}

	trending, _ := Combine(signals, models.RegimeTrendingUp, DefaultWeights())
	ranging, _ := Combine(signals, models.RegimeRangeBound, DefaultWeights())

	if math.Abs(trending-0.6) > 1e-9 {
		t.Errorf("trending combined = %v, want 0.6", trending)
	}
	if math.Abs(ranging-(-0.6)) > 1e-9 {
		t.Errorf("range-bound combined = %v, want -0.6", ranging)
	}
}

func TestGroupScoreZeroConfidence(t *testing.T) {
	signals := []models.StrategySignal{
		{Name: NameTrendMomentum, Score: 1, Confidence: 0},
	}
	if got := GroupScore(signals); got != 0 {
		t.Errorf("GroupScore with zero confidence = %v, want 0", got)
	}
}
