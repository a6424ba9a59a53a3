package strategy

import (
	"adaptive-trader/internal/indicators"
	"adaptive-trader/internal/models"
)

// Weights splits blend weight between the trend and reversion families.
// Components always sum to 1.
type Weights struct {
	Trend     float64 `json:"trend"`
	Reversion float64 `json:"reversion"`
}

// WeightTable maps each regime to its family weights.
type WeightTable map[models.Regime]Weights

// DefaultWeights returns the built-in regime weight table: trending
// regimes favour trend 80/20, range-bound favours reversion 20/80,
// unknown splits evenly.
func DefaultWeights() WeightTable {
	return WeightTable{
		models.RegimeTrendingUp:   {Trend: 0.8, Reversion: 0.2},
		models.RegimeTrendingDown: {Trend: 0.8, Reversion: 0.2},
		models.RegimeRangeBound:   {Trend: 0.2, Reversion: 0.8},
		models.RegimeUnknown:      {Trend: 0.5, Reversion: 0.5},
	}
}

// Thresholds for mapping a combined score to a recommendation. Wide on
// purpose to suppress noise trading.
const (
	StrongThreshold = 0.55
	BuyThreshold    = 0.35
)

// GroupScore computes the confidence-weighted average score of a signal
// group. Returns 0 when total confidence is 0.
func GroupScore(signals []models.StrategySignal) float64 {
	var weighted, totalConf float64
	for _, s := range signals {
		weighted += s.Score * s.Confidence
		totalConf += s.Confidence
	}
	if totalConf == 0 {
		return 0
	}
	return weighted / totalConf
}

// Combine blends the four strategy signals into one combined score using
// the regime's family weights, then maps it to a recommendation.
func Combine(signals []models.StrategySignal, reg models.Regime, table WeightTable) (float64, models.Recommendation) {
	var trend, reversion []models.StrategySignal
	for _, s := range signals {
		if Family(s.Name) == FamilyTrend {
			trend = append(trend, s)
		} else {
			reversion = append(reversion, s)
		}
	}

	w, ok := table[reg]
	if !ok {
		w = Weights{Trend: 0.5, Reversion: 0.5}
	}

	combined := GroupScore(trend)*w.Trend + GroupScore(reversion)*w.Reversion
	combined = indicators.Clamp(combined, -1, 1)
	return combined, Recommend(combined)
}

// Recommend maps a combined score to a recommendation.
func Recommend(combined float64) models.Recommendation {
	switch {
	case combined > StrongThreshold:
		return models.StrongBuy
	case combined > BuyThreshold:
		return models.Buy
	case combined < -StrongThreshold:
		return models.StrongSell
	case combined < -BuyThreshold:
		return models.Sell
	default:
		return models.Hold
	}
}
