package strategy

import (
	"fmt"
	"strings"

	"adaptive-trader/internal/indicators"
	"adaptive-trader/internal/models"
)

// BollingerRSI scores mean-reversion setups from Bollinger Band position
// confirmed by RSI on intraday closes.
type BollingerRSI struct {
	bbPeriod  int
	bbStdDev  float64
	rsiPeriod int
	minWidth  float64
}

// NewBollingerRSI creates the Bollinger+RSI reversion generator.
func NewBollingerRSI() *BollingerRSI {
	return &BollingerRSI{bbPeriod: 20, bbStdDev: 2.0, rsiPeriod: 14, minWidth: 0.01}
}

func (b *BollingerRSI) Name() string {
	return NameBollingerRSI
}

func (b *BollingerRSI) Generate(in Input) models.StrategySignal {
	const confidence = 0.70

	if len(in.Intraday) < 25 {
		return neutral(b.Name(), "insufficient data", 0.1)
	}

	closes := indicators.Closes(in.Intraday)
	price := closes[len(closes)-1]

	bands, ok := indicators.Bollinger(closes, b.bbPeriod, b.bbStdDev)
	if !ok {
		return neutral(b.Name(), "insufficient data", 0.1)
	}
	if bands.Width < b.minWidth {
		return neutral(b.Name(), "no reversion edge: bands too narrow", 0.2)
	}

	rsi, hasRSI := indicators.RSI(closes, b.rsiPeriod)

	var score float64
	var reasons []string

	switch {
	case price < bands.Lower:
		score += 0.50
		reasons = append(reasons, "price below lower band")
		if hasRSI {
			if rsi < 30 {
				score += 0.30
				reasons = append(reasons, fmt.Sprintf("RSI oversold %.0f", rsi))
			} else if rsi < 40 {
				score += 0.15
				reasons = append(reasons, fmt.Sprintf("RSI weak %.0f", rsi))
			}
		}
	case price > bands.Upper:
		score -= 0.50
		reasons = append(reasons, "price above upper band")
		if hasRSI {
			if rsi > 70 {
				score -= 0.30
				reasons = append(reasons, fmt.Sprintf("RSI overbought %.0f", rsi))
			} else if rsi > 60 {
				score -= 0.15
				reasons = append(reasons, fmt.Sprintf("RSI strong %.0f", rsi))
			}
		}
	default:
		// Inside the bands: score the band position near the extremes.
		if spread := bands.Upper - bands.Lower; spread > 0 {
			position := (price - bands.Lower) / spread
			if position < 0.2 {
				score += 0.20
				reasons = append(reasons, "near lower band")
			} else if position > 0.8 {
				score -= 0.20
				reasons = append(reasons, "near upper band")
			}
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "mid-band, no edge")
	}
	return models.StrategySignal{
		Name:       b.Name(),
		Score:      indicators.Clamp(score, -1, 1),
		Confidence: confidence,
		Reason:     strings.Join(reasons, "; "),
	}
}

// VWAPReversion scores the Z-score of the current close versus the
// windowed VWAP. The only generator whose confidence scales continuously
// with signal strength.
type VWAPReversion struct {
	window  int
	minBars int
}

// NewVWAPReversion creates the VWAP reversion generator using up to the
// most recent 78 intraday bars (one session of 5-minute bars).
func NewVWAPReversion() *VWAPReversion {
	return &VWAPReversion{window: 78, minBars: 12}
}

func (v *VWAPReversion) Name() string {
	return NameVWAPReversion
}

func (v *VWAPReversion) Generate(in Input) models.StrategySignal {
	if len(in.Intraday) < v.minBars {
		return neutral(v.Name(), "insufficient data", 0.1)
	}

	result, ok := indicators.VWAPZScore(in.Intraday, v.window)
	if !ok {
		return neutral(v.Name(), "no volume data", 0.1)
	}

	z := result.ZScore
	absZ := z
	if absZ < 0 {
		absZ = -absZ
	}

	// Stretched price reverts toward VWAP: positive Z scores negatively.
	var score, confidence float64
	switch {
	case absZ > 2:
		score = 0.8
		confidence = minF(0.8, 0.6+0.1*(absZ-2))
	case absZ > 1:
		score = 0.4 + 0.2*(absZ-1)
		confidence = 0.5 + 0.1*(absZ-1)
	case absZ > 0.5:
		score = 0.2
		confidence = 0.4
	default:
		score = 0
		confidence = 0.3
	}
	if z > 0 {
		score = -score
	}

	return models.StrategySignal{
		Name:       v.Name(),
		Score:      indicators.Clamp(score, -1, 1),
		Confidence: indicators.Clamp(confidence, 0.3, 0.8),
		Reason:     fmt.Sprintf("Z-score %.2f vs VWAP %.2f", z, result.VWAP),
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
