package strategy

import (
	"fmt"
	"strings"

	"adaptive-trader/internal/indicators"
	"adaptive-trader/internal/models"
)

// TrendMomentum scores SMA alignment, rate of change, proximity to the
// 50-bar range and SMA slope on daily closes.
type TrendMomentum struct {
	shortPeriod int
	midPeriod   int
	longPeriod  int
}

// NewTrendMomentum creates the trend momentum generator with default
// 10/20/50 SMA periods.
func NewTrendMomentum() *TrendMomentum {
	return &TrendMomentum{shortPeriod: 10, midPeriod: 20, longPeriod: 50}
}

func (t *TrendMomentum) Name() string {
	return NameTrendMomentum
}

func (t *TrendMomentum) Generate(in Input) models.StrategySignal {
	const confidence = 0.70

	if len(in.Daily) < t.longPeriod || len(in.Intraday) < 20 {
		return neutral(t.Name(), "insufficient data", 0.1)
	}

	closes := indicators.Closes(in.Daily)
	price := closes[len(closes)-1]

	smaShort := indicators.SMA(closes, t.shortPeriod)
	smaMid := indicators.SMA(closes, t.midPeriod)
	smaLong := indicators.SMA(closes, t.longPeriod)

	var score float64
	var reasons []string

	// SMA alignment: full stack worth 0.40, partial stack 0.15.
	s, m, l := last(smaShort), last(smaMid), last(smaLong)
	switch {
	case price > s && s > m && m > l:
		score += 0.40
		reasons = append(reasons, "bullish SMA alignment")
	case price < s && s < m && m < l:
		score -= 0.40
		reasons = append(reasons, "bearish SMA alignment")
	case s > m:
		score += 0.15
		reasons = append(reasons, "short SMA above mid")
	case s < m:
		score -= 0.15
		reasons = append(reasons, "short SMA below mid")
	}

	// 20-bar rate of change, tiered by magnitude.
	if roc, ok := indicators.ROC(closes, 20); ok {
		tier := 0.0
		switch {
		case roc > 10:
			tier = 0.30
		case roc > 5:
			tier = 0.20
		case roc > 2:
			tier = 0.10
		case roc < -10:
			tier = -0.30
		case roc < -5:
			tier = -0.20
		case roc < -2:
			tier = -0.10
		}
		if tier != 0 {
			score += tier
			reasons = append(reasons, fmt.Sprintf("20-bar ROC %.1f%%", roc))
		}
	}

	// Proximity to the 50-bar high/low.
	high, low := rangeExtremes(closes[len(closes)-t.longPeriod:])
	if high > 0 && price >= high*0.98 {
		score += 0.20
		reasons = append(reasons, "near 50-bar high")
	} else if low > 0 && price <= low*1.02 {
		score -= 0.20
		reasons = append(reasons, "near 50-bar low")
	}

	// 20-bar SMA slope over the last 5 bars.
	if len(smaMid) >= 6 {
		prev := smaMid[len(smaMid)-6]
		if prev > 0 {
			slope := (m - prev) / prev
			if slope > 0.005 {
				score += 0.10
				reasons = append(reasons, "rising 20-bar SMA")
			} else if slope < -0.005 {
				score -= 0.10
				reasons = append(reasons, "falling 20-bar SMA")
			}
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "no trend edge")
	}
	return models.StrategySignal{
		Name:       t.Name(),
		Score:      indicators.Clamp(score, -1, 1),
		Confidence: confidence,
		Reason:     strings.Join(reasons, "; "),
	}
}

// MACDTrend scores histogram sign, histogram slope and MACD-vs-signal
// position on intraday closes.
type MACDTrend struct {
	fast   int
	slow   int
	signal int
}

// NewMACDTrend creates the MACD trend generator with default 12/26/9 periods.
func NewMACDTrend() *MACDTrend {
	return &MACDTrend{fast: 12, slow: 26, signal: 9}
}

func (m *MACDTrend) Name() string {
	return NameMACDTrend
}

func (m *MACDTrend) Generate(in Input) models.StrategySignal {
	const confidence = 0.60

	if len(in.Intraday) < 40 {
		return neutral(m.Name(), "insufficient data", 0.1)
	}

	closes := indicators.Closes(in.Intraday)
	macd, ok := indicators.MACD(closes, m.fast, m.slow, m.signal)
	if !ok {
		return neutral(m.Name(), "insufficient data", 0.1)
	}

	var score float64
	var reasons []string

	if macd.Histogram > 0 {
		score += 0.30
		reasons = append(reasons, "positive histogram")
	} else if macd.Histogram < 0 {
		score -= 0.30
		reasons = append(reasons, "negative histogram")
	}

	// Histogram slope: accelerating with the trend is full credit,
	// decelerating against it earns partial credit.
	rising := macd.Histogram > macd.PrevHistogram
	switch {
	case rising && macd.Histogram > 0:
		score += 0.25
		reasons = append(reasons, "histogram accelerating up")
	case rising && macd.Histogram <= 0:
		score += 0.10
		reasons = append(reasons, "negative histogram fading")
	case !rising && macd.Histogram < 0:
		score -= 0.25
		reasons = append(reasons, "histogram accelerating down")
	case !rising && macd.Histogram >= 0:
		score -= 0.10
		reasons = append(reasons, "positive histogram fading")
	}

	if macd.MACD > macd.Signal {
		score += 0.20
		reasons = append(reasons, "MACD above signal")
	} else if macd.MACD < macd.Signal {
		score -= 0.20
		reasons = append(reasons, "MACD below signal")
	}

	return models.StrategySignal{
		Name:       m.Name(),
		Score:      indicators.Clamp(score, -1, 1),
		Confidence: confidence,
		Reason:     strings.Join(reasons, "; "),
	}
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func rangeExtremes(values []float64) (high, low float64) {
	if len(values) == 0 {
		return 0, 0
	}
	high, low = values[0], values[0]
	for _, v := range values[1:] {
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
	}
	return high, low
}
