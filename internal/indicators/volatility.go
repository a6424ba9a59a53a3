package indicators

import (
	"adaptive-trader/internal/models"
)

// ATR returns the latest Average True Range: an SMA-seeded, Wilder-smoothed
// average of the true range.
func ATR(candles []models.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period+1 {
		return 0, false
	}

	tr := make([]float64, len(candles))
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		tr[i] = trueRange(candles[i], candles[i-1])
	}

	atr := mean(tr[1 : period+1])
	for i := period + 1; i < len(tr); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
	}
	return atr, true
}

// BollingerResult holds the latest Bollinger Band values. Width is the
// band spread normalized by the middle band, used to filter
// low-volatility regimes.
type BollingerResult struct {
	Upper  float64
	Middle float64
	Lower  float64
	Width  float64
}

// Bollinger returns the latest Bollinger Bands over the trailing window.
func Bollinger(values []float64, period int, stdDevMul float64) (BollingerResult, bool) {
	if period <= 0 || stdDevMul <= 0 || len(values) < period {
		return BollingerResult{}, false
	}

	window := values[len(values)-period:]
	middle := mean(window)
	sd := stdDev(window)

	result := BollingerResult{
		Upper:  middle + stdDevMul*sd,
		Middle: middle,
		Lower:  middle - stdDevMul*sd,
	}
	if middle != 0 {
		result.Width = (result.Upper - result.Lower) / middle
	}
	return result, true
}
