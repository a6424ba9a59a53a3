package indicators

import (
	"adaptive-trader/internal/models"
)

// SMA calculates the simple moving average series. The output is aligned
// to the end of the input: output[i] covers values[i : i+period]. Output
// length is len(values)-period+1, or nil when the input is too short.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	result := make([]float64, 0, len(values)-period+1)
	windowSum := sum(values[:period])
	result = append(result, windowSum/float64(period))

	for i := period; i < len(values); i++ {
		windowSum += values[i] - values[i-period]
		result = append(result, windowSum/float64(period))
	}
	return result
}

// EMA calculates the exponential moving average series, seeded with the
// SMA of the first period values. Output length matches SMA.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	multiplier := 2.0 / float64(period+1)
	result := make([]float64, 0, len(values)-period+1)
	ema := mean(values[:period])
	result = append(result, ema)

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		result = append(result, ema)
	}
	return result
}

// MACDResult holds the latest MACD state. PrevHistogram is retained so
// callers can detect histogram slope.
type MACDResult struct {
	MACD          float64
	Signal        float64
	Histogram     float64
	PrevHistogram float64
}

// MACD computes the latest MACD line, signal line and histogram along
// with the previous histogram value. Needs one bar beyond the series
// minimum so a previous histogram exists.
func MACD(values []float64, fast, slow, signal int) (MACDResult, bool) {
	line, sig, hist := MACDSeries(values, fast, slow, signal)
	if len(hist) < 2 {
		return MACDResult{}, false
	}

	last := len(hist) - 1
	return MACDResult{
		MACD:          line[last],
		Signal:        sig[last],
		Histogram:     hist[last],
		PrevHistogram: hist[last-1],
	}, true
}

// MACDSeries returns the aligned MACD line, signal line and histogram
// series (all the same length, ending at the last bar).
func MACDSeries(values []float64, fast, slow, signal int) (macd, signalLine, histogram []float64) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(values) < slow+signal-1 {
		return nil, nil, nil
	}

	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	offset := len(fastEMA) - len(slowEMA)
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	sig := EMA(line, signal)
	macdOffset := len(line) - len(sig)
	macd = line[macdOffset:]
	hist := make([]float64, len(sig))
	for i := range sig {
		hist[i] = macd[i] - sig[i]
	}
	return macd, sig, hist
}

// ROC returns the percent change of the latest value versus the value
// period bars earlier.
func ROC(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period+1 {
		return 0, false
	}
	prev := values[len(values)-1-period]
	if prev == 0 {
		return 0, false
	}
	return (values[len(values)-1] - prev) / prev * 100, true
}

// ADX returns the latest Average Directional Index value using Wilder's
// directional movement method.
func ADX(candles []models.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period*2+1 {
		return 0, false
	}

	n := len(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)

	for i := 1; i < n; i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = trueRange(candles[i], candles[i-1])
	}

	smoothPlusDM := wilderSmooth(plusDM[1:], period)
	smoothMinusDM := wilderSmooth(minusDM[1:], period)
	smoothTR := wilderSmooth(tr[1:], period)

	dx := make([]float64, len(smoothTR))
	for i := period - 1; i < len(smoothTR); i++ {
		if smoothTR[i] == 0 {
			continue
		}
		plusDI := 100 * smoothPlusDM[i] / smoothTR[i]
		minusDI := 100 * smoothMinusDM[i] / smoothTR[i]
		if diSum := plusDI + minusDI; diSum != 0 {
			dx[i] = 100 * abs(plusDI-minusDI) / diSum
		}
	}

	adx := wilderSmooth(dx[period-1:], period)
	if adx == nil {
		return 0, false
	}
	return adx[len(adx)-1], true
}
