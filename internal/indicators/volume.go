package indicators

import (
	"adaptive-trader/internal/models"
)

// VWAPResult holds the windowed VWAP and the Z-score of the latest close
// against it.
type VWAPResult struct {
	VWAP   float64
	ZScore float64
}

// VWAPZScore computes the volume-weighted average price over at most the
// last window candles and the Z-score of the current close versus it,
// using the standard deviation of typical-price deviations from the VWAP.
func VWAPZScore(candles []models.Candle, window int) (VWAPResult, bool) {
	if window <= 0 || len(candles) == 0 {
		return VWAPResult{}, false
	}
	if len(candles) > window {
		candles = candles[len(candles)-window:]
	}

	var cumTPV, cumVol float64
	for _, c := range candles {
		tp := typicalPrice(c)
		cumTPV += tp * c.Volume
		cumVol += c.Volume
	}
	if cumVol == 0 {
		return VWAPResult{}, false
	}
	vwap := cumTPV / cumVol

	devs := make([]float64, len(candles))
	for i, c := range candles {
		devs[i] = typicalPrice(c) - vwap
	}
	sd := stdDev(devs)
	if sd == 0 {
		return VWAPResult{VWAP: vwap}, true
	}

	last := candles[len(candles)-1].Close
	return VWAPResult{
		VWAP:   vwap,
		ZScore: (last - vwap) / sd,
	}, true
}
