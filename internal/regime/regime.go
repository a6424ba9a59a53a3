// Package regime classifies market behaviour from daily OHLCV series.
package regime

import (
	"adaptive-trader/internal/indicators"
	"adaptive-trader/internal/models"
)

const (
	// MinBars is the minimum number of daily bars required to classify.
	MinBars = 60

	adxPeriod     = 14
	adxRangeLimit = 25
	smaFast       = 20
	smaSlow       = 50
)

// Classify returns the regime for a daily OHLCV series. Series shorter
// than MinBars classify as UNKNOWN. ADX at or below 25 means no trend
// strength, so the market is range-bound; otherwise the SMA20/SMA50
// relationship picks the trend direction.
func Classify(daily []models.Candle) models.Regime {
	if len(daily) < MinBars {
		return models.RegimeUnknown
	}

	adx, ok := indicators.ADX(daily, adxPeriod)
	if !ok {
		return models.RegimeUnknown
	}

	closes := indicators.Closes(daily)
	fast := indicators.SMA(closes, smaFast)
	slow := indicators.SMA(closes, smaSlow)
	if fast == nil || slow == nil {
		return models.RegimeUnknown
	}

	if adx <= adxRangeLimit {
		return models.RegimeRangeBound
	}
	if fast[len(fast)-1] > slow[len(slow)-1] {
		return models.RegimeTrendingUp
	}
	return models.RegimeTrendingDown
}
