package regime

import (
	"math"
	"testing"
	"time"

	"adaptive-trader/internal/models"
)

// risingSeries builds n daily candles climbing steadily, which produces
// a high ADX and SMA20 above SMA50.
func risingSeries(n int) []models.Candle {
	candles := make([]models.Candle, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := range candles {
		price *= 1.01
		candles[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price * 0.995,
			High:      price * 1.005,
			Low:       price * 0.99,
			Close:     price,
			Volume:    10000,
		}
	}
	return candles
}

// fallingSeries mirrors risingSeries downward.
func fallingSeries(n int) []models.Candle {
	candles := risingSeries(n)
	for i := range candles {
		j := len(candles) - 1 - i
		if i >= j {
			break
		}
		ci, cj := candles[i], candles[j]
		candles[i].Open, candles[i].High, candles[i].Low, candles[i].Close = cj.Open, cj.High, cj.Low, cj.Close
		candles[j].Open, candles[j].High, candles[j].Low, candles[j].Close = ci.Open, ci.High, ci.Low, ci.Close
	}
	return candles
}

// choppySeries oscillates around a level with no directional persistence.
func choppySeries(n int) []models.Candle {
	candles := make([]models.Candle, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		offset := 2 * math.Sin(float64(i)*2.1)
		price := 100 + offset
		candles[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price - 0.5,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    10000,
		}
	}
	return candles
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		daily  []models.Candle
		expect models.Regime
	}{
		{"too short", risingSeries(59), models.RegimeUnknown},
		{"empty", nil, models.RegimeUnknown},
		{"strong uptrend", risingSeries(90), models.RegimeTrendingUp},
		{"strong downtrend", fallingSeries(90), models.RegimeTrendingDown},
		{"range bound", choppySeries(90), models.RegimeRangeBound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.daily); got != tt.expect {
				t.Errorf("Classify() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestClassifyBoundary(t *testing.T) {
	// Exactly MinBars is enough to classify.
	if got := Classify(risingSeries(MinBars)); got == models.RegimeUnknown {
		t.Errorf("Classify(%d bars) = UNKNOWN, want a classification", MinBars)
	}
}
