// Package strategy provides the signal generators and the regime-weighted
// signal combiner.
package strategy

import (
	"adaptive-trader/internal/models"
)

// Strategy names. The combiner groups signals into families by name.
const (
	NameTrendMomentum  = "trend_momentum"
	NameMACDTrend      = "macd_trend"
	NameBollingerRSI   = "bollinger_rsi"
	NameVWAPReversion  = "vwap_reversion"
)

// Family identifiers.
const (
	FamilyTrend     = "trend"
	FamilyReversion = "reversion"
)

// Family returns the strategy family for a signal name.
func Family(name string) string {
	switch name {
	case NameTrendMomentum, NameMACDTrend:
		return FamilyTrend
	default:
		return FamilyReversion
	}
}

// Input carries the per-symbol series a generator scores.
type Input struct {
	Daily    []models.Candle
	Intraday []models.Candle
}

// Generator produces a StrategySignal from price/volume series. Signals
// are created fresh every cycle and never mutated afterwards.
type Generator interface {
	Name() string
	Generate(in Input) models.StrategySignal
}

// All returns the four production generators in evaluation order.
func All() []Generator {
	return []Generator{
		NewTrendMomentum(),
		NewMACDTrend(),
		NewBollingerRSI(),
		NewVWAPReversion(),
	}
}

// neutral builds a zero-score signal with the given diagnostic reason.
func neutral(name, reason string, confidence float64) models.StrategySignal {
	return models.StrategySignal{
		Name:       name,
		Score:      0,
		Confidence: confidence,
		Reason:     reason,
	}
}
