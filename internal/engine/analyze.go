package engine

import (
	"time"

	"adaptive-trader/internal/indicators"
	"adaptive-trader/internal/marketdata"
	"adaptive-trader/internal/models"
	"adaptive-trader/internal/regime"
	"adaptive-trader/internal/strategy"
)

const atrPeriod = 14

// analyze runs the full signal pipeline for one symbol: regime from
// daily bars, all four generators, and the regime-weighted blend.
func (e *Engine) analyze(symbol string, sd *marketdata.SymbolData, now time.Time) *models.SignalSnapshot {
	reg := regime.Classify(sd.Daily)

	in := strategy.Input{Daily: sd.Daily, Intraday: sd.Intraday}
	signals := make([]models.StrategySignal, 0, len(e.generators))
	for _, gen := range e.generators {
		signals = append(signals, gen.Generate(in))
	}

	combined, rec := strategy.Combine(signals, reg, e.adapter.Weights())

	atr, _ := indicators.ATR(sd.Daily, atrPeriod)

	return &models.SignalSnapshot{
		Symbol:         symbol,
		Timestamp:      now,
		Signals:        signals,
		Combined:       combined,
		Recommendation: rec,
		Regime:         reg,
		LastPrice:      lastPrice(sd),
		ATR:            atr,
	}
}

// lastPrice prefers the freshest intraday close, falling back to daily.
func lastPrice(sd *marketdata.SymbolData) float64 {
	if n := len(sd.Intraday); n > 0 {
		return sd.Intraday[n-1].Close
	}
	if n := len(sd.Daily); n > 0 {
		return sd.Daily[n-1].Close
	}
	return 0
}

// cycleUniverse builds this cycle's asset list: 24/7 classes always,
// calendar-bound classes only on trading days, held symbols always.
func (e *Engine) cycleUniverse(now time.Time) []marketdata.Asset {
	classes := make(map[string]models.AssetClass, len(e.universe))
	for _, a := range e.universe {
		classes[a.Symbol] = a.Class
	}

	tradingDay := isTradingDay(now)
	included := make(map[string]bool, len(e.universe))
	out := make([]marketdata.Asset, 0, len(e.universe))
	for _, a := range e.universe {
		if a.Class.Is247() || tradingDay {
			out = append(out, a)
			included[a.Symbol] = true
		}
	}

	for sym := range e.portfolio.Holdings {
		if included[sym] {
			continue
		}
		class, ok := classes[sym]
		if !ok {
			class = models.AssetEquity
		}
		out = append(out, marketdata.Asset{Symbol: sym, Class: class})
	}
	return out
}

// isTradingDay reports whether calendar-bound asset classes trade today.
func isTradingDay(now time.Time) bool {
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}
