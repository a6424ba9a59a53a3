// Package models provides domain models for the trading engine.
package models

import (
	"time"
)

// AssetClass partitions the tradable universe by data-source capability.
type AssetClass string

const (
	AssetEquity AssetClass = "EQUITY"
	AssetCrypto AssetClass = "CRYPTO"
	AssetForex  AssetClass = "FOREX"
	AssetFuture AssetClass = "FUTURE"
)

// Is247 reports whether the asset class trades around the clock.
func (a AssetClass) Is247() bool {
	return a == AssetCrypto
}

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Regime is a coarse classification of current market behaviour.
type Regime string

const (
	RegimeTrendingUp   Regime = "TRENDING_UP"
	RegimeTrendingDown Regime = "TRENDING_DOWN"
	RegimeRangeBound   Regime = "RANGE_BOUND"
	RegimeUnknown      Regime = "UNKNOWN"
)

// Recommendation is the threshold-mapped action for a combined score.
type Recommendation string

const (
	StrongBuy  Recommendation = "STRONG_BUY"
	Buy        Recommendation = "BUY"
	Hold       Recommendation = "HOLD"
	Sell       Recommendation = "SELL"
	StrongSell Recommendation = "STRONG_SELL"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
}

// Quote represents the latest traded price for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Position represents a live position reported by the broker.
type Position struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"qty"`
	AveragePrice float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	MarketValue  float64 `json:"market_value"`
}

// Order represents an order submitted to the broker.
type Order struct {
	Symbol      string    `json:"symbol"`
	Side        OrderSide `json:"side"`
	Type        OrderType `json:"type"`
	Quantity    float64   `json:"qty"`
	TimeInForce string    `json:"time_in_force"`
}

// StrategySignal is the output of one strategy generator for one symbol.
// Score is clamped to [-1, 1], confidence to [0, 1]. Reason is diagnostic
// only and never consulted by decision logic.
type StrategySignal struct {
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// SignalSnapshot captures everything the engine knew about a symbol at
// decision time. One per symbol per cycle; the persisted signal map keeps
// only the latest snapshot per symbol.
type SignalSnapshot struct {
	Symbol         string           `json:"symbol"`
	Timestamp      time.Time        `json:"timestamp"`
	Signals        []StrategySignal `json:"signals"`
	Combined       float64          `json:"combined"`
	Recommendation Recommendation   `json:"recommendation"`
	Regime         Regime           `json:"regime"`
	LastPrice      float64          `json:"last_price"`
	ATR            float64          `json:"atr"`
}

// Holding is an open position owned by the portfolio state machine.
// Mutated every cycle: price refresh, BarsHeld increment, high-water mark.
type Holding struct {
	Symbol           string          `json:"symbol"`
	Shares           float64         `json:"shares"`
	AvgCost          float64         `json:"avg_cost"`
	CurrentPrice     float64         `json:"current_price"`
	MarketValue      float64         `json:"market_value"`
	UnrealizedGain   float64         `json:"unrealized_gain"`
	UnrealizedGainPc float64         `json:"unrealized_gain_pct"`
	HighWaterMark    float64         `json:"high_water_mark"`
	EntryATR         float64         `json:"entry_atr"`
	EntryTime        time.Time       `json:"entry_time"`
	BarsHeld         int             `json:"bars_held"`
	EntrySignals     *SignalSnapshot `json:"entry_signals,omitempty"`
}

// Trade is an immutable record of an executed buy or sell.
type Trade struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Symbol         string          `json:"symbol"`
	Action         OrderSide       `json:"action"`
	Shares         float64         `json:"shares"`
	Price          float64         `json:"price"`
	Total          float64         `json:"total"`
	Reason         string          `json:"reason"`
	Signals        *SignalSnapshot `json:"signals,omitempty"`
	EntrySignals   *SignalSnapshot `json:"entry_signals,omitempty"`
	RealizedGain   float64         `json:"realized_gain,omitempty"`
	RealizedGainPc float64         `json:"realized_gain_pct,omitempty"`
}

// Portfolio is the single mutable aggregate of cash and holdings.
type Portfolio struct {
	Cash           float64             `json:"cash"`
	Holdings       map[string]*Holding `json:"holdings"`
	TotalValue     float64             `json:"total_value"`
	InitialCapital float64             `json:"initial_capital"`
	LastUpdated    time.Time           `json:"last_updated"`
}

// NewPortfolio creates an empty portfolio with the given starting cash.
func NewPortfolio(initialCapital float64) *Portfolio {
	return &Portfolio{
		Cash:           initialCapital,
		Holdings:       make(map[string]*Holding),
		TotalValue:     initialCapital,
		InitialCapital: initialCapital,
		LastUpdated:    time.Now(),
	}
}

// Recompute refreshes TotalValue from cash plus current holding values.
func (p *Portfolio) Recompute(now time.Time) {
	total := p.Cash
	for _, h := range p.Holdings {
		h.MarketValue = h.Shares * h.CurrentPrice
		h.UnrealizedGain = h.MarketValue - h.Shares*h.AvgCost
		if h.AvgCost > 0 {
			h.UnrealizedGainPc = (h.CurrentPrice - h.AvgCost) / h.AvgCost * 100
		}
		total += h.MarketValue
	}
	p.TotalValue = total
	p.LastUpdated = now
}

// EquityPoint is one sample of the portfolio equity curve.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Cash      float64   `json:"cash"`
	Holdings  int       `json:"holdings"`
}
