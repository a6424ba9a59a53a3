// Package risk provides ATR-based position sizing, trailing stops,
// tiered profit taking and trade guards.
package risk

import (
	"time"

	"adaptive-trader/internal/config"
	"adaptive-trader/internal/models"
)

// Engine applies the configured risk rules. It holds no mutable state;
// the cycle orchestrator owns cooldowns and holdings.
type Engine struct {
	cfg config.RiskConfig
}

// NewEngine creates a risk engine from configuration.
func NewEngine(cfg config.RiskConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's risk configuration.
func (e *Engine) Config() config.RiskConfig {
	return e.cfg
}

// PositionSize returns the number of shares (fractional) to buy.
// Risk-based sizing: risk 1% of portfolio value against a stop placed
// atr_stop_multiplier ATRs away, capped at max_position_size of the
// portfolio and at available cash including the entry transaction cost.
// Falls back to a flat max-position allocation when ATR is unavailable.
func (e *Engine) PositionSize(portfolioValue, availableCash, price, atr float64) float64 {
	if price <= 0 || portfolioValue <= 0 || availableCash <= 0 {
		return 0
	}

	maxShares := portfolioValue * e.cfg.MaxPositionSize / price

	var shares float64
	if atr > 0 {
		riskAmount := portfolioValue * e.cfg.RiskPerTrade
		stopDistance := e.cfg.ATRStopMultiplier * atr
		shares = riskAmount / stopDistance
		if shares > maxShares {
			shares = maxShares
		}
	} else {
		shares = maxShares
	}

	// Never exceed available cash, cost included.
	cashCap := availableCash / (price * (1 + e.cfg.TransactionCost))
	if shares > cashCap {
		shares = cashCap
	}
	if shares*price < e.cfg.MinTradeValue {
		return 0
	}
	return shares
}

// StopPrice returns the trailing-stop trigger price for a holding.
func (e *Engine) StopPrice(highWaterMark, entryATR float64) float64 {
	return highWaterMark - e.cfg.ATRStopMultiplier*entryATR
}

// TrailingStopHit reports whether the trailing stop has fired. A price
// exactly at the trigger does not fire; one tick below does. Returns
// false when the entry ATR is unknown.
func (e *Engine) TrailingStopHit(currentPrice, highWaterMark, entryATR float64) bool {
	if entryATR <= 0 {
		return false
	}
	return currentPrice < e.StopPrice(highWaterMark, entryATR)
}

// ProfitFraction returns the fraction of a holding to sell for tiered
// profit taking: 50% past the second ATR tier, 25% past the first, 0
// otherwise.
func (e *Engine) ProfitFraction(h *models.Holding) float64 {
	if h.EntryATR <= 0 {
		return 0
	}
	gainPerShare := h.CurrentPrice - h.AvgCost
	switch {
	case gainPerShare >= e.cfg.ATRProfit2Multiplier*h.EntryATR:
		return 0.5
	case gainPerShare >= e.cfg.ATRProfit1Multiplier*h.EntryATR:
		return 0.25
	default:
		return 0
	}
}

// PromoteToFullExit reports whether a partial sell should become a full
// exit because the remainder would fall below the minimum trade value.
func (e *Engine) PromoteToFullExit(h *models.Holding, sellFraction float64) bool {
	remaining := h.Shares * (1 - sellFraction) * h.CurrentPrice
	return remaining < e.cfg.MinTradeValue
}

// PastMinHold reports whether the holding has been held long enough for
// a non-stop sell.
func (e *Engine) PastMinHold(h *models.Holding) bool {
	return h.BarsHeld >= e.cfg.MinHoldBars
}

// OnCooldown reports whether a symbol traded too recently to trade again.
func (e *Engine) OnCooldown(lastTradeAt, now time.Time) bool {
	if lastTradeAt.IsZero() {
		return false
	}
	return now.Sub(lastTradeAt) < e.cfg.Cooldown
}

// IsDust reports whether a holding's market value has fallen below the
// minimum trade value and should be liquidated.
func (e *Engine) IsDust(h *models.Holding) bool {
	return h.Shares*h.CurrentPrice < e.cfg.MinTradeValue
}

// TransactionCost returns the proportional cost for a trade of the given
// gross value.
func (e *Engine) TransactionCost(total float64) float64 {
	return total * e.cfg.TransactionCost
}
