package engine

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"adaptive-trader/internal/logging"
	"adaptive-trader/internal/models"
	"adaptive-trader/internal/risk"
	"adaptive-trader/internal/store"
)

// Sell reasons recorded on trades.
const (
	ReasonTrailingStop  = "trailing_stop"
	ReasonMissingSignal = "missing_signal"
	ReasonStrongSell    = "strong_sell"
	ReasonSell          = "sell_signal"
	ReasonProfitTake    = "profit_take"
	ReasonRotation      = "rotation"
	ReasonDust          = "dust_cleanup"
	ReasonBuySignal     = "buy_signal"
)

// evaluateSells walks holdings in priority order: trailing stop first
// (bypassing hold/cooldown guards), then missing signal, strong sell,
// sell, and tiered profit taking.
func (e *Engine) evaluateSells(ctx context.Context, rk *risk.Engine, snapshots map[string]*models.SignalSnapshot, now time.Time, log zerolog.Logger) {
	for _, sym := range sortedHoldings(e.portfolio.Holdings) {
		h := e.portfolio.Holdings[sym]
		snap := snapshots[sym]

		if rk.TrailingStopHit(h.CurrentPrice, h.HighWaterMark, h.EntryATR) {
			e.executeSell(ctx, rk, h, h.Shares, ReasonTrailingStop, snap, now, log)
			continue
		}

		// Everything below respects the hold and cooldown guards.
		if !rk.PastMinHold(h) || rk.OnCooldown(e.cooldowns[sym], now) {
			continue
		}

		if snap == nil {
			e.executeSell(ctx, rk, h, h.Shares, ReasonMissingSignal, nil, now, log)
			continue
		}

		switch snap.Recommendation {
		case models.StrongSell:
			e.executeSell(ctx, rk, h, h.Shares, ReasonStrongSell, snap, now, log)
			continue
		case models.Sell:
			e.executeSell(ctx, rk, h, h.Shares, ReasonSell, snap, now, log)
			continue
		}

		if fraction := rk.ProfitFraction(h); fraction > 0 {
			shares := h.Shares * fraction
			if rk.PromoteToFullExit(h, fraction) {
				shares = h.Shares
			}
			e.executeSell(ctx, rk, h, shares, ReasonProfitTake, snap, now, log)
		}
	}
}

// evaluateRotation frees capital for strong buy candidates by selling
// the weakest-signal holdings, capped per cycle. Rotation triggers when
// position slots are exhausted or when remaining cash cannot fund a
// minimum-value position.
func (e *Engine) evaluateRotation(ctx context.Context, rk *risk.Engine, snapshots map[string]*models.SignalSnapshot, now time.Time, log zerolog.Logger) {
	slotsFull := len(e.portfolio.Holdings) >= rk.Config().MaxPositions
	cashExhausted := e.portfolio.Cash < rk.Config().MinTradeValue
	if !slotsFull && !cashExhausted {
		return
	}

	strongCandidates := 0
	for sym, snap := range snapshots {
		if _, held := e.portfolio.Holdings[sym]; held {
			continue
		}
		if snap.Recommendation == models.StrongBuy {
			strongCandidates++
		}
	}
	if strongCandidates == 0 {
		return
	}

	// Weakest first among holdings eligible for a guarded sell.
	type weighted struct {
		symbol   string
		combined float64
	}
	var eligible []weighted
	for _, sym := range sortedHoldings(e.portfolio.Holdings) {
		h := e.portfolio.Holdings[sym]
		snap := snapshots[sym]
		if snap == nil || !rk.PastMinHold(h) || rk.OnCooldown(e.cooldowns[sym], now) {
			continue
		}
		eligible = append(eligible, weighted{symbol: sym, combined: snap.Combined})
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].combined < eligible[j].combined })

	rotations := rk.Config().MaxRotationsPerCycle
	if rotations > strongCandidates {
		rotations = strongCandidates
	}
	for i := 0; i < len(eligible) && i < rotations; i++ {
		sym := eligible[i].symbol
		h := e.portfolio.Holdings[sym]
		e.executeSell(ctx, rk, h, h.Shares, ReasonRotation, snapshots[sym], now, log)
	}
}

// cleanupDust liquidates holdings whose value fell below the minimum
// trade value. Runs every cycle and bypasses hold/cooldown guards.
func (e *Engine) cleanupDust(ctx context.Context, rk *risk.Engine, snapshots map[string]*models.SignalSnapshot, now time.Time, log zerolog.Logger) {
	for _, sym := range sortedHoldings(e.portfolio.Holdings) {
		h := e.portfolio.Holdings[sym]
		if rk.IsDust(h) {
			e.executeSell(ctx, rk, h, h.Shares, ReasonDust, snapshots[sym], now, log)
		}
	}
}

// evaluateBuys sizes and submits orders for the best-scored candidates
// above the learned buy threshold, respecting cooldowns and position
// caps.
func (e *Engine) evaluateBuys(ctx context.Context, rk *risk.Engine, snapshots map[string]*models.SignalSnapshot, now time.Time, log zerolog.Logger) {
	threshold := e.adapter.Param("buy_threshold")

	var candidates []*models.SignalSnapshot
	for sym, snap := range snapshots {
		if _, held := e.portfolio.Holdings[sym]; held {
			continue
		}
		if snap.Combined <= threshold || snap.LastPrice <= 0 {
			continue
		}
		if rk.OnCooldown(e.cooldowns[sym], now) {
			continue
		}
		candidates = append(candidates, snap)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Combined != candidates[j].Combined {
			return candidates[i].Combined > candidates[j].Combined
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})

	opened := 0
	for _, snap := range candidates {
		if opened >= rk.Config().MaxNewPositionsPerCycle {
			break
		}
		if len(e.portfolio.Holdings) >= rk.Config().MaxPositions {
			break
		}
		if e.executeBuy(ctx, rk, snap, now, log) {
			opened++
		}
	}
}

// executeBuy sizes and submits one buy. Returns true when a position was
// opened. Rejections leave portfolio state untouched.
func (e *Engine) executeBuy(ctx context.Context, rk *risk.Engine, snap *models.SignalSnapshot, now time.Time, log zerolog.Logger) bool {
	e.portfolio.Recompute(now)
	shares := rk.PositionSize(e.portfolio.TotalValue, e.portfolio.Cash, snap.LastPrice, snap.ATR)
	if shares <= 0 {
		return false
	}

	result, err := e.broker.PlaceOrder(ctx, models.Order{
		Symbol:      snap.Symbol,
		Side:        models.OrderSideBuy,
		Type:        models.OrderTypeMarket,
		Quantity:    shares,
		TimeInForce: "day",
	})
	if err != nil {
		log.Warn().Err(err).Str("symbol", snap.Symbol).Msg("Buy rejected")
		return false
	}

	price := result.FilledPrice
	if price <= 0 {
		price = snap.LastPrice
	}
	qty := result.FilledQty
	if qty <= 0 {
		qty = shares
	}

	total := qty * price
	cost := rk.TransactionCost(total)
	e.portfolio.Cash -= total + cost

	e.portfolio.Holdings[snap.Symbol] = &models.Holding{
		Symbol:        snap.Symbol,
		Shares:        qty,
		AvgCost:       price,
		CurrentPrice:  price,
		HighWaterMark: price,
		EntryATR:      snap.ATR,
		EntryTime:     now,
		EntrySignals:  snap,
	}
	e.cooldowns[snap.Symbol] = now

	trade := models.Trade{
		ID:        e.tradeID(result.OrderID, now),
		Timestamp: now,
		Symbol:    snap.Symbol,
		Action:    models.OrderSideBuy,
		Shares:    qty,
		Price:     price,
		Total:     total,
		Reason:    ReasonBuySignal,
		Signals:   snap,
	}
	e.recordTrade(ctx, trade, log)
	logging.LogTrade(log, trade.Symbol, string(trade.Action), trade.Reason, trade.Shares, trade.Price)
	return true
}

// executeSell submits one sell and applies the fill to the portfolio.
// A rejected sell leaves state untouched; the position retries next
// cycle.
func (e *Engine) executeSell(ctx context.Context, rk *risk.Engine, h *models.Holding, shares float64, reason string, snap *models.SignalSnapshot, now time.Time, log zerolog.Logger) {
	if shares <= 0 {
		return
	}
	if shares > h.Shares {
		shares = h.Shares
	}

	result, err := e.broker.PlaceOrder(ctx, models.Order{
		Symbol:      h.Symbol,
		Side:        models.OrderSideSell,
		Type:        models.OrderTypeMarket,
		Quantity:    shares,
		TimeInForce: "day",
	})
	if err != nil {
		log.Warn().Err(err).Str("symbol", h.Symbol).Str("reason", reason).Msg("Sell rejected")
		return
	}

	price := result.FilledPrice
	if price <= 0 {
		price = h.CurrentPrice
	}
	qty := result.FilledQty
	if qty <= 0 {
		qty = shares
	}

	total := qty * price
	cost := rk.TransactionCost(total)
	e.portfolio.Cash += total - cost

	realized := (price - h.AvgCost) * qty
	realizedPc := 0.0
	if h.AvgCost > 0 {
		realizedPc = (price - h.AvgCost) / h.AvgCost * 100
	}

	trade := models.Trade{
		ID:             e.tradeID(result.OrderID, now),
		Timestamp:      now,
		Symbol:         h.Symbol,
		Action:         models.OrderSideSell,
		Shares:         qty,
		Price:          price,
		Total:          total,
		Reason:         reason,
		Signals:        snap,
		EntrySignals:   h.EntrySignals,
		RealizedGain:   realized,
		RealizedGainPc: realizedPc,
	}

	h.Shares -= qty
	if h.Shares <= 1e-9 {
		delete(e.portfolio.Holdings, h.Symbol)
	}
	e.cooldowns[h.Symbol] = now

	e.adapter.RecordClose(trade)
	e.recordTrade(ctx, trade, log)
	logging.LogTrade(log, trade.Symbol, string(trade.Action), trade.Reason, trade.Shares, trade.Price)
}

// recordTrade appends a trade to the capped ledger. Persistence failure
// is logged, never fatal mid-cycle.
func (e *Engine) recordTrade(ctx context.Context, trade models.Trade, log zerolog.Logger) {
	if err := store.AppendJSON(ctx, e.kv, store.KeyTrades, trade, store.TradeHistoryCap); err != nil {
		log.Error().Err(err).Str("symbol", trade.Symbol).Msg("Trade ledger append failed")
	}
}

func sortedHoldings(holdings map[string]*models.Holding) []string {
	symbols := make([]string, 0, len(holdings))
	for sym := range holdings {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
