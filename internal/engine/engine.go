// Package engine owns the portfolio state machine and the decision
// cycle: sync positions, analyze the universe, update holdings, sell,
// rotate, clean up, buy, persist.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"adaptive-trader/internal/broker"
	"adaptive-trader/internal/config"
	"adaptive-trader/internal/learning"
	"adaptive-trader/internal/marketdata"
	"adaptive-trader/internal/models"
	"adaptive-trader/internal/risk"
	"adaptive-trader/internal/store"
	"adaptive-trader/internal/strategy"
)

// PriceUpdater is implemented by brokers that fill against a local price
// cache; the engine feeds it the last prices the signal pipeline saw.
type PriceUpdater interface {
	UpdatePrice(symbol string, price float64)
}

// BenchmarkSource fetches the daily benchmark series for equity-curve
// comparison.
type BenchmarkSource interface {
	GetBenchmark(ctx context.Context, symbol string, days int) ([]models.Candle, error)
}

// Engine drives decision cycles. All mutable state (portfolio, learning
// state, cooldown map) is owned by the engine and mutated only from
// RunCycle; cycles never overlap.
type Engine struct {
	cfg        *config.Config
	kv         store.KVStore
	broker     broker.Broker
	orch       *marketdata.Orchestrator
	benchmark  BenchmarkSource
	universe   []marketdata.Asset
	generators []strategy.Generator
	adapter    *learning.Adapter
	portfolio  *models.Portfolio
	cooldowns  map[string]time.Time
	logger     zerolog.Logger
	cycleSeq   int

	now func() time.Time
}

// New creates an engine and restores persisted state from the store.
func New(ctx context.Context, cfg *config.Config, kv store.KVStore, brk broker.Broker, orch *marketdata.Orchestrator, benchmark BenchmarkSource, universe []marketdata.Asset, logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		cfg:        cfg,
		kv:         kv,
		broker:     brk,
		orch:       orch,
		benchmark:  benchmark,
		universe:   universe,
		generators: strategy.All(),
		cooldowns:  make(map[string]time.Time),
		logger:     logger.With().Str("component", "engine").Logger(),
		now:        time.Now,
	}

	portfolio := models.NewPortfolio(cfg.Trading.InitialCapital)
	if _, err := store.GetJSON(ctx, kv, store.KeyPortfolio, portfolio); err != nil {
		return nil, err
	}
	if portfolio.Holdings == nil {
		portfolio.Holdings = make(map[string]*models.Holding)
	}
	e.portfolio = portfolio

	var cooldowns map[string]time.Time
	if ok, err := store.GetJSON(ctx, kv, store.KeyCooldowns, &cooldowns); err != nil {
		return nil, err
	} else if ok {
		e.cooldowns = cooldowns
	}

	var state learning.State
	if ok, err := store.GetJSON(ctx, kv, store.KeyLearningState, &state); err != nil {
		return nil, err
	} else if ok {
		e.adapter = learning.NewAdapter(cfg.Learning, &state, logger)
	} else {
		e.adapter = learning.NewAdapter(cfg.Learning, nil, logger)
	}

	return e, nil
}

// Portfolio exposes the current portfolio state.
func (e *Engine) Portfolio() *models.Portfolio {
	return e.portfolio
}

// Learning exposes the learning adapter.
func (e *Engine) Learning() *learning.Adapter {
	return e.adapter
}

// riskEngine builds the cycle's risk engine with learned parameter
// overrides applied.
func (e *Engine) riskEngine() *risk.Engine {
	rc := e.cfg.Risk
	rc.ATRStopMultiplier = e.adapter.Param("atr_stop_multiplier")
	rc.ATRProfit1Multiplier = e.adapter.Param("atr_profit1_multiplier")
	rc.ATRProfit2Multiplier = e.adapter.Param("atr_profit2_multiplier")
	return risk.NewEngine(rc)
}

// RunCycle executes one full decision cycle. Analysis failures for
// individual symbols degrade to missing signals; only context
// cancellation or persistence failure surfaces as an error.
func (e *Engine) RunCycle(ctx context.Context) error {
	now := e.now()
	e.cycleSeq++
	log := e.logger.With().Int("cycle", e.cycleSeq).Logger()
	log.Info().Time("at", now).Msg("Cycle start")

	rk := e.riskEngine()

	e.reconcile(ctx, log)

	universe := e.cycleUniverse(now)
	held := make(map[string]bool, len(e.portfolio.Holdings))
	for sym := range e.portfolio.Holdings {
		held[sym] = true
	}

	snapshots := make(map[string]*models.SignalSnapshot, len(universe))
	for _, chunk := range e.orch.Chunks(universe, held) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data := e.orch.FetchChunk(ctx, chunk)
		for sym, sd := range data {
			snap := e.analyze(sym, sd, now)
			snapshots[sym] = snap
			if pu, ok := e.broker.(PriceUpdater); ok && snap.LastPrice > 0 {
				pu.UpdatePrice(sym, snap.LastPrice)
			}
		}
		// Raw bars for the chunk are dropped here; only snapshots live on.
	}

	e.refreshHoldings(snapshots)

	e.evaluateSells(ctx, rk, snapshots, now, log)
	e.evaluateRotation(ctx, rk, snapshots, now, log)
	e.cleanupDust(ctx, rk, snapshots, now, log)
	e.evaluateBuys(ctx, rk, snapshots, now, log)

	e.portfolio.Recompute(now)

	log.Info().
		Float64("total_value", e.portfolio.TotalValue).
		Float64("cash", e.portfolio.Cash).
		Int("holdings", len(e.portfolio.Holdings)).
		Msg("Cycle complete")

	return e.persist(ctx, snapshots, now, log)
}

// reconcile aligns local holdings with the broker's live position list.
// Positions opened externally are adopted; holdings the broker no longer
// reports are dropped.
func (e *Engine) reconcile(ctx context.Context, log zerolog.Logger) {
	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Position reconciliation skipped")
		return
	}

	live := make(map[string]models.Position, len(positions))
	for _, p := range positions {
		live[p.Symbol] = p
	}

	for sym := range e.portfolio.Holdings {
		if _, ok := live[sym]; !ok {
			log.Warn().Str("symbol", sym).Msg("Holding missing at broker, dropping")
			delete(e.portfolio.Holdings, sym)
		}
	}
	for sym, pos := range live {
		if _, ok := e.portfolio.Holdings[sym]; ok {
			continue
		}
		log.Info().Str("symbol", sym).Float64("qty", pos.Quantity).Msg("Adopting external position")
		e.portfolio.Holdings[sym] = &models.Holding{
			Symbol:        sym,
			Shares:        pos.Quantity,
			AvgCost:       pos.AveragePrice,
			CurrentPrice:  pos.CurrentPrice,
			HighWaterMark: pos.CurrentPrice,
			EntryTime:     e.now(),
		}
	}
}

// refreshHoldings applies this cycle's prices to every holding: price,
// high-water mark and the bars-held counter.
func (e *Engine) refreshHoldings(snapshots map[string]*models.SignalSnapshot) {
	for sym, h := range e.portfolio.Holdings {
		h.BarsHeld++
		snap, ok := snapshots[sym]
		if !ok || snap.LastPrice <= 0 {
			continue
		}
		h.CurrentPrice = snap.LastPrice
		if snap.LastPrice > h.HighWaterMark {
			h.HighWaterMark = snap.LastPrice
		}
	}
}

// tradeID builds a unique trade identifier, preferring the broker's
// order id.
func (e *Engine) tradeID(orderID string, now time.Time) string {
	if orderID != "" {
		return orderID
	}
	return fmt.Sprintf("T%d", now.UnixNano())
}
