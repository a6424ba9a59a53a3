package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"adaptive-trader/internal/models"
	"adaptive-trader/internal/store"
)

// persist writes cycle results to the store. Each failure is logged and
// collected; the in-memory state remains authoritative for the rest of
// the cycle, but the caller must see that persistence is degraded.
func (e *Engine) persist(ctx context.Context, snapshots map[string]*models.SignalSnapshot, now time.Time, log zerolog.Logger) error {
	var errs []error
	fail := func(key string, err error) {
		log.Error().Err(err).Str("key", key).Msg("Persist failed")
		errs = append(errs, err)
	}

	if err := store.SetJSON(ctx, e.kv, store.KeyPortfolio, e.portfolio); err != nil {
		fail(store.KeyPortfolio, err)
	}

	// The signal map keeps the latest snapshot per symbol across cycles.
	merged := make(map[string]*models.SignalSnapshot)
	if _, err := store.GetJSON(ctx, e.kv, store.KeySignals, &merged); err != nil {
		log.Warn().Err(err).Msg("Signal map load failed, rewriting")
		merged = make(map[string]*models.SignalSnapshot)
	}
	for sym, snap := range snapshots {
		merged[sym] = snap
	}
	if err := store.SetJSON(ctx, e.kv, store.KeySignals, merged); err != nil {
		fail(store.KeySignals, err)
	}

	if err := store.SetJSON(ctx, e.kv, store.KeyLastRun, now); err != nil {
		fail(store.KeyLastRun, err)
	}

	point := models.EquityPoint{
		Timestamp: now,
		Value:     e.portfolio.TotalValue,
		Cash:      e.portfolio.Cash,
		Holdings:  len(e.portfolio.Holdings),
	}
	if err := store.AppendJSON(ctx, e.kv, store.KeyEquityHistory, point, store.EquityHistoryCap); err != nil {
		fail(store.KeyEquityHistory, err)
	}

	if err := store.SetJSON(ctx, e.kv, store.KeyLearningState, e.adapter.State()); err != nil {
		fail(store.KeyLearningState, err)
	}

	if err := store.SetJSON(ctx, e.kv, store.KeyCooldowns, e.cooldowns); err != nil {
		fail(store.KeyCooldowns, err)
	}

	e.persistBenchmark(ctx, log)

	return errors.Join(errs...)
}

// persistBenchmark refreshes the stored benchmark series. Benchmark data
// is advisory; failures never degrade the cycle result.
func (e *Engine) persistBenchmark(ctx context.Context, log zerolog.Logger) {
	if e.benchmark == nil {
		return
	}
	series, err := e.benchmark.GetBenchmark(ctx, e.cfg.Trading.Benchmark, 120)
	if err != nil {
		log.Warn().Err(err).Str("symbol", e.cfg.Trading.Benchmark).Msg("Benchmark fetch failed")
		return
	}
	if err := store.SetJSON(ctx, e.kv, store.KeyBenchmark, series); err != nil {
		log.Warn().Err(err).Msg("Benchmark persist failed")
	}
}

// Reset restores the portfolio to a fresh state and clears trade,
// signal, equity and benchmark history. Safe to call repeatedly.
func (e *Engine) Reset(ctx context.Context) error {
	e.portfolio = models.NewPortfolio(e.cfg.Trading.InitialCapital)
	e.cooldowns = make(map[string]time.Time)

	type resettable interface{ Reset(initialCash float64) }
	if r, ok := e.broker.(resettable); ok {
		r.Reset(e.cfg.Trading.InitialCapital)
	}

	var errs []error
	for _, key := range []string{store.KeyPortfolio, store.KeySignals, store.KeyLastRun, store.KeyBenchmark, store.KeyCooldowns} {
		if err := e.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	for _, key := range []string{store.KeyTrades, store.KeyEquityHistory} {
		if err := e.kv.ListClear(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}

	e.logger.Info().Float64("initial_capital", e.cfg.Trading.InitialCapital).Msg("Portfolio reset")
	return errors.Join(errs...)
}

// ResetLearning restores the learning state to defaults without touching
// the portfolio. Safe to call repeatedly.
func (e *Engine) ResetLearning(ctx context.Context) error {
	e.adapter.Reset()
	if err := store.SetJSON(ctx, e.kv, store.KeyLearningState, e.adapter.State()); err != nil {
		return err
	}
	e.logger.Info().Msg("Learning state reset")
	return nil
}
