// Package learning adapts strategy weights and tunable parameters from
// closed-trade outcomes.
package learning

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"adaptive-trader/internal/config"
	"adaptive-trader/internal/models"
	"adaptive-trader/internal/strategy"
)

// StateVersion is bumped whenever the persisted shape changes. Migrate
// fills anything older states are missing.
const StateVersion = 2

// TradeRecord attributes one closed trade to the signals that opened it.
type TradeRecord struct {
	Timestamp      time.Time     `json:"timestamp"`
	Symbol         string        `json:"symbol"`
	Regime         models.Regime `json:"regime"`
	Win            bool          `json:"win"`
	GainPc         float64       `json:"gain_pct"`
	TrendScore     float64       `json:"trend_score"`
	ReversionScore float64       `json:"reversion_score"`
	Dominant       string        `json:"dominant"`
}

// WeightEvent logs one weight adaptation for diagnostics.
type WeightEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Regime    models.Regime    `json:"regime"`
	Weights   strategy.Weights `json:"weights"`
}

// ParamEvent logs one parameter nudge.
type ParamEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Direction float64   `json:"direction"`
}

// State is the persisted learning state. It survives restarts and is
// mutated only by the adapter, only on SELL trades.
type State struct {
	Version             int                              `json:"version"`
	RegimeWeights       map[models.Regime]strategy.Weights `json:"regime_weights"`
	Params              map[string]float64               `json:"params"`
	ClosedTrades        []TradeRecord                    `json:"closed_trades"`
	TotalTradesAnalyzed int                              `json:"total_trades_analyzed"`
	WarmupComplete      bool                             `json:"warmup_complete"`
	LastTuneAt          int                              `json:"last_tune_at"`
	TuneIndex           int                              `json:"tune_index"`
	ParamDirection      map[string]float64               `json:"param_direction"`
	WeightHistory       []WeightEvent                    `json:"weight_history"`
	ParamHistory        []ParamEvent                     `json:"param_history"`
}

// ParamSpec declares one tunable parameter with its bounds and step.
type ParamSpec struct {
	Name    string
	Min     float64
	Max     float64
	Step    float64
	Default float64
}

// Registry returns the fixed tunable-parameter registry. The tuner only
// ever moves values one step at a time within these bounds.
func Registry() []ParamSpec {
	return []ParamSpec{
		{Name: "atr_stop_multiplier", Min: 1.5, Max: 3.5, Step: 0.25, Default: 2.0},
		{Name: "atr_profit1_multiplier", Min: 2.0, Max: 4.0, Step: 0.5, Default: 3.0},
		{Name: "atr_profit2_multiplier", Min: 4.0, Max: 7.0, Step: 0.5, Default: 5.0},
		{Name: "buy_threshold", Min: 0.25, Max: 0.50, Step: 0.05, Default: 0.35},
	}
}

// DefaultState returns a fresh state with default weights and parameters.
func DefaultState() *State {
	params := make(map[string]float64)
	for _, spec := range Registry() {
		params[spec.Name] = spec.Default
	}
	return &State{
		Version:        StateVersion,
		RegimeWeights:  defaultWeightMap(),
		Params:         params,
		ParamDirection: make(map[string]float64),
	}
}

func defaultWeightMap() map[models.Regime]strategy.Weights {
	m := make(map[models.Regime]strategy.Weights)
	for reg, w := range strategy.DefaultWeights() {
		m[reg] = w
	}
	return m
}

// Migrate fills gaps in a state loaded from persistence so older or
// partial shapes merge cleanly with current defaults. Runs once at load.
func Migrate(s *State) *State {
	if s == nil {
		return DefaultState()
	}
	if s.RegimeWeights == nil {
		s.RegimeWeights = defaultWeightMap()
	} else {
		for reg, w := range defaultWeightMap() {
			if _, ok := s.RegimeWeights[reg]; !ok {
				s.RegimeWeights[reg] = w
			}
		}
	}
	if s.Params == nil {
		s.Params = make(map[string]float64)
	}
	for _, spec := range Registry() {
		if _, ok := s.Params[spec.Name]; !ok {
			s.Params[spec.Name] = spec.Default
		}
	}
	if s.ParamDirection == nil {
		s.ParamDirection = make(map[string]float64)
	}
	s.Version = StateVersion
	return s
}

// Adapter is the self-learning adapter. Not safe for concurrent use; it
// is owned by the single cycle orchestrator.
type Adapter struct {
	cfg    config.LearningConfig
	state  *State
	logger zerolog.Logger
}

// NewAdapter creates an adapter around a (possibly migrated) state.
func NewAdapter(cfg config.LearningConfig, state *State, logger zerolog.Logger) *Adapter {
	return &Adapter{cfg: cfg, state: Migrate(state), logger: logger}
}

// State exposes the current learning state for persistence.
func (a *Adapter) State() *State {
	return a.state
}

// Reset restores all defaults, discarding learned weights, parameters
// and the closed-trade window.
func (a *Adapter) Reset() {
	a.state = DefaultState()
}

// Weights returns the weight table the combiner should use: learned
// weights once warmup completes, built-in defaults before that.
func (a *Adapter) Weights() strategy.WeightTable {
	if !a.state.WarmupComplete {
		return strategy.DefaultWeights()
	}
	table := make(strategy.WeightTable, len(a.state.RegimeWeights))
	for reg, w := range a.state.RegimeWeights {
		table[reg] = w
	}
	return table
}

// Param returns the current value of a tunable parameter, falling back
// to its registry default.
func (a *Adapter) Param(name string) float64 {
	if v, ok := a.state.Params[name]; ok {
		return v
	}
	for _, spec := range Registry() {
		if spec.Name == name {
			return spec.Default
		}
	}
	return 0
}

// RecordClose consumes a SELL trade, attributes the outcome to the
// entry-time signals, and runs weight adaptation and parameter tuning
// once warmup is complete. Trades without an entry snapshot are counted
// but cannot be attributed.
func (a *Adapter) RecordClose(trade models.Trade) {
	if trade.Action != models.OrderSideSell || trade.EntrySignals == nil {
		return
	}

	rec := attribute(trade)
	a.state.ClosedTrades = append(a.state.ClosedTrades, rec)
	if len(a.state.ClosedTrades) > a.cfg.WindowSize {
		a.state.ClosedTrades = a.state.ClosedTrades[len(a.state.ClosedTrades)-a.cfg.WindowSize:]
	}
	a.state.TotalTradesAnalyzed++

	if !a.state.WarmupComplete {
		if a.state.TotalTradesAnalyzed >= a.cfg.WarmupTrades {
			a.state.WarmupComplete = true
			a.state.LastTuneAt = a.state.TotalTradesAnalyzed
			a.logger.Info().Int("trades", a.state.TotalTradesAnalyzed).Msg("Learning warmup complete")
		}
		return
	}

	a.adaptWeights(rec.Regime)

	if a.state.TotalTradesAnalyzed-a.state.LastTuneAt >= a.cfg.TuneEveryTrades {
		a.tuneParameter()
		a.state.LastTuneAt = a.state.TotalTradesAnalyzed
	}
}

// attribute derives the attribution record from a closed trade's entry
// snapshot.
func attribute(trade models.Trade) TradeRecord {
	entry := trade.EntrySignals

	var trendSum, revSum float64
	var trendSignals, revSignals []models.StrategySignal
	for _, s := range entry.Signals {
		if strategy.Family(s.Name) == strategy.FamilyTrend {
			trendSum += s.Score
			trendSignals = append(trendSignals, s)
		} else {
			revSum += s.Score
			revSignals = append(revSignals, s)
		}
	}

	dominant := strategy.FamilyTrend
	if math.Abs(revSum) > math.Abs(trendSum) {
		dominant = strategy.FamilyReversion
	}

	return TradeRecord{
		Timestamp:      trade.Timestamp,
		Symbol:         trade.Symbol,
		Regime:         entry.Regime,
		Win:            trade.RealizedGainPc > 0,
		GainPc:         trade.RealizedGainPc,
		TrendScore:     strategy.GroupScore(trendSignals),
		ReversionScore: strategy.GroupScore(revSignals),
		Dominant:       dominant,
	}
}

// adaptWeights recomputes the EMA-blended family weights for one regime
// from group win rates in the rolling window.
func (a *Adapter) adaptWeights(reg models.Regime) {
	var trendWins, trendTotal, revWins, revTotal int
	for _, rec := range a.state.ClosedTrades {
		if rec.Regime != reg {
			continue
		}
		if rec.Dominant == strategy.FamilyTrend {
			trendTotal++
			if rec.Win {
				trendWins++
			}
		} else {
			revTotal++
			if rec.Win {
				revWins++
			}
		}
	}

	if trendTotal < a.cfg.MinSamples && revTotal < a.cfg.MinSamples {
		return
	}

	trendWR := winRate(trendWins, trendTotal)
	revWR := winRate(revWins, revTotal)

	// Target weights proportional to win rates, floored so neither
	// family is ever fully silenced.
	targetTrend := 0.5
	if total := trendWR + revWR; total > 0 {
		targetTrend = trendWR / total
	}
	targetTrend = clampWeight(targetTrend, a.cfg.WeightFloor)

	current, ok := a.state.RegimeWeights[reg]
	if !ok {
		current = strategy.Weights{Trend: 0.5, Reversion: 0.5}
	}

	blended := (1-a.cfg.Smoothing)*current.Trend + a.cfg.Smoothing*targetTrend
	blended = clampWeight(blended, a.cfg.WeightFloor)

	updated := strategy.Weights{Trend: blended, Reversion: 1 - blended}
	a.state.RegimeWeights[reg] = updated
	a.state.WeightHistory = appendBounded(a.state.WeightHistory, WeightEvent{
		Timestamp: time.Now(),
		Regime:    reg,
		Weights:   updated,
	}, historyCap)

	a.logger.Debug().
		Str("regime", string(reg)).
		Float64("trend", updated.Trend).
		Float64("reversion", updated.Reversion).
		Msg("Regime weights adapted")
}

// tuneParameter hill-climbs one parameter from the registry: compare win
// rates of the older and newer halves of the rolling window and nudge
// the next parameter one step, reversing direction when performance
// degraded since its last nudge.
func (a *Adapter) tuneParameter() {
	n := len(a.state.ClosedTrades)
	if n < 4 {
		return
	}

	half := n / 2
	olderWR := windowWinRate(a.state.ClosedTrades[:half])
	newerWR := windowWinRate(a.state.ClosedTrades[half:])

	registry := Registry()
	spec := registry[a.state.TuneIndex%len(registry)]
	a.state.TuneIndex++

	direction, ok := a.state.ParamDirection[spec.Name]
	if !ok || direction == 0 {
		direction = 1
	}
	if newerWR < olderWR {
		direction = -direction
	}

	value := a.Param(spec.Name) + direction*spec.Step
	// Round to the step grid to avoid float drift across many nudges.
	value = math.Round(value/spec.Step) * spec.Step
	if value < spec.Min {
		value = spec.Min
	}
	if value > spec.Max {
		value = spec.Max
	}

	a.state.Params[spec.Name] = value
	a.state.ParamDirection[spec.Name] = direction
	a.state.ParamHistory = appendBounded(a.state.ParamHistory, ParamEvent{
		Timestamp: time.Now(),
		Name:      spec.Name,
		Value:     value,
		Direction: direction,
	}, historyCap)

	a.logger.Info().
		Str("param", spec.Name).
		Float64("value", value).
		Float64("direction", direction).
		Float64("older_win_rate", olderWR).
		Float64("newer_win_rate", newerWR).
		Msg("Parameter tuned")
}

const historyCap = 100

func winRate(wins, total int) float64 {
	if total == 0 {
		return 0.5
	}
	return float64(wins) / float64(total)
}

func windowWinRate(records []TradeRecord) float64 {
	if len(records) == 0 {
		return 0.5
	}
	wins := 0
	for _, r := range records {
		if r.Win {
			wins++
		}
	}
	return float64(wins) / float64(len(records))
}

func clampWeight(w, floor float64) float64 {
	if w < floor {
		return floor
	}
	if w > 1-floor {
		return 1 - floor
	}
	return w
}

func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}
