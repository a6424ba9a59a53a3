package marketdata

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"adaptive-trader/internal/models"
)

// Lookback depths. Daily covers regime classification (60 bars minimum)
// and the long SMA; intraday covers the deepest strategy window.
const (
	DailyBars    = 120
	IntradayBars = 200
)

// PrimarySource is the batched multi-symbol bar source (equities, crypto).
type PrimarySource interface {
	GetBarsMulti(ctx context.Context, symbols []string, class models.AssetClass, timeframe string, limit int) (map[string][]models.Candle, error)
}

// SecondarySource is the per-symbol series source for asset classes the
// primary does not carry (forex, futures).
type SecondarySource interface {
	GetSeriesMany(ctx context.Context, assets []Asset, interval string, outputsize int) map[string][]models.Candle
}

// SymbolData holds the bar series fetched for one symbol in one chunk.
// The engine extracts signals, last price and ATR from it, then the
// whole chunk is dropped before the next one is fetched.
type SymbolData struct {
	Asset    Asset
	Daily    []models.Candle
	Intraday []models.Candle
}

// Orchestrator fetches bar data for the universe in bounded chunks,
// routing each asset class to the source that supports it.
type Orchestrator struct {
	primary   PrimarySource
	secondary SecondarySource
	chunkSize int
	logger    zerolog.Logger
}

// NewOrchestrator creates a batch orchestrator over the two sources.
func NewOrchestrator(primary PrimarySource, secondary SecondarySource, chunkSize int, logger zerolog.Logger) *Orchestrator {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &Orchestrator{
		primary:   primary,
		secondary: secondary,
		chunkSize: chunkSize,
		logger:    logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Chunks splits the universe into fixed-size analysis chunks. Held
// symbols come first so sell decisions never wait on a later chunk.
func (o *Orchestrator) Chunks(universe []Asset, held map[string]bool) [][]Asset {
	ordered := make([]Asset, 0, len(universe))
	rest := make([]Asset, 0, len(universe))
	for _, a := range universe {
		if held[a.Symbol] {
			ordered = append(ordered, a)
		} else {
			rest = append(rest, a)
		}
	}
	ordered = append(ordered, rest...)

	var chunks [][]Asset
	for start := 0; start < len(ordered); start += o.chunkSize {
		end := start + o.chunkSize
		if end > len(ordered) {
			end = len(ordered)
		}
		chunks = append(chunks, ordered[start:end])
	}
	return chunks
}

// FetchChunk fetches daily and intraday bars for every asset in the
// chunk. Symbols whose fetch failed are simply absent from the result;
// the caller treats them as having no signal this cycle.
func (o *Orchestrator) FetchChunk(ctx context.Context, chunk []Asset) map[string]*SymbolData {
	byClass := make(map[models.AssetClass][]Asset)
	for _, a := range chunk {
		byClass[a.Class] = append(byClass[a.Class], a)
	}

	data := make(map[string]*SymbolData, len(chunk))
	var mu sync.Mutex
	var wg sync.WaitGroup

	merge := func(assets []Asset, daily, intraday map[string][]models.Candle) {
		mu.Lock()
		defer mu.Unlock()
		for _, a := range assets {
			d, i := daily[a.Symbol], intraday[a.Symbol]
			if len(d) == 0 && len(i) == 0 {
				continue
			}
			data[a.Symbol] = &SymbolData{Asset: a, Daily: d, Intraday: i}
		}
	}

	for _, class := range []models.AssetClass{models.AssetEquity, models.AssetCrypto} {
		assets := byClass[class]
		if len(assets) == 0 {
			continue
		}
		wg.Add(1)
		go func(class models.AssetClass, assets []Asset) {
			defer wg.Done()
			symbols := make([]string, len(assets))
			for i, a := range assets {
				symbols[i] = a.Symbol
			}
			daily, err := o.primary.GetBarsMulti(ctx, symbols, class, "1Day", DailyBars)
			if err != nil {
				o.logger.Warn().Err(err).Str("class", string(class)).Msg("Daily fetch failed")
			}
			intraday, err := o.primary.GetBarsMulti(ctx, symbols, class, "5Min", IntradayBars)
			if err != nil {
				o.logger.Warn().Err(err).Str("class", string(class)).Msg("Intraday fetch failed")
			}
			merge(assets, daily, intraday)
		}(class, assets)
	}

	secondaryAssets := append(byClass[models.AssetForex], byClass[models.AssetFuture]...)
	if len(secondaryAssets) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			daily := o.secondary.GetSeriesMany(ctx, secondaryAssets, "1day", DailyBars)
			intraday := o.secondary.GetSeriesMany(ctx, secondaryAssets, "5min", IntradayBars)
			merge(secondaryAssets, daily, intraday)
		}()
	}

	wg.Wait()

	o.logger.Debug().
		Int("requested", len(chunk)).
		Int("fetched", len(data)).
		Msg("Chunk fetched")
	return data
}
