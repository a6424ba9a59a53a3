package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"adaptive-trader/internal/config"
	apperrors "adaptive-trader/internal/errors"
	"adaptive-trader/internal/models"
)

// TwelveDataClient talks to the secondary data API: per-symbol OHLCV
// for asset classes the primary source does not carry (forex, futures)
// and the benchmark index series.
type TwelveDataClient struct {
	baseURL   string
	apiKey    string
	batchSize int
	delay     time.Duration
	client    *http.Client
	codec     TwelveDataCodec
	logger    zerolog.Logger
}

// NewTwelveDataClient creates a secondary-source client from configuration.
func NewTwelveDataClient(cfg config.DataConfig, creds config.Credentials, logger zerolog.Logger) *TwelveDataClient {
	return &TwelveDataClient{
		baseURL:   strings.TrimRight(cfg.TwelveDataBaseURL, "/"),
		apiKey:    creds.TwelveDataKey,
		batchSize: cfg.SecondaryBatch,
		delay:     cfg.SecondaryDelay,
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		logger:    logger.With().Str("source", "twelvedata").Logger(),
	}
}

type twelveDataValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

type twelveDataResponse struct {
	Values  []twelveDataValue `json:"values"`
	Status  string            `json:"status"`
	Message string            `json:"message"`
}

// GetSeries fetches an OHLCV series for one symbol. Interval follows the
// provider's convention ("5min", "1day"). The returned candles are
// oldest-first.
func (t *TwelveDataClient) GetSeries(ctx context.Context, asset Asset, interval string, outputsize int) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("symbol", t.codec.ToProvider(asset.Symbol, asset.Class))
	q.Set("interval", interval)
	q.Set("outputsize", strconv.Itoa(outputsize))
	q.Set("apikey", t.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/time_series?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, apperrors.NewDataError("twelvedata", asset.Symbol, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewDataError("twelvedata", asset.Symbol, "rate limited", apperrors.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return nil, apperrors.NewDataError("twelvedata", asset.Symbol,
			fmt.Sprintf("status %d: %s", resp.StatusCode, msg), nil)
	}

	var parsed twelveDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewDataError("twelvedata", asset.Symbol, "decode failed", err)
	}
	if parsed.Status != "" && parsed.Status != "ok" {
		return nil, apperrors.NewDataError("twelvedata", asset.Symbol, parsed.Message, apperrors.ErrNoData)
	}

	candles := make([]models.Candle, 0, len(parsed.Values))
	for _, v := range parsed.Values {
		c, err := parseValue(v)
		if err != nil {
			continue
		}
		candles = append(candles, c)
	}
	// Provider returns newest-first.
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp.Before(candles[j].Timestamp) })
	if len(candles) == 0 {
		return nil, apperrors.NewDataError("twelvedata", asset.Symbol, "empty series", apperrors.ErrNoData)
	}
	return candles, nil
}

func parseValue(v twelveDataValue) (models.Candle, error) {
	ts, err := parseDatetime(v.Datetime)
	if err != nil {
		return models.Candle{}, err
	}
	o, err1 := strconv.ParseFloat(v.Open, 64)
	h, err2 := strconv.ParseFloat(v.High, 64)
	l, err3 := strconv.ParseFloat(v.Low, 64)
	c, err4 := strconv.ParseFloat(v.Close, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return models.Candle{}, fmt.Errorf("malformed value")
	}
	vol, _ := strconv.ParseFloat(v.Volume, 64) // absent for forex
	return models.Candle{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: vol}, nil
}

func parseDatetime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable datetime %q", s)
}

// seriesResult carries one symbol's fetch outcome across the fan-in.
type seriesResult struct {
	symbol  string
	candles []models.Candle
	err     error
}

// GetSeriesMany fetches series for many assets in small parallel batches
// with a mandatory inter-batch delay. Per-symbol failures are logged and
// omitted from the result; they never abort the batch.
func (t *TwelveDataClient) GetSeriesMany(ctx context.Context, assets []Asset, interval string, outputsize int) map[string][]models.Candle {
	result := make(map[string][]models.Candle, len(assets))

	for start := 0; start < len(assets); start += t.batchSize {
		end := start + t.batchSize
		if end > len(assets) {
			end = len(assets)
		}
		batch := assets[start:end]

		results := make(chan seriesResult, len(batch))
		var wg sync.WaitGroup
		for _, asset := range batch {
			wg.Add(1)
			go func(a Asset) {
				defer wg.Done()
				candles, err := t.GetSeries(ctx, a, interval, outputsize)
				results <- seriesResult{symbol: a.Symbol, candles: candles, err: err}
			}(asset)
		}
		wg.Wait()
		close(results)

		for r := range results {
			if r.err != nil {
				t.logger.Warn().Err(r.err).Str("symbol", r.symbol).Msg("Series fetch failed")
				continue
			}
			result[r.symbol] = r.candles
		}

		if end < len(assets) {
			select {
			case <-ctx.Done():
				return result
			case <-time.After(t.delay):
			}
		}
	}
	return result
}

// GetBenchmark fetches the daily benchmark index series used for
// equity-curve comparison.
func (t *TwelveDataClient) GetBenchmark(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	return t.GetSeries(ctx, Asset{Symbol: symbol, Class: models.AssetEquity}, "1day", days)
}
