package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"adaptive-trader/internal/broker"
	"adaptive-trader/internal/config"
	apperrors "adaptive-trader/internal/errors"
	"adaptive-trader/internal/models"
	"adaptive-trader/internal/ratelimit"
	"adaptive-trader/pkg/utils"
)

// AlpacaClient talks to the primary broker-style API: batched
// multi-symbol bars with pagination, quotes, positions and orders.
// It also implements broker.Broker for live paper execution.
type AlpacaClient struct {
	baseURL   string
	dataURL   string
	key       string
	secret    string
	batchSize int
	client    *http.Client
	limiter   *ratelimit.Limiter
	perMin    float64
	retryCfg  utils.RetryConfig
	codec     AlpacaCodec
	logger    zerolog.Logger
}

// NewAlpacaClient creates a primary-source client from configuration.
func NewAlpacaClient(cfg config.DataConfig, creds config.Credentials, logger zerolog.Logger) *AlpacaClient {
	retryCfg := utils.DefaultRetryConfig()
	retryCfg.MaxAttempts = cfg.MaxRetries
	return &AlpacaClient{
		baseURL:   strings.TrimRight(cfg.AlpacaBaseURL, "/"),
		dataURL:   strings.TrimRight(cfg.AlpacaDataURL, "/"),
		key:       creds.AlpacaKey,
		secret:    creds.AlpacaSecret,
		batchSize: cfg.AlpacaBatchSize,
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter:   ratelimit.New(),
		perMin:    cfg.RateLimitPerMin,
		retryCfg:  retryCfg,
		logger:    logger.With().Str("source", "alpaca").Logger(),
	}
}

type alpacaBar struct {
	T time.Time `json:"t"`
	O float64   `json:"o"`
	H float64   `json:"h"`
	L float64   `json:"l"`
	C float64   `json:"c"`
	V float64   `json:"v"`
}

type alpacaBarsResponse struct {
	Bars          map[string][]alpacaBar `json:"bars"`
	NextPageToken *string                `json:"next_page_token"`
}

// GetBarsMulti fetches bars for many symbols of one asset class in
// provider-side batches, following pagination tokens until exhausted.
// Rate-limit responses are retried with exponential backoff; a batch
// that still fails is skipped so the rest of the universe survives.
func (a *AlpacaClient) GetBarsMulti(ctx context.Context, symbols []string, class models.AssetClass, timeframe string, limit int) (map[string][]models.Candle, error) {
	result := make(map[string][]models.Candle, len(symbols))

	for start := 0; start < len(symbols); start += a.batchSize {
		end := start + a.batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		if err := a.fetchBarsBatch(ctx, batch, class, timeframe, limit, result); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			a.logger.Warn().Err(err).Int("symbols", len(batch)).Msg("Bar batch failed, skipping")
		}
	}
	return result, nil
}

func (a *AlpacaClient) fetchBarsBatch(ctx context.Context, batch []string, class models.AssetClass, timeframe string, limit int, result map[string][]models.Candle) error {
	provider := make([]string, len(batch))
	for i, s := range batch {
		provider[i] = a.codec.ToProvider(s, class)
	}

	endpoint := a.dataURL + "/v2/stocks/bars"
	if class == models.AssetCrypto {
		endpoint = a.dataURL + "/v1beta3/crypto/us/bars"
	}

	pageToken := ""
	for {
		q := url.Values{}
		q.Set("symbols", strings.Join(provider, ","))
		q.Set("timeframe", timeframe)
		q.Set("limit", strconv.Itoa(limit))
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}

		var page alpacaBarsResponse
		err := utils.Retry(ctx, a.retryCfg, func() error {
			page = alpacaBarsResponse{}
			return a.getJSON(ctx, endpoint+"?"+q.Encode(), &page)
		})
		if err != nil {
			return err
		}

		for sym, bars := range page.Bars {
			canonical := a.codec.FromProvider(sym, class)
			candles := make([]models.Candle, len(bars))
			for i, b := range bars {
				candles[i] = models.Candle{
					Timestamp: b.T, Open: b.O, High: b.H, Low: b.L, Close: b.C, Volume: b.V,
				}
			}
			result[canonical] = append(result[canonical], candles...)
		}

		if page.NextPageToken == nil || *page.NextPageToken == "" {
			return nil
		}
		pageToken = *page.NextPageToken
	}
}

type alpacaTradeResponse struct {
	Trade struct {
		Price     float64   `json:"p"`
		Timestamp time.Time `json:"t"`
	} `json:"trade"`
}

// GetQuote fetches the latest trade price for a symbol.
func (a *AlpacaClient) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	endpoint := fmt.Sprintf("%s/v2/stocks/%s/trades/latest", a.dataURL, url.PathEscape(a.codec.ToProvider(symbol, models.AssetEquity)))

	var resp alpacaTradeResponse
	if err := a.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, apperrors.NewDataError("alpaca", symbol, "quote fetch failed", err)
	}
	return &models.Quote{Symbol: symbol, Price: resp.Trade.Price, Timestamp: resp.Trade.Timestamp}, nil
}

type alpacaPosition struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	CurrentPrice  string `json:"current_price"`
	MarketValue   string `json:"market_value"`
}

// GetPositions lists the live positions at the broker.
func (a *AlpacaClient) GetPositions(ctx context.Context) ([]models.Position, error) {
	var raw []alpacaPosition
	if err := a.getJSON(ctx, a.baseURL+"/v2/positions", &raw); err != nil {
		return nil, apperrors.Wrap(err, "listing positions")
	}

	positions := make([]models.Position, 0, len(raw))
	for _, p := range raw {
		qty, _ := strconv.ParseFloat(p.Qty, 64)
		avg, _ := strconv.ParseFloat(p.AvgEntryPrice, 64)
		cur, _ := strconv.ParseFloat(p.CurrentPrice, 64)
		mv, _ := strconv.ParseFloat(p.MarketValue, 64)
		positions = append(positions, models.Position{
			Symbol:       a.codec.FromProvider(p.Symbol, positionClass(p.Symbol)),
			Quantity:     qty,
			AveragePrice: avg,
			CurrentPrice: cur,
			MarketValue:  mv,
		})
	}
	return positions, nil
}

type alpacaOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PlaceOrder submits an order and returns its accept/reject status.
func (a *AlpacaClient) PlaceOrder(ctx context.Context, order models.Order) (*broker.OrderResult, error) {
	body := map[string]interface{}{
		"symbol":        a.codec.ToProvider(order.Symbol, orderClass(order.Symbol)),
		"qty":           strconv.FormatFloat(order.Quantity, 'f', -1, 64),
		"side":          strings.ToLower(string(order.Side)),
		"type":          strings.ToLower(string(order.Type)),
		"time_in_force": order.TimeInForce,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v2/orders", strings.NewReader(string(payload)))
	if err != nil {
		return nil, err
	}
	a.auth(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apperrors.NewOrderError(order.Symbol, string(order.Side), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusForbidden {
		msg, _ := io.ReadAll(resp.Body)
		return &broker.OrderResult{Status: broker.StatusRejected, Message: string(msg)},
			apperrors.NewOrderError(order.Symbol, string(order.Side), "rejected", apperrors.ErrOrderRejected)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return nil, apperrors.NewOrderError(order.Symbol, string(order.Side),
			fmt.Sprintf("status %d: %s", resp.StatusCode, msg), nil)
	}

	var parsed alpacaOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return &broker.OrderResult{
		OrderID:     parsed.ID,
		Status:      strings.ToUpper(parsed.Status),
		FilledQty:   order.Quantity,
		FilledPrice: 0,
	}, nil
}

// getJSON performs a rate-limited GET and decodes the JSON response.
// HTTP 429 maps to ErrRateLimited so retry backoff applies.
func (a *AlpacaClient) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	if err := a.limiter.Wait(ctx, "alpaca", a.perMin, a.perMin/60); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	a.auth(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return apperrors.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// positionClass infers the asset class from the provider's position
// symbol. Crypto positions come back slash-separated ("BTC/USD");
// equity share classes use a dot ("BRK.B").
func positionClass(symbol string) models.AssetClass {
	if strings.Contains(symbol, "/") {
		return models.AssetCrypto
	}
	return models.AssetEquity
}

// orderClass infers the asset class of a canonical symbol submitted for
// execution. Crypto pairs carry a -USD quote suffix; share-class
// equities like BRK-B do not. Forex never routes to this broker.
func orderClass(symbol string) models.AssetClass {
	if strings.HasSuffix(symbol, "-USD") {
		return models.AssetCrypto
	}
	return models.AssetEquity
}

func (a *AlpacaClient) auth(req *http.Request) {
	req.Header.Set("APCA-API-KEY-ID", a.key)
	req.Header.Set("APCA-API-SECRET-KEY", a.secret)
}

var _ broker.Broker = (*AlpacaClient)(nil)
