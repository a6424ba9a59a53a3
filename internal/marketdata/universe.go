package marketdata

import "adaptive-trader/internal/models"

// DefaultUniverse returns the built-in tradable universe: large-cap
// equities and ETFs on the primary source, major crypto pairs on the
// primary source, and major forex pairs on the secondary source.
func DefaultUniverse() []Asset {
	equities := []string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "AMD",
		"JPM", "V", "UNH", "HD", "PG", "KO", "XOM", "CVX", "BRK-B",
		"SPY", "QQQ", "IWM",
	}
	crypto := []string{"BTC-USD", "ETH-USD", "SOL-USD", "LTC-USD"}
	forex := []string{"EUR-USD", "GBP-USD", "USD-JPY", "AUD-USD"}

	universe := make([]Asset, 0, len(equities)+len(crypto)+len(forex))
	for _, s := range equities {
		universe = append(universe, Asset{Symbol: s, Class: models.AssetEquity})
	}
	for _, s := range crypto {
		universe = append(universe, Asset{Symbol: s, Class: models.AssetCrypto})
	}
	for _, s := range forex {
		universe = append(universe, Asset{Symbol: s, Class: models.AssetForex})
	}
	return universe
}
