// Package marketdata provides the data-source clients and the batch
// fetch orchestrator.
package marketdata

import (
	"strings"

	"adaptive-trader/internal/models"
)

// Asset pairs a canonical symbol with its asset class. Canonical form
// uses hyphens: "BRK-B", "BTC-USD", "EUR-USD".
type Asset struct {
	Symbol string           `json:"symbol"`
	Class  models.AssetClass `json:"class"`
}

// AlpacaCodec converts between canonical symbols and the primary
// source's conventions: equities use a dot share-class separator
// ("BRK.B"), crypto uses a slash pair separator ("BTC/USD").
type AlpacaCodec struct{}

// ToProvider converts a canonical symbol to the provider's format.
func (AlpacaCodec) ToProvider(symbol string, class models.AssetClass) string {
	switch class {
	case models.AssetCrypto:
		return strings.ReplaceAll(symbol, "-", "/")
	default:
		return strings.ReplaceAll(symbol, "-", ".")
	}
}

// FromProvider converts a provider symbol back to canonical form.
func (AlpacaCodec) FromProvider(symbol string, class models.AssetClass) string {
	switch class {
	case models.AssetCrypto:
		return strings.ReplaceAll(symbol, "/", "-")
	default:
		return strings.ReplaceAll(symbol, ".", "-")
	}
}

// TwelveDataCodec converts between canonical symbols and the secondary
// source's slash-pair convention ("EUR/USD").
type TwelveDataCodec struct{}

// ToProvider converts a canonical symbol to the provider's format.
func (TwelveDataCodec) ToProvider(symbol string, class models.AssetClass) string {
	switch class {
	case models.AssetForex, models.AssetCrypto:
		return strings.ReplaceAll(symbol, "-", "/")
	default:
		return symbol
	}
}

// FromProvider converts a provider symbol back to canonical form.
func (TwelveDataCodec) FromProvider(symbol string, class models.AssetClass) string {
	switch class {
	case models.AssetForex, models.AssetCrypto:
		return strings.ReplaceAll(symbol, "/", "-")
	default:
		return symbol
	}
}
