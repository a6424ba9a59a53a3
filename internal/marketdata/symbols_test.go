package marketdata

import (
	"testing"

	"adaptive-trader/internal/models"
)

func TestAlpacaCodecRoundTrip(t *testing.T) {
	tests := []struct {
		canonical string
		class     models.AssetClass
		provider  string
	}{
		{"AAPL", models.AssetEquity, "AAPL"},
		{"BRK-B", models.AssetEquity, "BRK.B"},
		{"BTC-USD", models.AssetCrypto, "BTC/USD"},
		{"ETH-USD", models.AssetCrypto, "ETH/USD"},
	}

	var codec AlpacaCodec
	for _, tt := range tests {
		if got := codec.ToProvider(tt.canonical, tt.class); got != tt.provider {
			t.Errorf("ToProvider(%s, %s) = %s, want %s", tt.canonical, tt.class, got, tt.provider)
		}
		if got := codec.FromProvider(tt.provider, tt.class); got != tt.canonical {
			t.Errorf("FromProvider(%s, %s) = %s, want %s", tt.provider, tt.class, got, tt.canonical)
		}
	}
}

func TestTwelveDataCodecRoundTrip(t *testing.T) {
	tests := []struct {
		canonical string
		class     models.AssetClass
		provider  string
	}{
		{"EUR-USD", models.AssetForex, "EUR/USD"},
		{"USD-JPY", models.AssetForex, "USD/JPY"},
		{"BTC-USD", models.AssetCrypto, "BTC/USD"},
		{"SPY", models.AssetEquity, "SPY"},
	}

	var codec TwelveDataCodec
	for _, tt := range tests {
		if got := codec.ToProvider(tt.canonical, tt.class); got != tt.provider {
			t.Errorf("ToProvider(%s, %s) = %s, want %s", tt.canonical, tt.class, got, tt.provider)
		}
		if got := codec.FromProvider(tt.provider, tt.class); got != tt.canonical {
			t.Errorf("FromProvider(%s, %s) = %s, want %s", tt.provider, tt.class, got, tt.canonical)
		}
	}
}

func TestBrokerSymbolClassInference(t *testing.T) {
	var codec AlpacaCodec

	// Position listing: provider symbols round-trip to canonical form.
	positionTests := []struct {
		provider  string
		class     models.AssetClass
		canonical string
	}{
		{"AAPL", models.AssetEquity, "AAPL"},
		{"BRK.B", models.AssetEquity, "BRK-B"},
		{"BTC/USD", models.AssetCrypto, "BTC-USD"},
		{"ETH/USD", models.AssetCrypto, "ETH-USD"},
	}
	for _, tt := range positionTests {
		if got := positionClass(tt.provider); got != tt.class {
			t.Errorf("positionClass(%s) = %s, want %s", tt.provider, got, tt.class)
		}
		if got := codec.FromProvider(tt.provider, positionClass(tt.provider)); got != tt.canonical {
			t.Errorf("position symbol %s maps to %s, want %s", tt.provider, got, tt.canonical)
		}
	}

	// Order submission: canonical symbols map to the provider form.
	orderTests := []struct {
		canonical string
		class     models.AssetClass
		provider  string
	}{
		{"AAPL", models.AssetEquity, "AAPL"},
		{"BRK-B", models.AssetEquity, "BRK.B"},
		{"BTC-USD", models.AssetCrypto, "BTC/USD"},
	}
	for _, tt := range orderTests {
		if got := orderClass(tt.canonical); got != tt.class {
			t.Errorf("orderClass(%s) = %s, want %s", tt.canonical, got, tt.class)
		}
		if got := codec.ToProvider(tt.canonical, orderClass(tt.canonical)); got != tt.provider {
			t.Errorf("order symbol %s maps to %s, want %s", tt.canonical, got, tt.provider)
		}
	}
}

func TestChunksHoldingsFirst(t *testing.T) {
	universe := []Asset{
		{Symbol: "A", Class: models.AssetEquity},
		{Symbol: "B", Class: models.AssetEquity},
		{Symbol: "C", Class: models.AssetEquity},
		{Symbol: "D", Class: models.AssetEquity},
		{Symbol: "E", Class: models.AssetEquity},
	}
	o := &Orchestrator{chunkSize: 2}

	chunks := o.Chunks(universe, map[string]bool{"D": true, "E": true})
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	first := map[string]bool{}
	for _, a := range chunks[0] {
		first[a.Symbol] = true
	}
	if !first["D"] || !first["E"] {
		t.Errorf("held symbols not in first chunk: %v", chunks[0])
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total != len(universe) {
		t.Errorf("chunks cover %d symbols, want %d", total, len(universe))
	}
}
