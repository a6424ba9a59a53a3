package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "adaptive-trader/internal/errors"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Trading.ExecutionBroker != BrokerPaper {
		t.Errorf("default execution broker = %q, want %q", cfg.Trading.ExecutionBroker, BrokerPaper)
	}
}

func TestValidateExecutionBroker(t *testing.T) {
	cfg := Default()

	cfg.Trading.ExecutionBroker = BrokerAlpaca
	if err := cfg.Validate(); err != nil {
		t.Errorf("alpaca broker rejected: %v", err)
	}

	cfg.Trading.ExecutionBroker = "robinhood"
	if err := cfg.Validate(); !errors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("unknown broker error = %v, want ErrConfigInvalid", err)
	}
}

func TestLoadRecordsConfigDir(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("loading from empty dir: %v", err)
	}
	if cfg.Dir != dir {
		t.Errorf("config dir = %q, want %q", cfg.Dir, dir)
	}

	if cfg, err := Load(""); err != nil {
		t.Fatalf("loading with empty dir: %v", err)
	} else if cfg.Dir != DefaultConfigDir() {
		t.Errorf("config dir = %q, want default %q", cfg.Dir, DefaultConfigDir())
	}
}

func TestLoadReadsOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	toml := "[trading]\nexecution_broker = \"alpaca\"\ninitial_capital = 5000.0\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if cfg.Trading.ExecutionBroker != BrokerAlpaca {
		t.Errorf("execution broker = %q, want alpaca", cfg.Trading.ExecutionBroker)
	}
	if cfg.Trading.InitialCapital != 5000 {
		t.Errorf("initial capital = %v, want 5000", cfg.Trading.InitialCapital)
	}
	// Unset keys keep their defaults.
	if cfg.Trading.Benchmark != "SPY" {
		t.Errorf("benchmark = %q, want default SPY", cfg.Trading.Benchmark)
	}
}
